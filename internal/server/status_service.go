package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ticketd/internal/api"
	"ticketd/internal/models"
	"ticketd/internal/store"
	"ticketd/internal/workflow"
)

// DonePolicy controls who may move tickets to Done and what a refusal does.
type DonePolicy struct {
	Roles []models.MemberRole
	// Downgrade rewrites a refused Done request to QA instead of failing.
	Downgrade bool
}

// StatusService runs the status transition flow: dependency gating, the
// Done gate, propagation to dependents and the activity trail.
type StatusService struct {
	store  store.TicketStore
	mu     *sync.Mutex
	policy DonePolicy
	// gate overrides the role gate built from policy.
	gate workflow.DoneGate
	now  func() time.Time
}

// NewStatusService constructs a StatusService. mu serializes every write
// path touching the dependency graph.
func NewStatusService(ticketStore store.TicketStore, mu *sync.Mutex, policy DonePolicy) *StatusService {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &StatusService{
		store:  ticketStore,
		mu:     mu,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithDoneGate replaces the role based gate.
func (s *StatusService) WithDoneGate(gate workflow.DoneGate) *StatusService {
	s.gate = gate
	return s
}

func (s *StatusService) doneGate(q store.Queries) workflow.DoneGate {
	if s.gate != nil {
		return s.gate
	}
	if len(s.policy.Roles) == 0 {
		return workflow.AllowAll{}
	}
	// The lookup must go through the transaction: the store has one
	// connection and it is held by the open transaction.
	return workflow.RoleGate{Roles: s.policy.Roles, Lookup: q}
}

// Transition moves a ticket to the requested status. A dependency conflict
// commits blockedBy=true and returns a 409 carrying the blockers.
func (s *StatusService) Transition(ctx context.Context, ticketID string, req api.StatusUpdateRequest) (models.Ticket, error) {
	target, err := normalizeStatus(req.Status)
	if err != nil {
		return models.Ticket{}, err
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = actorFromContext(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		result   *models.Ticket
		blockers []workflow.Blocker
	)
	err = s.store.InTx(ctx, func(q store.Queries) error {
		var txErr error
		result, blockers, txErr = s.transition(ctx, q, ticketID, target, author)
		return txErr
	})
	if err != nil {
		return models.Ticket{}, err
	}
	if len(blockers) > 0 {
		return models.Ticket{}, dependencyConflict(blockers)
	}
	return *result, nil
}

func (s *StatusService) transition(ctx context.Context, q store.Queries, ticketID string, target models.Status, author string) (*models.Ticket, []workflow.Blocker, error) {
	current, err := q.GetTicketState(ctx, ticketID)
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if current == nil || current.Deleted {
		return nil, nil, notFound(fmt.Errorf("ticket not found: %s", ticketID))
	}

	from := current.Status.Canonical()
	if from == target {
		ticket, err := loadTicket(ctx, q, ticketID)
		return ticket, nil, err
	}

	now := s.now()

	if target.IsDone() {
		err := s.doneGate(q).AuthorizeDone(ctx, workflow.DoneRequest{
			TicketID:  ticketID,
			ProjectID: current.ProjectID,
			Actor:     verifiedActorFromContext(ctx),
			From:      from,
		})
		switch {
		case errors.Is(err, workflow.ErrDoneNotPermitted):
			if !s.policy.Downgrade {
				return nil, nil, forbiddenCode(err, ErrCodeDoneNotPermitted)
			}
			target = models.StatusQA
			if from == target {
				ticket, err := loadTicket(ctx, q, ticketID)
				return ticket, nil, err
			}
		case err != nil:
			return nil, nil, storeFailure(err)
		}
	}

	if target.IsActive() && len(current.DependsOn) > 0 {
		blockers, err := gateActivation(ctx, q, *current, now)
		if err != nil {
			return nil, nil, err
		}
		if len(blockers) > 0 {
			if err := q.AppendActivity(ctx, &models.Activity{
				TicketID:  ticketID,
				Author:    author,
				Action:    models.ActivityBlocked,
				Details:   fmt.Sprintf("%s -> %s refused: %s", from, target, blockerIDs(blockers)),
				CreatedAt: now,
			}); err != nil {
				return nil, nil, storeFailure(err)
			}
			return nil, blockers, nil
		}
	}

	if from.IsDone() && !target.IsDone() {
		if err := propagateDowngrade(ctx, q, ticketID, now); err != nil {
			return nil, nil, err
		}
	}

	if err := writeStatus(ctx, q, ticketID, target, now); err != nil {
		return nil, nil, err
	}
	// Upgrade propagation reads this ticket as Done, so it runs after the write.
	if target.IsDone() {
		if err := propagateUpgrade(ctx, q, ticketID, now); err != nil {
			return nil, nil, err
		}
	}

	if err := q.AppendActivity(ctx, &models.Activity{
		TicketID:  ticketID,
		Author:    author,
		Action:    models.ActivityStatusChanged,
		Details:   fmt.Sprintf("%s -> %s", from, target),
		CreatedAt: now,
	}); err != nil {
		return nil, nil, storeFailure(err)
	}

	ticket, err := loadTicket(ctx, q, ticketID)
	return ticket, nil, err
}

// gateActivation resolves a ticket's dependencies and persists blockedBy
// either way. It returns the blockers when activation must be refused.
func gateActivation(ctx context.Context, q store.TransitionStore, ticket models.TicketState, now time.Time) ([]workflow.Blocker, error) {
	states, err := q.ListTicketStates(ctx, ticket.DependsOn)
	if err != nil {
		return nil, storeFailure(err)
	}
	resolution := workflow.Resolve(workflow.DepsOf(ticket, states))
	if err := q.SetFlags(ctx, []string{ticket.ID}, store.SetBlocked(!resolution.Admitted(), now)); err != nil {
		return nil, storeFailure(err)
	}
	return resolution.Blockers, nil
}

// propagateDowngrade applies the plan for a ticket that left Done.
func propagateDowngrade(ctx context.Context, q store.TransitionStore, ticketID string, now time.Time) error {
	dependents, err := q.ListDependents(ctx, ticketID)
	if err != nil {
		return storeFailure(err)
	}
	plan := workflow.PlanDowngrade(dependents)
	if len(plan.Block) > 0 {
		if err := q.SetFlags(ctx, plan.Block, store.SetBlocked(true, now)); err != nil {
			return storeFailure(err)
		}
	}
	if len(plan.Flag) > 0 {
		if err := q.SetFlags(ctx, plan.Flag, store.SetFlagged(true, now)); err != nil {
			return storeFailure(err)
		}
	}
	return nil
}

// propagateUpgrade clears the dependency flags of direct dependents whose
// dependencies are now all satisfied.
func propagateUpgrade(ctx context.Context, q store.TransitionStore, ticketID string, now time.Time) error {
	dependents, err := q.ListDependents(ctx, ticketID)
	if err != nil {
		return storeFailure(err)
	}
	if len(dependents) == 0 {
		return nil
	}
	depStates, err := q.ListTicketStates(ctx, workflow.DependencyIDs(dependents))
	if err != nil {
		return storeFailure(err)
	}
	eligible := workflow.PlanUpgrade(ticketID, dependents, depStates)
	if len(eligible) == 0 {
		return nil
	}
	if err := q.SetFlags(ctx, eligible, store.ClearDependencyFlags(now)); err != nil {
		return storeFailure(err)
	}
	return nil
}

func writeStatus(ctx context.Context, q store.TransitionStore, ticketID string, status models.Status, now time.Time) error {
	ok, err := q.SetStatus(ctx, ticketID, status, now)
	if err != nil {
		return storeFailure(err)
	}
	if !ok {
		return notFound(fmt.Errorf("ticket not found: %s", ticketID))
	}
	return nil
}

func loadTicket(ctx context.Context, q store.TicketReader, ticketID string) (*models.Ticket, error) {
	ticket, err := q.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if ticket == nil || ticket.Deleted {
		return nil, notFound(fmt.Errorf("ticket not found: %s", ticketID))
	}
	return ticket, nil
}

func blockerIDs(blockers []workflow.Blocker) string {
	ids := make([]string, 0, len(blockers))
	for _, b := range blockers {
		ids = append(ids, b.ID)
	}
	return strings.Join(ids, ", ")
}
