package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ticketd/internal/api"
	"ticketd/internal/models"
	"ticketd/internal/store"
	"ticketd/internal/workflow"
)

const detailActivityLimit = 20

// TicketService centralizes ticket validation, defaults and the edit paths
// that must keep blockedBy and derived statuses consistent.
type TicketService struct {
	store store.TicketStore
	mu    *sync.Mutex
	now   func() time.Time
}

// NewTicketService constructs a TicketService.
func NewTicketService(ticketStore store.TicketStore, mu *sync.Mutex) *TicketService {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &TicketService{
		store: ticketStore,
		mu:    mu,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create creates a ticket from a request.
func (s *TicketService) Create(ctx context.Context, req api.TicketCreateRequest) (models.Ticket, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return models.Ticket{}, err
	}

	status := models.DefaultStatus
	if strings.TrimSpace(req.Status) != "" {
		if status, err = normalizeStatus(req.Status); err != nil {
			return models.Ticket{}, err
		}
	}
	priority, err := normalizePriority(req.Priority)
	if err != nil {
		return models.Ticket{}, err
	}
	ticketType, err := normalizeTicketType(req.TicketType)
	if err != nil {
		return models.Ticket{}, err
	}
	points := 0
	if req.Points != nil {
		if points, err = normalizePoints(*req.Points); err != nil {
			return models.Ticket{}, err
		}
	}

	projectID := strings.TrimSpace(req.ProjectID)
	if projectID != "" && !validateProjectID(projectID) {
		return models.Ticket{}, badRequestCode(fmt.Errorf("invalid projectId"), ErrCodeInvalidID)
	}

	now := s.now()
	subtasks, err := buildSubtasks(req.Subtasks, nil, now)
	if err != nil {
		return models.Ticket{}, err
	}
	if derived, ok := workflow.DeriveStatus(subtasks); ok {
		status = derived
	}

	id, err := store.GenerateTicketID(s.store.TicketExists)
	if err != nil {
		return models.Ticket{}, internalError(err)
	}
	dependsOn, err := normalizeDependsOn(id, req.DependsOn)
	if err != nil {
		return models.Ticket{}, err
	}

	ticket := models.Ticket{
		ID:          id,
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		Priority:    priority,
		TicketType:  ticketType,
		Assignee:    strings.TrimSpace(req.Assignee),
		Points:      points,
		DependsOn:   dependsOn,
		Subtasks:    subtasks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	author := actorFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.store.InTx(ctx, func(q store.Queries) error {
		if projectID != "" {
			project, err := q.GetProject(ctx, projectID)
			if err != nil {
				return storeFailure(err)
			}
			if project == nil {
				return notFoundCode(fmt.Errorf("project not found: %s", projectID), ErrCodeProjectNotFound)
			}
			key, err := q.NextTicketKey(ctx, project.KeyPrefix)
			if err != nil {
				if errors.Is(err, models.ErrTicketKeyExhausted) {
					return conflictCode(err, ErrCodeTicketKeyExhausted)
				}
				return storeFailure(err)
			}
			ticket.TicketKey = key
		}

		depStates, err := checkDependencies(ctx, q, id, dependsOn)
		if err != nil {
			return err
		}
		resolution := workflow.Resolve(workflow.DepsOf(ticket.State(), depStates))
		if status.IsActive() && !resolution.Admitted() {
			return dependencyConflict(resolution.Blockers)
		}
		ticket.BlockedBy = !resolution.Admitted()

		if err := q.CreateTicket(ctx, &ticket); err != nil {
			return storeFailure(err)
		}
		if err := q.AppendActivity(ctx, &models.Activity{
			TicketID:  id,
			Author:    author,
			Action:    models.ActivityCreated,
			Details:   string(status),
			CreatedAt: now,
		}); err != nil {
			return storeFailure(err)
		}
		return nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// Get returns a live ticket with its dependents and recent activity.
func (s *TicketService) Get(ctx context.Context, id string) (api.TicketDetailResponse, error) {
	var (
		ticket     *models.Ticket
		dependents []models.TicketState
		activity   []models.Activity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ticket, err = s.store.GetTicket(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		dependents, err = s.store.ListDependents(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.store.ListActivity(gctx, id, detailActivityLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return api.TicketDetailResponse{}, storeFailure(err)
	}
	if ticket == nil || ticket.Deleted || ticket.Archived {
		return api.TicketDetailResponse{}, notFound(fmt.Errorf("ticket not found: %s", id))
	}

	resp := api.TicketDetailResponse{
		Ticket:     *ticket,
		Dependents: make([]api.DependentSummary, 0, len(dependents)),
		Activity:   activity,
	}
	for _, dep := range dependents {
		resp.Dependents = append(resp.Dependents, api.DependentSummary{
			ID:        dep.ID,
			Title:     dep.Title,
			Status:    dep.Status,
			BlockedBy: dep.BlockedBy,
		})
	}
	if resp.Activity == nil {
		resp.Activity = []models.Activity{}
	}
	return resp, nil
}

// List returns live tickets matching filter.
func (s *TicketService) List(ctx context.Context, filter store.ListFilter) ([]models.Ticket, error) {
	if filter.ProjectID != "" && !validateProjectID(filter.ProjectID) {
		return nil, badRequestCode(fmt.Errorf("invalid projectId"), ErrCodeInvalidQuery)
	}
	statuses := make([]string, 0, len(filter.Statuses))
	for _, raw := range filter.Statuses {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return nil, badRequestCode(err, ErrCodeInvalidStatus)
		}
		statuses = append(statuses, string(status))
	}
	filter.Statuses = statuses

	tickets, err := s.store.ListTickets(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}

// Update edits a ticket. Status is owned by the transition endpoint and is
// refused here, except where a subtask edit derives a new one.
func (s *TicketService) Update(ctx context.Context, id string, req api.TicketUpdateRequest) (models.Ticket, error) {
	if req.Status != nil {
		return models.Ticket{}, badRequestCode(
			fmt.Errorf("status cannot be edited here, use PATCH /tickets/%s/status", id),
			ErrCodeStatusNotEditable,
		)
	}

	now := s.now()
	update := store.TicketUpdate{UpdatedAt: now}
	var changed []string

	if req.Title != nil {
		title, err := normalizeTitle(*req.Title)
		if err != nil {
			return models.Ticket{}, err
		}
		update.Title = &title
		changed = append(changed, "title")
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		update.Description = &description
		changed = append(changed, "description")
	}
	if req.Priority != nil {
		priority, err := normalizePriority(*req.Priority)
		if err != nil {
			return models.Ticket{}, err
		}
		update.Priority = &priority
		changed = append(changed, "priority")
	}
	if req.TicketType != nil {
		ticketType, err := normalizeTicketType(*req.TicketType)
		if err != nil {
			return models.Ticket{}, err
		}
		update.TicketType = &ticketType
		changed = append(changed, "ticketType")
	}
	if req.Assignee != nil {
		assignee := strings.TrimSpace(*req.Assignee)
		update.Assignee = &assignee
		changed = append(changed, "assignee")
	}
	if req.Points != nil {
		points, err := normalizePoints(*req.Points)
		if err != nil {
			return models.Ticket{}, err
		}
		update.Points = &points
		changed = append(changed, "points")
	}
	if req.Archived != nil {
		archived := *req.Archived
		update.Archived = &archived
		changed = append(changed, "archived")
	}

	var dependsOn []string
	if req.DependsOn != nil {
		var err error
		if dependsOn, err = normalizeDependsOn(id, *req.DependsOn); err != nil {
			return models.Ticket{}, err
		}
		changed = append(changed, "dependsOn")
	}
	if req.Subtasks != nil {
		changed = append(changed, "subtasks")
	}

	author := actorFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *models.Ticket
	err := s.store.InTx(ctx, func(q store.Queries) error {
		current, err := loadTicket(ctx, q, id)
		if err != nil {
			return err
		}
		state := current.State()

		if req.DependsOn != nil {
			dependsOn, err = pruneDeletedDependencies(ctx, q, dependsOn, current.DependsOn)
			if err != nil {
				return err
			}
			if _, err := checkDependencies(ctx, q, id, dependsOn); err != nil {
				return err
			}
			update.DependsOn = &dependsOn
			state.DependsOn = dependsOn
		}

		from := current.Status.Canonical()
		target := from
		if req.Subtasks != nil {
			subtasks, err := buildSubtasks(*req.Subtasks, current.Subtasks, now)
			if err != nil {
				return err
			}
			update.Subtasks = &subtasks
			if derived, ok := workflow.DeriveStatus(subtasks); ok {
				target = derived
			}
		}

		depStates, err := q.ListTicketStates(ctx, state.DependsOn)
		if err != nil {
			return storeFailure(err)
		}
		resolution := workflow.Resolve(workflow.DepsOf(state, depStates))
		if target != from && target.IsActive() && !resolution.Admitted() {
			return dependencyConflict(resolution.Blockers)
		}
		blocked := !resolution.Admitted()
		update.BlockedBy = &blocked
		if target != from {
			update.Status = &target
		}

		if err := q.UpdateTicket(ctx, id, update); err != nil {
			return storeFailure(err)
		}
		if from.IsDone() && !target.IsDone() {
			if err := propagateDowngrade(ctx, q, id, now); err != nil {
				return err
			}
		}

		if len(changed) > 0 {
			if err := q.AppendActivity(ctx, &models.Activity{
				TicketID:  id,
				Author:    author,
				Action:    models.ActivityUpdated,
				Details:   strings.Join(changed, ", "),
				CreatedAt: now,
			}); err != nil {
				return storeFailure(err)
			}
		}
		if target != from {
			if err := q.AppendActivity(ctx, &models.Activity{
				TicketID:  id,
				Author:    author,
				Action:    models.ActivityStatusChanged,
				Details:   fmt.Sprintf("%s -> %s", from, target),
				CreatedAt: now,
			}); err != nil {
				return storeFailure(err)
			}
		}

		result, err = loadTicket(ctx, q, id)
		return err
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return *result, nil
}

// SetSubtasks replaces the subtask list and re-derives the parent status.
func (s *TicketService) SetSubtasks(ctx context.Context, id string, subtasks []api.SubtaskInput) (models.Ticket, error) {
	if subtasks == nil {
		subtasks = []api.SubtaskInput{}
	}
	return s.Update(ctx, id, api.TicketUpdateRequest{Subtasks: &subtasks})
}

// Delete soft-deletes a ticket and recomputes blockedBy on its direct
// dependents, for which the deleted ticket no longer counts.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	now := s.now()
	author := actorFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.InTx(ctx, func(q store.Queries) error {
		ok, err := q.SoftDeleteTicket(ctx, id, now)
		if err != nil {
			return storeFailure(err)
		}
		if !ok {
			return notFound(fmt.Errorf("ticket not found: %s", id))
		}

		dependents, err := q.ListDependents(ctx, id)
		if err != nil {
			return storeFailure(err)
		}
		depStates, err := q.ListTicketStates(ctx, workflow.DependencyIDs(dependents))
		if err != nil {
			return storeFailure(err)
		}
		var unblock, block []string
		for _, dep := range dependents {
			want := workflow.ComputeBlockedBy(workflow.DepsOf(dep, depStates))
			if want == dep.BlockedBy {
				continue
			}
			if want {
				block = append(block, dep.ID)
			} else {
				unblock = append(unblock, dep.ID)
			}
		}
		if err := setBlockedBatch(ctx, q, block, true, now); err != nil {
			return err
		}
		if err := setBlockedBatch(ctx, q, unblock, false, now); err != nil {
			return err
		}

		if err := q.AppendActivity(ctx, &models.Activity{
			TicketID:  id,
			Author:    author,
			Action:    models.ActivityDeleted,
			CreatedAt: now,
		}); err != nil {
			return storeFailure(err)
		}
		return nil
	})
}

// Activity lists the audit trail of a live ticket, newest first.
func (s *TicketService) Activity(ctx context.Context, id string, limit int) ([]models.Activity, error) {
	if _, err := loadTicket(ctx, s.store, id); err != nil {
		return nil, err
	}
	activity, err := s.store.ListActivity(ctx, id, limit)
	if err != nil {
		return nil, storeFailure(err)
	}
	if activity == nil {
		activity = []models.Activity{}
	}
	return activity, nil
}

// Reconcile recomputes blockedBy for every live ticket and writes back the
// ones that drifted.
func (s *TicketService) Reconcile(ctx context.Context) (api.ReconcileResponse, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var resp api.ReconcileResponse
	err := s.store.InTx(ctx, func(q store.Queries) error {
		states, err := q.AllTicketStates(ctx)
		if err != nil {
			return storeFailure(err)
		}
		for _, st := range states {
			if !st.Deleted {
				resp.Checked++
			}
		}

		corrections := workflow.PlanReconcile(states)
		var block, unblock []string
		for _, c := range corrections {
			if c.BlockedBy {
				block = append(block, c.ID)
			} else {
				unblock = append(unblock, c.ID)
			}
		}
		if err := setBlockedBatch(ctx, q, block, true, now); err != nil {
			return err
		}
		if err := setBlockedBatch(ctx, q, unblock, false, now); err != nil {
			return err
		}
		resp.Corrected = corrections
		return nil
	})
	if err != nil {
		return api.ReconcileResponse{}, err
	}
	if resp.Corrected == nil {
		resp.Corrected = []workflow.Correction{}
	}
	return resp, nil
}

// pruneDeletedDependencies drops ids that were already dependencies and have
// since been deleted, so re-sending the current list keeps working. Deleted
// ids that are newly added are left for checkDependencies to refuse.
func pruneDeletedDependencies(ctx context.Context, q store.TicketReader, dependsOn, existing []string) ([]string, error) {
	if len(dependsOn) == 0 || len(existing) == 0 {
		return dependsOn, nil
	}
	states, err := q.ListTicketStates(ctx, dependsOn)
	if err != nil {
		return nil, storeFailure(err)
	}
	out := make([]string, 0, len(dependsOn))
	for _, id := range dependsOn {
		if st, ok := states[id]; ok && st.Deleted && slices.Contains(existing, id) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// checkDependencies validates a proposed dependsOn list: every id must name
// a live ticket and the new edges must not close a cycle. It returns the
// dependency snapshots.
func checkDependencies(ctx context.Context, q store.TicketReader, ticketID string, dependsOn []string) (map[string]models.TicketState, error) {
	if len(dependsOn) == 0 {
		return map[string]models.TicketState{}, nil
	}

	states, err := q.ListTicketStates(ctx, dependsOn)
	if err != nil {
		return nil, storeFailure(err)
	}
	var missing []string
	for _, id := range dependsOn {
		if st, ok := states[id]; !ok || st.Deleted {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, badRequestCode(
			fmt.Errorf("dependency not found: %s", strings.Join(missing, ", ")),
			ErrCodeDependencyNotFound,
		)
	}

	graph, err := workflow.CollectGraph(ctx, q, ticketID, dependsOn)
	if err != nil {
		return nil, storeFailure(err)
	}
	if err := workflow.ValidateEdges(ticketID, dependsOn, graph); err != nil {
		switch {
		case errors.Is(err, workflow.ErrSelfDependency):
			return nil, badRequestCode(err, ErrCodeInvalidDependency)
		case errors.Is(err, workflow.ErrDependencyCycle):
			return nil, dependencyCycle(err)
		default:
			return nil, internalError(err)
		}
	}
	return states, nil
}

// buildSubtasks validates subtask input. Entries whose id matches an
// existing subtask keep that id and creation time; others get a new id.
func buildSubtasks(inputs []api.SubtaskInput, existing []models.Subtask, now time.Time) ([]models.Subtask, error) {
	known := make(map[string]models.Subtask, len(existing))
	for _, st := range existing {
		known[st.ID] = st
	}

	out := make([]models.Subtask, 0, len(inputs))
	seen := map[string]struct{}{}
	for i, input := range inputs {
		title := strings.TrimSpace(input.Title)
		if title == "" {
			return nil, badRequestCode(fmt.Errorf("subtask %d: title is required", i+1), ErrCodeInvalidSubtask)
		}

		var status models.Status
		if strings.TrimSpace(input.Status) != "" {
			parsed, err := models.ParseStatus(input.Status)
			if err != nil {
				return nil, badRequestCode(fmt.Errorf("subtask %d: %w", i+1, err), ErrCodeInvalidSubtask)
			}
			status = parsed
		}

		subtask := models.Subtask{
			Title:     title,
			Status:    status,
			Assignee:  strings.TrimSpace(input.Assignee),
			DueDate:   input.DueDate,
			CreatedAt: now,
		}
		id := strings.TrimSpace(input.ID)
		if prev, ok := known[id]; ok && id != "" {
			if _, dup := seen[id]; !dup {
				subtask.ID = prev.ID
				subtask.CreatedAt = prev.CreatedAt
			}
		}
		if subtask.ID == "" {
			subtask.ID = uuid.NewString()
		}
		seen[subtask.ID] = struct{}{}
		out = append(out, subtask)
	}
	return out, nil
}

func setBlockedBatch(ctx context.Context, q store.TransitionStore, ids []string, blocked bool, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := q.SetFlags(ctx, ids, store.SetBlocked(blocked, now)); err != nil {
		return storeFailure(err)
	}
	return nil
}

func actorFromContext(ctx context.Context) string {
	if caller, ok := callerFromContext(ctx); ok {
		return caller.UserID
	}
	return ""
}

// verifiedActorFromContext returns the caller only when its token signature
// was checked. Role based decisions use it; attribution does not.
func verifiedActorFromContext(ctx context.Context) string {
	if caller, ok := callerFromContext(ctx); ok && caller.Verified {
		return caller.UserID
	}
	return ""
}
