package workflow

import (
	"sort"

	"ticketd/internal/models"
)

// ComputeBlockedBy derives the blockedBy cache from dependency snapshots.
// Every write site recomputes the flag through this function.
func ComputeBlockedBy(deps []models.TicketState) bool {
	for _, dep := range deps {
		if IsBlocking(dep) {
			return true
		}
	}
	return false
}

// DepsOf collects the snapshots a ticket depends on from a lookup table.
func DepsOf(ticket models.TicketState, states map[string]models.TicketState) []models.TicketState {
	out := make([]models.TicketState, 0, len(ticket.DependsOn))
	for _, id := range ticket.DependsOn {
		if dep, ok := states[id]; ok {
			out = append(out, dep)
		}
	}
	return out
}

// Correction is a blockedBy value that drifted from its dependencies.
type Correction struct {
	ID        string `json:"_id"`
	BlockedBy bool   `json:"blockedBy"`
}

// PlanReconcile returns the tickets whose stored blockedBy disagrees with
// ComputeBlockedBy. Deleted tickets are left alone.
func PlanReconcile(states map[string]models.TicketState) []Correction {
	var out []Correction
	for _, st := range states {
		if st.Deleted {
			continue
		}
		want := ComputeBlockedBy(DepsOf(st, states))
		if want != st.BlockedBy {
			out = append(out, Correction{ID: st.ID, BlockedBy: want})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
