// Package workflow holds the pure ticket status rules: dependency gating,
// propagation to dependents, subtask aggregation and cycle checks. Nothing
// here touches storage; callers load snapshots and persist the plans.
package workflow

import (
	"sort"

	"ticketd/internal/models"
)

// Blocker identifies a dependency that prevents activation.
type Blocker struct {
	ID     string        `json:"_id"`
	Title  string        `json:"title"`
	Status models.Status `json:"status"`
}

// Resolution is the outcome of gating a ticket on its dependencies.
type Resolution struct {
	Blockers []Blocker
}

// Admitted reports whether no dependency blocks the ticket.
func (r Resolution) Admitted() bool {
	return len(r.Blockers) == 0
}

// IsBlocking reports whether a dependency holds back its dependents.
// Deleted dependencies never block.
func IsBlocking(dep models.TicketState) bool {
	return !dep.Deleted && !dep.Status.IsDone()
}

// Resolve gates activation on the given dependency snapshots. Ids in
// dependsOn that have no snapshot are treated as satisfied.
func Resolve(deps []models.TicketState) Resolution {
	var blockers []Blocker
	for _, dep := range deps {
		if !IsBlocking(dep) {
			continue
		}
		blockers = append(blockers, Blocker{ID: dep.ID, Title: dep.Title, Status: dep.Status})
	}
	sort.Slice(blockers, func(i, j int) bool { return blockers[i].ID < blockers[j].ID })
	return Resolution{Blockers: blockers}
}
