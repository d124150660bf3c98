package workflow

import (
	"sort"

	"ticketd/internal/models"
)

// DowngradePlan lists the direct dependents touched when a ticket leaves Done.
type DowngradePlan struct {
	// Block are Backlog dependents that get blockedBy=true.
	Block []string
	// Flag are active dependents that get flaggedByDependencies=true.
	Flag []string
}

// Empty reports whether the plan has no writes.
func (p DowngradePlan) Empty() bool {
	return len(p.Block) == 0 && len(p.Flag) == 0
}

// PlanDowngrade decides what happens to direct dependents when their
// dependency regresses out of Done. Done dependents are untouched.
// Propagation is one hop: dependents of dependents are never visited.
func PlanDowngrade(dependents []models.TicketState) DowngradePlan {
	var plan DowngradePlan
	for _, dep := range dependents {
		if dep.Deleted {
			continue
		}
		switch {
		case dep.Status.Is(models.StatusBacklog):
			plan.Block = append(plan.Block, dep.ID)
		case dep.Status.IsActive():
			plan.Flag = append(plan.Flag, dep.ID)
		}
	}
	sort.Strings(plan.Block)
	sort.Strings(plan.Flag)
	return plan
}

// PlanUpgrade returns the direct dependents that become unblocked once
// changedID reaches Done. depStates holds every dependency referenced by any
// dependent; changedID counts as Done regardless of its snapshot, deleted
// dependencies and ids missing from depStates count as satisfied.
// Eligible dependents get blockedBy and flaggedByDependencies cleared.
func PlanUpgrade(changedID string, dependents []models.TicketState, depStates map[string]models.TicketState) []string {
	var eligible []string
	for _, dependent := range dependents {
		if dependent.Deleted {
			continue
		}
		if allSatisfied(changedID, dependent.DependsOn, depStates) {
			eligible = append(eligible, dependent.ID)
		}
	}
	sort.Strings(eligible)
	return eligible
}

func allSatisfied(changedID string, dependsOn []string, depStates map[string]models.TicketState) bool {
	for _, id := range dependsOn {
		if id == changedID {
			continue
		}
		st, ok := depStates[id]
		if !ok {
			continue
		}
		if IsBlocking(st) {
			return false
		}
	}
	return true
}

// DependencyIDs returns the distinct dependency ids referenced by dependents,
// for a single batch read.
func DependencyIDs(dependents []models.TicketState) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, d := range dependents {
		for _, id := range d.DependsOn {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
