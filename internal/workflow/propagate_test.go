package workflow

import (
	"slices"
	"testing"

	"ticketd/internal/models"
)

func TestPlanDowngrade(t *testing.T) {
	deleted := state("tk-x", models.StatusBacklog)
	deleted.Deleted = true

	plan := PlanDowngrade([]models.TicketState{
		state("tk-backlog", models.StatusBacklog),
		state("tk-ongoing", models.StatusOngoing),
		state("tk-blocked", models.StatusBlocked),
		state("tk-qa", models.StatusQA),
		state("tk-done", models.StatusDone),
		deleted,
	})

	if !slices.Equal(plan.Block, []string{"tk-backlog"}) {
		t.Fatalf("unexpected block set: %v", plan.Block)
	}
	if !slices.Equal(plan.Flag, []string{"tk-blocked", "tk-ongoing", "tk-qa"}) {
		t.Fatalf("unexpected flag set: %v", plan.Flag)
	}
}

func TestPlanDowngradeNoDependents(t *testing.T) {
	if !PlanDowngrade(nil).Empty() {
		t.Fatal("expected empty plan")
	}
}

func TestPlanUpgradeRequiresAllDependenciesDone(t *testing.T) {
	dependents := []models.TicketState{
		state("tk-one", models.StatusBacklog, "tk-a"),
		state("tk-two", models.StatusBacklog, "tk-a", "tk-b"),
		state("tk-three", models.StatusQA, "tk-a", "tk-c"),
	}
	depStates := map[string]models.TicketState{
		"tk-a": state("tk-a", models.StatusQA),
		"tk-b": state("tk-b", models.StatusOngoing),
		"tk-c": state("tk-c", models.StatusDone),
	}

	got := PlanUpgrade("tk-a", dependents, depStates)
	if !slices.Equal(got, []string{"tk-one", "tk-three"}) {
		t.Fatalf("unexpected eligible set: %v", got)
	}
}

func TestPlanUpgradeTreatsDeletedAndMissingAsSatisfied(t *testing.T) {
	deleted := state("tk-b", models.StatusOngoing)
	deleted.Deleted = true

	dependents := []models.TicketState{
		state("tk-one", models.StatusBacklog, "tk-a", "tk-b", "tk-gone"),
	}
	depStates := map[string]models.TicketState{"tk-b": deleted}

	got := PlanUpgrade("tk-a", dependents, depStates)
	if !slices.Equal(got, []string{"tk-one"}) {
		t.Fatalf("expected tk-one eligible, got %v", got)
	}
}

func TestDependencyIDsDistinct(t *testing.T) {
	got := DependencyIDs([]models.TicketState{
		state("tk-1", models.StatusBacklog, "tk-b", "tk-a"),
		state("tk-2", models.StatusBacklog, "tk-a", "tk-c"),
	})
	if !slices.Equal(got, []string{"tk-a", "tk-b", "tk-c"}) {
		t.Fatalf("unexpected ids: %v", got)
	}
}
