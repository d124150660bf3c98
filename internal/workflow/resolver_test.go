package workflow

import (
	"testing"

	"ticketd/internal/models"
)

func state(id string, status models.Status, deps ...string) models.TicketState {
	return models.TicketState{ID: id, Title: "ticket " + id, Status: status, DependsOn: deps}
}

func TestResolveRejectsNonDoneDependencies(t *testing.T) {
	res := Resolve([]models.TicketState{
		state("tk-b", models.StatusOngoing),
		state("tk-a", models.StatusDone),
		state("tk-c", models.StatusBacklog),
	})
	if res.Admitted() {
		t.Fatal("expected rejection")
	}
	if len(res.Blockers) != 2 {
		t.Fatalf("expected 2 blockers, got %d", len(res.Blockers))
	}
	if res.Blockers[0].ID != "tk-b" || res.Blockers[1].ID != "tk-c" {
		t.Fatalf("unexpected blockers: %#v", res.Blockers)
	}
	if res.Blockers[0].Title != "ticket tk-b" || res.Blockers[0].Status != models.StatusOngoing {
		t.Fatalf("blocker should carry title and status: %#v", res.Blockers[0])
	}
}

func TestResolveAdmitsWhenAllDone(t *testing.T) {
	res := Resolve([]models.TicketState{
		state("tk-a", models.StatusDone),
		state("tk-b", "DONE"),
	})
	if !res.Admitted() {
		t.Fatalf("expected admit, got blockers %#v", res.Blockers)
	}
}

func TestResolveIgnoresDeletedDependencies(t *testing.T) {
	deleted := state("tk-a", models.StatusOngoing)
	deleted.Deleted = true
	res := Resolve([]models.TicketState{deleted})
	if !res.Admitted() {
		t.Fatal("deleted dependency must not block")
	}
	if ComputeBlockedBy([]models.TicketState{deleted}) {
		t.Fatal("deleted dependency must not set blockedBy")
	}
}

func TestResolveEmpty(t *testing.T) {
	if !Resolve(nil).Admitted() {
		t.Fatal("no dependencies should admit")
	}
}

func TestPlanReconcile(t *testing.T) {
	a := state("tk-a", models.StatusOngoing)
	b := state("tk-b", models.StatusBacklog, "tk-a")
	c := state("tk-c", models.StatusBacklog, "tk-d")
	c.BlockedBy = true
	d := state("tk-d", models.StatusDone)
	e := state("tk-e", models.StatusBacklog, "tk-a")
	e.Deleted = true

	states := map[string]models.TicketState{"tk-a": a, "tk-b": b, "tk-c": c, "tk-d": d, "tk-e": e}
	got := PlanReconcile(states)
	if len(got) != 2 {
		t.Fatalf("expected 2 corrections, got %#v", got)
	}
	if got[0] != (Correction{ID: "tk-b", BlockedBy: true}) {
		t.Fatalf("unexpected first correction: %#v", got[0])
	}
	if got[1] != (Correction{ID: "tk-c", BlockedBy: false}) {
		t.Fatalf("unexpected second correction: %#v", got[1])
	}
}
