package models

import "testing"

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		" backlog ": StatusBacklog,
		"ONGOING":   StatusOngoing,
		"Blocked":   StatusBlocked,
		"qa":        StatusQA,
		"dOnE":      StatusDone,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", raw, want, got)
		}
	}

	if _, err := ParseStatus(""); err == nil {
		t.Fatal("expected missing status error")
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Fatal("expected invalid status error")
	}
}

func TestStatusIsActive(t *testing.T) {
	active := []Status{StatusOngoing, StatusBlocked, StatusQA, "qa"}
	for _, s := range active {
		if !s.IsActive() {
			t.Fatalf("expected %q to be active", s)
		}
	}
	for _, s := range []Status{StatusBacklog, StatusDone, "unknown"} {
		if s.IsActive() {
			t.Fatalf("expected %q to be inactive", s)
		}
	}
}

func TestStatusIsDoneCaseInsensitive(t *testing.T) {
	if !Status("DONE").IsDone() {
		t.Fatal("expected DONE to resolve as done")
	}
	if StatusQA.IsDone() {
		t.Fatal("expected QA not to resolve as done")
	}
	if !StatusDone.Is("done") {
		t.Fatal("expected Done to equal done")
	}
}

func TestParsePriorityAndTypeDefaults(t *testing.T) {
	p, err := ParsePriority("")
	if err != nil || p != PriorityMedium {
		t.Fatalf("expected default priority, got %q (%v)", p, err)
	}
	if _, err := ParsePriority("critical"); err == nil {
		t.Fatal("expected invalid priority error")
	}

	tt, err := ParseTicketType(" BUG ")
	if err != nil || tt != TypeBug {
		t.Fatalf("expected bug, got %q (%v)", tt, err)
	}
	if _, err := ParseTicketType("epic"); err == nil {
		t.Fatal("expected invalid ticket type error")
	}
}

func TestParseMemberRole(t *testing.T) {
	got, err := ParseMemberRole("manager")
	if err != nil {
		t.Fatalf("parse role: %v", err)
	}
	if got != RoleManager {
		t.Fatalf("expected %q, got %q", RoleManager, got)
	}
	if _, err := ParseMemberRole("owner"); err == nil {
		t.Fatal("expected invalid role error")
	}
}
