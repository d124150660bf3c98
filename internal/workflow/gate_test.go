package workflow

import (
	"context"
	"errors"
	"testing"

	"ticketd/internal/models"
)

type roleTable map[string]models.MemberRole

func (r roleTable) MemberRole(_ context.Context, projectID, userID string) (models.MemberRole, bool, error) {
	role, ok := r[projectID+"/"+userID]
	return role, ok, nil
}

func TestRoleGate(t *testing.T) {
	gate := RoleGate{
		Roles:  []models.MemberRole{models.RoleQA, models.RoleManager},
		Lookup: roleTable{"pj-1/alice": models.RoleQA, "pj-1/bob": models.RoleMember},
	}
	ctx := context.Background()

	if err := gate.AuthorizeDone(ctx, DoneRequest{ProjectID: "pj-1", Actor: "alice"}); err != nil {
		t.Fatalf("qa member should pass: %v", err)
	}
	if err := gate.AuthorizeDone(ctx, DoneRequest{ProjectID: "pj-1", Actor: "bob"}); !errors.Is(err, ErrDoneNotPermitted) {
		t.Fatalf("plain member should be refused, got %v", err)
	}
	if err := gate.AuthorizeDone(ctx, DoneRequest{ProjectID: "pj-1", Actor: "carol"}); !errors.Is(err, ErrDoneNotPermitted) {
		t.Fatalf("non-member should be refused, got %v", err)
	}
	if err := gate.AuthorizeDone(ctx, DoneRequest{ProjectID: "pj-1"}); !errors.Is(err, ErrDoneNotPermitted) {
		t.Fatalf("anonymous caller should be refused, got %v", err)
	}
	if err := gate.AuthorizeDone(ctx, DoneRequest{Actor: "bob"}); err != nil {
		t.Fatalf("ticket without project should pass: %v", err)
	}
}

func TestRoleGateWithoutRolesAllows(t *testing.T) {
	if err := (RoleGate{}).AuthorizeDone(context.Background(), DoneRequest{ProjectID: "pj-1"}); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if err := (AllowAll{}).AuthorizeDone(context.Background(), DoneRequest{}); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
}
