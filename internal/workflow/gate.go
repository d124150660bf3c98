package workflow

import (
	"context"
	"errors"
	"slices"

	"ticketd/internal/models"
)

// ErrDoneNotPermitted is returned by a DoneGate that refuses the caller.
var ErrDoneNotPermitted = errors.New("not permitted to mark ticket done")

// DoneRequest describes an attempt to move a ticket into Done.
type DoneRequest struct {
	TicketID  string
	ProjectID string
	Actor     string
	From      models.Status
}

// DoneGate authorizes transitions into Done. It runs before dependency
// gating and before any propagation.
type DoneGate interface {
	AuthorizeDone(ctx context.Context, req DoneRequest) error
}

// AllowAll admits every Done. It is used when no Done roles are configured.
type AllowAll struct{}

func (AllowAll) AuthorizeDone(context.Context, DoneRequest) error { return nil }

// RoleLookup resolves a caller's role inside a project.
type RoleLookup interface {
	MemberRole(ctx context.Context, projectID, userID string) (models.MemberRole, bool, error)
}

// RoleGate admits Done only for project members holding one of Roles.
// Tickets outside any project and an empty Roles list are not gated.
type RoleGate struct {
	Roles  []models.MemberRole
	Lookup RoleLookup
}

func (g RoleGate) AuthorizeDone(ctx context.Context, req DoneRequest) error {
	if len(g.Roles) == 0 || req.ProjectID == "" {
		return nil
	}
	if req.Actor == "" || g.Lookup == nil {
		return ErrDoneNotPermitted
	}
	role, ok, err := g.Lookup.MemberRole(ctx, req.ProjectID, req.Actor)
	if err != nil {
		return err
	}
	if !ok || !slices.Contains(g.Roles, role) {
		return ErrDoneNotPermitted
	}
	return nil
}
