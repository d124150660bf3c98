package store

import (
	"context"
	"time"

	"ticketd/internal/models"
)

// TicketReader reads tickets and the dependency projections the workflow uses.
type TicketReader interface {
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketState(ctx context.Context, id string) (*models.TicketState, error)
	ListTicketStates(ctx context.Context, ids []string) (map[string]models.TicketState, error)
	ListDependents(ctx context.Context, id string) ([]models.TicketState, error)
	ListDependsOn(ctx context.Context, ids []string) (map[string][]string, error)
	MemberRole(ctx context.Context, projectID, userID string) (models.MemberRole, bool, error)
}

// TransitionStore is what one status transition reads and writes.
type TransitionStore interface {
	TicketReader
	SetFlags(ctx context.Context, ids []string, update FlagUpdate) error
	SetStatus(ctx context.Context, id string, status models.Status, at time.Time) (bool, error)
	AppendActivity(ctx context.Context, activity *models.Activity) error
}

// Queries is the full set of operations available inside or outside a transaction.
type Queries interface {
	TransitionStore
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	UpdateTicket(ctx context.Context, id string, update TicketUpdate) error
	SoftDeleteTicket(ctx context.Context, id string, at time.Time) (bool, error)
	ListTickets(ctx context.Context, filter ListFilter) ([]models.Ticket, error)
	AllTicketStates(ctx context.Context) (map[string]models.TicketState, error)
	ListActivity(ctx context.Context, ticketID string, limit int) ([]models.Activity, error)
	NextTicketKey(ctx context.Context, prefix string) (string, error)

	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpsertMember(ctx context.Context, member *models.Member) error
	ListMembers(ctx context.Context, projectID string) ([]models.Member, error)
}

// TicketStore abstracts ticket storage backends.
type TicketStore interface {
	Queries
	InTx(ctx context.Context, fn func(Queries) error) error
	TicketExists(id string) (bool, error)
	ProjectExists(id string) (bool, error)
	StoreInfo(ctx context.Context) (*StoreInfo, error)
}

var _ TicketStore = (*Store)(nil)

// FlagUpdate sets the derived dependency flags on a batch of tickets.
// Nil fields are left unchanged.
type FlagUpdate struct {
	BlockedBy             *bool
	FlaggedByDependencies *bool
	UpdatedAt             time.Time
}

// TicketUpdate carries the mutable fields of a ticket. Nil fields are left
// unchanged.
type TicketUpdate struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	TicketType  *models.TicketType
	Assignee    *string
	Points      *int
	Archived    *bool
	BlockedBy   *bool
	DependsOn   *[]string
	Subtasks    *[]models.Subtask
	UpdatedAt   time.Time
}

// ListFilter narrows ListTickets.
type ListFilter struct {
	ProjectID      string
	Statuses       []string
	Assignee       string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// StoreInfo summarizes the database for /info.
type StoreInfo struct {
	SchemaVersion int            `json:"schema_version"`
	TicketCounts  map[string]int `json:"ticket_counts"`
	TotalTickets  int            `json:"total_tickets"`
}

func boolPtr(v bool) *bool { return &v }

// SetBlocked is a FlagUpdate that only touches blockedBy.
func SetBlocked(v bool, at time.Time) FlagUpdate {
	return FlagUpdate{BlockedBy: boolPtr(v), UpdatedAt: at}
}

// SetFlagged is a FlagUpdate that only touches flaggedByDependencies.
func SetFlagged(v bool, at time.Time) FlagUpdate {
	return FlagUpdate{FlaggedByDependencies: boolPtr(v), UpdatedAt: at}
}

// ClearDependencyFlags clears both derived flags.
func ClearDependencyFlags(at time.Time) FlagUpdate {
	return FlagUpdate{BlockedBy: boolPtr(false), FlaggedByDependencies: boolPtr(false), UpdatedAt: at}
}
