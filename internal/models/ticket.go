package models

import "time"

// Ticket represents a unit of work inside a project.
type Ticket struct {
	ID                    string     `json:"_id"`
	ProjectID             string     `json:"projectId,omitempty"`
	TicketKey             string     `json:"ticketKey,omitempty"`
	Title                 string     `json:"title"`
	Description           string     `json:"description,omitempty"`
	Status                Status     `json:"status"`
	Priority              Priority   `json:"priority"`
	TicketType            TicketType `json:"ticketType"`
	Assignee              string     `json:"assignee,omitempty"`
	Points                int        `json:"points"`
	DependsOn             []string   `json:"dependsOn"`
	BlockedBy             bool       `json:"blockedBy"`
	FlaggedByDependencies bool       `json:"flaggedByDependencies"`
	Subtasks              []Subtask  `json:"subtasks"`
	Deleted               bool       `json:"deleted"`
	Archived              bool       `json:"archived"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Subtask is an ordered checklist entry embedded in a ticket.
type Subtask struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Status    Status     `json:"status,omitempty"`
	Assignee  string     `json:"assignee,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TicketState is the projection the workflow needs to gate and propagate.
type TicketState struct {
	ID                    string
	ProjectID             string
	Title                 string
	Status                Status
	DependsOn             []string
	BlockedBy             bool
	FlaggedByDependencies bool
	Deleted               bool
}

// State projects a ticket onto the fields the workflow reads.
func (t Ticket) State() TicketState {
	return TicketState{
		ID:                    t.ID,
		ProjectID:             t.ProjectID,
		Title:                 t.Title,
		Status:                t.Status,
		DependsOn:             t.DependsOn,
		BlockedBy:             t.BlockedBy,
		FlaggedByDependencies: t.FlaggedByDependencies,
		Deleted:               t.Deleted,
	}
}

// Activity is an append-only audit record for a ticket.
type Activity struct {
	ID        int64     `json:"id"`
	TicketID  string    `json:"ticketId"`
	Author    string    `json:"author,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	ActivityCreated       = "created"
	ActivityUpdated       = "updated"
	ActivityStatusChanged = "status_changed"
	ActivityDeleted       = "deleted"
	ActivityBlocked       = "blocked"
)
