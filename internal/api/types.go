package api

import (
	"time"

	"ticketd/internal/models"
	"ticketd/internal/workflow"
)

// ErrorResponse is the JSON error body. Blockers is set on dependency conflicts.
type ErrorResponse struct {
	Error     string             `json:"error"`
	Message   string             `json:"message,omitempty"`
	Code      string             `json:"code,omitempty"`
	ErrorCode int                `json:"error_code,omitempty"`
	Blockers  []workflow.Blocker `json:"blockers,omitempty"`
}

// StatusUpdateRequest is the body of PATCH /tickets/{ticketId}/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
	Author string `json:"author,omitempty"`
}

// SubtaskInput is a subtask as sent by clients. ID is optional and keeps
// an existing subtask's identity across a replace.
type SubtaskInput struct {
	ID       string     `json:"_id,omitempty"`
	Title    string     `json:"title"`
	Status   string     `json:"status,omitempty"`
	Assignee string     `json:"assignee,omitempty"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
}

// TicketCreateRequest is the body of POST /tickets.
type TicketCreateRequest struct {
	ProjectID   string         `json:"projectId,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status,omitempty"`
	Priority    string         `json:"priority,omitempty"`
	TicketType  string         `json:"ticketType,omitempty"`
	Assignee    string         `json:"assignee,omitempty"`
	Points      *int           `json:"points,omitempty"`
	DependsOn   []string       `json:"dependsOn,omitempty"`
	Subtasks    []SubtaskInput `json:"subtasks,omitempty"`
}

// TicketUpdateRequest is the body of PATCH /tickets/{ticketId}. Status is
// accepted only so it can be refused with a pointer to the status endpoint.
type TicketUpdateRequest struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *string         `json:"status,omitempty"`
	Priority    *string         `json:"priority,omitempty"`
	TicketType  *string         `json:"ticketType,omitempty"`
	Assignee    *string         `json:"assignee,omitempty"`
	Points      *int            `json:"points,omitempty"`
	Archived    *bool           `json:"archived,omitempty"`
	DependsOn   *[]string       `json:"dependsOn,omitempty"`
	Subtasks    *[]SubtaskInput `json:"subtasks,omitempty"`
}

// SubtasksRequest is the body of PUT /tickets/{ticketId}/subtasks.
type SubtasksRequest struct {
	Subtasks []SubtaskInput `json:"subtasks"`
}

// DependentSummary lists a ticket that depends on the one being shown.
type DependentSummary struct {
	ID        string        `json:"_id"`
	Title     string        `json:"title"`
	Status    models.Status `json:"status"`
	BlockedBy bool          `json:"blockedBy"`
}

// TicketDetailResponse is a ticket with its dependents and recent activity.
type TicketDetailResponse struct {
	models.Ticket
	Dependents []DependentSummary `json:"dependents"`
	Activity   []models.Activity  `json:"activity"`
}

// ProjectCreateRequest is the body of POST /projects.
type ProjectCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MemberAddRequest is the body of POST /projects/{projectId}/members.
type MemberAddRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// ReconcileResponse reports what POST /admin/reconcile changed.
type ReconcileResponse struct {
	Checked   int                   `json:"checked"`
	Corrected []workflow.Correction `json:"corrected"`
}

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	DBPath        string         `json:"db_path,omitempty"`
	SchemaVersion int            `json:"schema_version"`
	Statuses      []string       `json:"statuses"`
	TicketCounts  map[string]int `json:"ticket_counts"`
	TotalTickets  int            `json:"total_tickets"`
}
