package models

import "time"

// Project groups tickets and owns the ticket key prefix.
type Project struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	KeyPrefix   string    `json:"keyPrefix"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Member grants a user a role inside a project.
type Member struct {
	ProjectID string     `json:"projectId"`
	UserID    string     `json:"userId"`
	Role      MemberRole `json:"role"`
	AddedBy   string     `json:"addedBy,omitempty"`
	AddedAt   time.Time  `json:"addedAt"`
}
