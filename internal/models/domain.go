package models

import (
	"fmt"
	"strings"
)

// Status defines allowed lifecycle states for tickets and subtasks.
type Status string

const (
	StatusBacklog Status = "Backlog"
	StatusOngoing Status = "Ongoing"
	StatusBlocked Status = "Blocked"
	StatusQA      Status = "QA"
	StatusDone    Status = "Done"
)

// Priority defines allowed ticket priorities.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// TicketType defines allowed ticket categories.
type TicketType string

const (
	TypeBug         TicketType = "bug"
	TypeFeature     TicketType = "feature"
	TypeEnhancement TicketType = "enhancement"
	TypeTask        TicketType = "task"
)

// MemberRole defines project membership roles.
type MemberRole string

const (
	RoleAdmin   MemberRole = "ADMIN"
	RoleManager MemberRole = "MANAGER"
	RoleQA      MemberRole = "QA"
	RoleMember  MemberRole = "MEMBER"
)

const (
	DefaultPriority   = PriorityMedium
	DefaultTicketType = TypeTask
	DefaultStatus     = StatusBacklog
	DefaultMemberRole = RoleMember

	TitleMaxLength = 200
)

var canonicalStatuses = map[string]Status{
	"backlog": StatusBacklog,
	"ongoing": StatusOngoing,
	"blocked": StatusBlocked,
	"qa":      StatusQA,
	"done":    StatusDone,
}

var validPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

var validTicketTypes = map[TicketType]struct{}{
	TypeBug:         {},
	TypeFeature:     {},
	TypeEnhancement: {},
	TypeTask:        {},
}

var validMemberRoles = map[MemberRole]struct{}{
	RoleAdmin:   {},
	RoleManager: {},
	RoleQA:      {},
	RoleMember:  {},
}

// ParseStatus accepts any casing and returns the canonical status.
func ParseStatus(raw string) (Status, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("status is required")
	}
	status, ok := canonicalStatuses[strings.ToLower(value)]
	if !ok {
		return "", fmt.Errorf("invalid status: %s", value)
	}
	return status, nil
}

// IsActive reports whether entering the status is gated on dependencies.
func (s Status) IsActive() bool {
	switch canonicalStatuses[strings.ToLower(string(s))] {
	case StatusOngoing, StatusBlocked, StatusQA:
		return true
	default:
		return false
	}
}

// IsDone compares case-insensitively so rows written before canonicalization still resolve.
func (s Status) IsDone() bool {
	return strings.EqualFold(string(s), string(StatusDone))
}

// Is reports whether two statuses name the same state.
func (s Status) Is(other Status) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), strings.TrimSpace(string(other)))
}

// Canonical returns the canonical casing, or the empty string for unknown values.
func (s Status) Canonical() Status {
	return canonicalStatuses[strings.ToLower(strings.TrimSpace(string(s)))]
}

func ParsePriority(raw string) (Priority, error) {
	value := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return DefaultPriority, nil
	}
	if _, ok := validPriorities[value]; !ok {
		return "", fmt.Errorf("invalid priority: %s", value)
	}
	return value, nil
}

func ParseTicketType(raw string) (TicketType, error) {
	value := TicketType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return DefaultTicketType, nil
	}
	if _, ok := validTicketTypes[value]; !ok {
		return "", fmt.Errorf("invalid ticket type: %s", value)
	}
	return value, nil
}

func ParseMemberRole(raw string) (MemberRole, error) {
	value := MemberRole(strings.ToUpper(strings.TrimSpace(raw)))
	if value == "" {
		return DefaultMemberRole, nil
	}
	if _, ok := validMemberRoles[value]; !ok {
		return "", fmt.Errorf("invalid role: %s", value)
	}
	return value, nil
}

// StatusStrings lists the canonical statuses in lifecycle order.
func StatusStrings() []string {
	return []string{
		string(StatusBacklog),
		string(StatusOngoing),
		string(StatusBlocked),
		string(StatusQA),
		string(StatusDone),
	}
}
