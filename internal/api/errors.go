package api

import (
	"fmt"
	"strings"

	"ticketd/internal/workflow"
)

// APIError is a structured error returned by the HTTP API.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
	Blockers  []workflow.Blocker
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if len(e.Blockers) > 0 {
		parts := make([]string, 0, len(e.Blockers))
		for _, b := range e.Blockers {
			parts = append(parts, fmt.Sprintf("%s (%s)", b.ID, b.Status))
		}
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(parts, ", "))
	}
	if e.Code != "" && msg != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg != "" {
		return msg
	}
	if e.Status > 0 {
		return fmt.Sprintf("api error: %d", e.Status)
	}
	return "api error"
}
