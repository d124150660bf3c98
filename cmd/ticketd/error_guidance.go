package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"ticketd/internal/api"
)

// Numeric API error codes the CLI has extra guidance for.
const (
	apiErrCodeStatusNotEditable = 1016
	apiErrCodeDoneNotPermitted  = 3004
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "dependency_blocked":
			for _, b := range apiErr.Blockers {
				lines = append(lines, fmt.Sprintf("hint: finish %s (%s) first, it is %s.", b.ID, b.Title, b.Status))
			}
		case "dependency_cycle":
			lines = append(lines, "hint: a ticket cannot depend on itself through other tickets; inspect with: ticketd show <id>")
		case "unauthorized":
			lines = append(lines, "hint: set TICKETD_API_TOKEN to a bearer token the server accepts.")
		case "forbidden":
			if apiErr.ErrorCode == apiErrCodeDoneNotPermitted {
				lines = append(lines, "hint: only members with a workflow.done_roles role may move tickets to Done.")
			} else {
				lines = append(lines, "hint: verify TICKETD_API_TOKEN and TICKETD_ADMIN_TOKEN configuration.")
			}
		case "resource_exhausted":
			lines = append(lines, "hint: too many failed admin attempts; wait before retrying.")
		}
		if apiErr.ErrorCode == apiErrCodeStatusNotEditable {
			lines = append(lines, "hint: change status with: ticketd status <id> <status>")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify TICKETD_API_URL points to a ticketd server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase TICKETD_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a ticketd server is running at TICKETD_API_URL.",
			"hint: start a local server manually with: ticketd srv",
		)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
