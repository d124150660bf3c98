package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ticketd/internal/api"
	"ticketd/internal/format"
	"ticketd/internal/models"
)

var (
	jsonFormatter  format.Formatter = format.JSONFormatter{Indent: true}
	tableFormatter format.Formatter = format.TableFormatter{}
)

func writeJSON(payload any) error {
	return jsonFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeTicketList(tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return writePlain("no tickets\n")
	}
	table := format.Table{Header: []string{"ID", "KEY", "STATUS", "FLAGS", "PRIORITY", "TITLE"}}
	for _, t := range tickets {
		table.Rows = append(table.Rows, []string{
			t.ID, dash(t.TicketKey), string(t.Status), ticketFlags(t), string(t.Priority), t.Title,
		})
	}
	return tableFormatter.Write(os.Stdout, table)
}

func writeTicketDetail(detail api.TicketDetailResponse) error {
	t := detail.Ticket
	lines := []string{
		fmt.Sprintf("id: %s", t.ID),
		fmt.Sprintf("title: %s", t.Title),
		fmt.Sprintf("status: %s", t.Status),
		fmt.Sprintf("priority: %s", t.Priority),
		fmt.Sprintf("type: %s", t.TicketType),
		fmt.Sprintf("points: %d", t.Points),
		fmt.Sprintf("created_at: %s", formatTime(t.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(t.UpdatedAt)),
	}
	if t.TicketKey != "" {
		lines = append(lines, fmt.Sprintf("key: %s", t.TicketKey))
	}
	if t.ProjectID != "" {
		lines = append(lines, fmt.Sprintf("project: %s", t.ProjectID))
	}
	if t.Assignee != "" {
		lines = append(lines, fmt.Sprintf("assignee: %s", t.Assignee))
	}
	if flags := ticketFlags(t); flags != "-" {
		lines = append(lines, fmt.Sprintf("flags: %s", flags))
	}
	if t.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", t.Description))
	}
	if len(t.DependsOn) > 0 {
		lines = append(lines, fmt.Sprintf("depends_on: %s", strings.Join(t.DependsOn, ", ")))
	}
	if len(detail.Dependents) > 0 {
		lines = append(lines, "dependents:")
		for _, d := range detail.Dependents {
			lines = append(lines, fmt.Sprintf("  - %s [%s] %s", d.ID, d.Status, d.Title))
		}
	}
	if len(t.Subtasks) > 0 {
		lines = append(lines, "subtasks:")
		for _, st := range t.Subtasks {
			status := st.Status
			if status == "" {
				status = models.StatusBacklog
			}
			lines = append(lines, fmt.Sprintf("  - [%s] %s", status, st.Title))
		}
	}
	if len(detail.Activity) > 0 {
		lines = append(lines, "activity:")
		for _, a := range detail.Activity {
			lines = append(lines, "  "+formatActivityLine(a))
		}
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeActivity(entries []models.Activity) error {
	for _, a := range entries {
		if err := writePlain("%s\n", formatActivityLine(a)); err != nil {
			return err
		}
	}
	return nil
}

func writeProjectList(projects []models.Project) error {
	table := format.Table{Header: []string{"ID", "PREFIX", "NAME"}}
	for _, p := range projects {
		table.Rows = append(table.Rows, []string{p.ID, p.KeyPrefix, p.Name})
	}
	return tableFormatter.Write(os.Stdout, table)
}

func writeMemberList(members []models.Member) error {
	table := format.Table{Header: []string{"USER", "ROLE", "ADDED"}}
	for _, m := range members {
		table.Rows = append(table.Rows, []string{m.UserID, string(m.Role), formatTime(m.AddedAt)})
	}
	return tableFormatter.Write(os.Stdout, table)
}

func ticketFlags(t models.Ticket) string {
	var flags []string
	if t.BlockedBy {
		flags = append(flags, "blocked-by-deps")
	}
	if t.FlaggedByDependencies {
		flags = append(flags, "dep-reopened")
	}
	if t.Archived {
		flags = append(flags, "archived")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func formatActivityLine(a models.Activity) string {
	author := a.Author
	if author == "" {
		author = "anonymous"
	}
	line := fmt.Sprintf("%s %s %s", formatTime(a.CreatedAt), author, a.Action)
	if a.Details != "" {
		line += ": " + a.Details
	}
	return line
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
