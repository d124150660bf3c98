package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ticketd/internal/models"
)

const ticketColumns = `id, project_id, ticket_key, title, description, status, priority, ticket_type,
	assignee, points, blocked_by, flagged_by_dependencies, deleted, archived, created_at, updated_at`

const defaultListLimit = 100

// CreateTicket inserts a ticket with its dependencies and subtasks.
func (q *queries) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket == nil {
		return fmt.Errorf("ticket is required")
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO tickets (
			id, project_id, ticket_key, title, description, status, priority, ticket_type,
			assignee, points, blocked_by, flagged_by_dependencies, deleted, archived, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ticket.ID,
		nullIfEmpty(ticket.ProjectID),
		nullIfEmpty(ticket.TicketKey),
		ticket.Title,
		nullIfEmpty(ticket.Description),
		string(ticket.Status),
		string(ticket.Priority),
		string(ticket.TicketType),
		nullIfEmpty(ticket.Assignee),
		ticket.Points,
		ticket.BlockedBy,
		ticket.FlaggedByDependencies,
		ticket.Deleted,
		ticket.Archived,
		formatTime(ticket.CreatedAt),
		formatTime(ticket.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if err := q.insertDeps(ctx, ticket.ID, ticket.DependsOn); err != nil {
		return err
	}
	return q.insertSubtasks(ctx, ticket.ID, ticket.Subtasks)
}

// GetTicket returns a ticket by id, including deleted ones. It returns nil
// when the id is unknown.
func (q *queries) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id)
	ticket, err := scanTicket(row)
	if err != nil || ticket == nil {
		return ticket, err
	}

	tickets := []models.Ticket{*ticket}
	if err := q.hydrate(ctx, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

// UpdateTicket updates mutable fields on a ticket. DependsOn and Subtasks
// replace the stored lists wholesale.
func (q *queries) UpdateTicket(ctx context.Context, id string, update TicketUpdate) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}

	set := []string{}
	args := []any{}

	if update.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		set = append(set, "description = ?")
		args = append(args, nullIfEmpty(*update.Description))
	}
	if update.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.Priority != nil {
		set = append(set, "priority = ?")
		args = append(args, string(*update.Priority))
	}
	if update.TicketType != nil {
		set = append(set, "ticket_type = ?")
		args = append(args, string(*update.TicketType))
	}
	if update.Assignee != nil {
		set = append(set, "assignee = ?")
		args = append(args, nullIfEmpty(*update.Assignee))
	}
	if update.Points != nil {
		set = append(set, "points = ?")
		args = append(args, *update.Points)
	}
	if update.Archived != nil {
		set = append(set, "archived = ?")
		args = append(args, *update.Archived)
	}
	if update.BlockedBy != nil {
		set = append(set, "blocked_by = ?")
		args = append(args, *update.BlockedBy)
	}

	set = append(set, "updated_at = ?")
	args = append(args, formatTime(update.UpdatedAt))

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id = ?", strings.Join(set, ", "))
	if _, err := q.q.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if update.DependsOn != nil {
		if _, err := q.q.ExecContext(ctx, "DELETE FROM ticket_deps WHERE ticket_id = ?", id); err != nil {
			return err
		}
		if err := q.insertDeps(ctx, id, *update.DependsOn); err != nil {
			return err
		}
	}
	if update.Subtasks != nil {
		if _, err := q.q.ExecContext(ctx, "DELETE FROM ticket_subtasks WHERE ticket_id = ?", id); err != nil {
			return err
		}
		if err := q.insertSubtasks(ctx, id, *update.Subtasks); err != nil {
			return err
		}
	}
	return nil
}

// SoftDeleteTicket marks a ticket deleted. It reports false when no live
// ticket matched.
func (q *queries) SoftDeleteTicket(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := q.q.ExecContext(ctx, "UPDATE tickets SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0", formatTime(at), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListTickets returns tickets matching the filter, newest update first.
// Deleted and archived tickets are hidden unless IncludeDeleted is set.
func (q *queries) ListTickets(ctx context.Context, filter ListFilter) ([]models.Ticket, error) {
	query, args := buildListQuery(filter)

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := q.hydrate(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func buildListQuery(filter ListFilter) (string, []any) {
	where := []string{}
	args := []any{}

	if !filter.IncludeDeleted {
		where = append(where, "deleted = 0", "archived = 0")
	}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if filter.Assignee != "" {
		where = append(where, "assignee = ?")
		args = append(args, filter.Assignee)
	}

	query := "SELECT " + ticketColumns + " FROM tickets"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	return query, args
}

// hydrate attaches dependsOn and subtasks to tickets in two batch reads.
func (q *queries) hydrate(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}

	deps, err := q.ListDependsOn(ctx, ids)
	if err != nil {
		return err
	}
	subtasks, err := q.listSubtasks(ctx, ids)
	if err != nil {
		return err
	}

	for i := range tickets {
		tickets[i].DependsOn = deps[tickets[i].ID]
		if tickets[i].DependsOn == nil {
			tickets[i].DependsOn = []string{}
		}
		tickets[i].Subtasks = subtasks[tickets[i].ID]
		if tickets[i].Subtasks == nil {
			tickets[i].Subtasks = []models.Subtask{}
		}
	}
	return nil
}

func (q *queries) insertDeps(ctx context.Context, ticketID string, dependsOn []string) error {
	if len(dependsOn) == 0 {
		return nil
	}
	values := make([]string, len(dependsOn))
	args := make([]any, 0, len(dependsOn)*2)
	for i, depID := range dependsOn {
		values[i] = "(?, ?)"
		args = append(args, ticketID, depID)
	}
	_, err := q.q.ExecContext(ctx, "INSERT OR IGNORE INTO ticket_deps (ticket_id, depends_on_id) VALUES "+strings.Join(values, ","), args...)
	return err
}

func (q *queries) insertSubtasks(ctx context.Context, ticketID string, subtasks []models.Subtask) error {
	if len(subtasks) == 0 {
		return nil
	}
	values := make([]string, len(subtasks))
	args := make([]any, 0, len(subtasks)*8)
	for i, st := range subtasks {
		values[i] = "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			ticketID,
			i,
			st.ID,
			st.Title,
			nullIfEmpty(string(st.Status)),
			nullIfEmpty(st.Assignee),
			nullTime(st.DueDate),
			formatTime(st.CreatedAt),
		)
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO ticket_subtasks (ticket_id, position, id, title, status, assignee, due_date, created_at)
		VALUES `+strings.Join(values, ","), args...)
	return err
}

func (q *queries) listSubtasks(ctx context.Context, ticketIDs []string) (map[string][]models.Subtask, error) {
	result := map[string][]models.Subtask{}
	if len(ticketIDs) == 0 {
		return result, nil
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT ticket_id, id, title, status, assignee, due_date, created_at
		FROM ticket_subtasks WHERE ticket_id IN (`+placeholders(len(ticketIDs))+`)
		ORDER BY ticket_id, position
	`, stringArgs(ticketIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ticketID, createdAt string
		var status, assignee, dueDate sql.NullString
		var st models.Subtask
		if err := rows.Scan(&ticketID, &st.ID, &st.Title, &status, &assignee, &dueDate, &createdAt); err != nil {
			return nil, err
		}
		st.Status = models.Status(status.String)
		st.Assignee = assignee.String
		if st.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if dueDate.Valid {
			due, err := parseTime(dueDate.String)
			if err != nil {
				return nil, err
			}
			st.DueDate = &due
		}
		result[ticketID] = append(result[ticketID], st)
	}
	return result, rows.Err()
}

func scanTicket(scanner interface {
	Scan(dest ...any) error
}) (*models.Ticket, error) {
	var ticket models.Ticket
	var projectID, ticketKey, description, assignee sql.NullString
	var status, priority, ticketType string
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&ticket.ID,
		&projectID,
		&ticketKey,
		&ticket.Title,
		&description,
		&status,
		&priority,
		&ticketType,
		&assignee,
		&ticket.Points,
		&ticket.BlockedBy,
		&ticket.FlaggedByDependencies,
		&ticket.Deleted,
		&ticket.Archived,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	ticket.ProjectID = projectID.String
	ticket.TicketKey = ticketKey.String
	ticket.Description = description.String
	ticket.Assignee = assignee.String
	ticket.Status = models.Status(status)
	ticket.Priority = models.Priority(priority)
	ticket.TicketType = models.TicketType(ticketType)

	var err error
	if ticket.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ticket.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
