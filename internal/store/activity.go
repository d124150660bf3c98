package store

import (
	"context"
	"database/sql"
	"fmt"

	"ticketd/internal/models"
)

const defaultActivityLimit = 50

// AppendActivity records an audit entry and sets its id.
func (q *queries) AppendActivity(ctx context.Context, activity *models.Activity) error {
	if activity == nil {
		return fmt.Errorf("activity is required")
	}
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO ticket_activity (ticket_id, author, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		activity.TicketID,
		nullIfEmpty(activity.Author),
		activity.Action,
		nullIfEmpty(activity.Details),
		formatTime(activity.CreatedAt),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	activity.ID = id
	return nil
}

// ListActivity returns the most recent entries for a ticket, newest first.
func (q *queries) ListActivity(ctx context.Context, ticketID string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, ticket_id, author, action, details, created_at
		FROM ticket_activity WHERE ticket_id = ?
		ORDER BY id DESC LIMIT ?
	`, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		var author, details sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.TicketID, &author, &a.Action, &details, &createdAt); err != nil {
			return nil, err
		}
		a.Author = author.String
		a.Details = details.String
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
