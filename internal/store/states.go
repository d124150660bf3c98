package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"ticketd/internal/models"
)

const stateColumns = "id, project_id, title, status, blocked_by, flagged_by_dependencies, deleted"

// GetTicketState loads the workflow projection of one ticket. It returns nil
// when the id is unknown.
func (q *queries) GetTicketState(ctx context.Context, id string) (*models.TicketState, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+stateColumns+" FROM tickets WHERE id = ?", id)
	st, err := scanState(row)
	if err != nil || st == nil {
		return st, err
	}
	deps, err := q.ListDependsOn(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	st.DependsOn = deps[id]
	return st, nil
}

// ListTicketStates batch-loads projections keyed by id. Unknown ids are
// absent from the result.
func (q *queries) ListTicketStates(ctx context.Context, ids []string) (map[string]models.TicketState, error) {
	result := map[string]models.TicketState{}
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := q.q.QueryContext(ctx,
		"SELECT "+stateColumns+" FROM tickets WHERE id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	return q.collectStates(ctx, rows)
}

// ListDependents returns the live tickets whose dependsOn contains id.
func (q *queries) ListDependents(ctx context.Context, id string) ([]models.TicketState, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT t.id, t.project_id, t.title, t.status, t.blocked_by, t.flagged_by_dependencies, t.deleted
		FROM tickets t
		JOIN ticket_deps d ON d.ticket_id = t.id
		WHERE d.depends_on_id = ? AND t.deleted = 0
		ORDER BY t.id
	`, id)
	if err != nil {
		return nil, err
	}
	states, err := q.collectStates(ctx, rows)
	if err != nil {
		return nil, err
	}
	out := make([]models.TicketState, 0, len(states))
	for _, st := range states {
		out = append(out, st)
	}
	sortStates(out)
	return out, nil
}

// AllTicketStates loads every projection, deleted tickets included.
func (q *queries) AllTicketStates(ctx context.Context) (map[string]models.TicketState, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT "+stateColumns+" FROM tickets")
	if err != nil {
		return nil, err
	}
	return q.collectStates(ctx, rows)
}

// ListDependsOn returns the dependsOn list of each id.
func (q *queries) ListDependsOn(ctx context.Context, ids []string) (map[string][]string, error) {
	result := map[string][]string{}
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT ticket_id, depends_on_id FROM ticket_deps
		WHERE ticket_id IN (`+placeholders(len(ids))+`)
		ORDER BY ticket_id, depends_on_id
	`, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ticketID, dependsOnID string
		if err := rows.Scan(&ticketID, &dependsOnID); err != nil {
			return nil, err
		}
		result[ticketID] = append(result[ticketID], dependsOnID)
	}
	return result, rows.Err()
}

// SetFlags writes blockedBy and/or flaggedByDependencies on ids in one statement.
func (q *queries) SetFlags(ctx context.Context, ids []string, update FlagUpdate) error {
	if len(ids) == 0 {
		return nil
	}
	set := []string{}
	args := []any{}
	if update.BlockedBy != nil {
		set = append(set, "blocked_by = ?")
		args = append(args, *update.BlockedBy)
	}
	if update.FlaggedByDependencies != nil {
		set = append(set, "flagged_by_dependencies = ?")
		args = append(args, *update.FlaggedByDependencies)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at = ?")
	args = append(args, formatTime(update.UpdatedAt))
	args = append(args, stringArgs(ids)...)

	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id IN (%s)", strings.Join(set, ", "), placeholders(len(ids)))
	_, err := q.q.ExecContext(ctx, query, args...)
	return err
}

// SetStatus writes the status of a live ticket. It reports false when the
// ticket vanished or was deleted.
func (q *queries) SetStatus(ctx context.Context, id string, status models.Status, at time.Time) (bool, error) {
	res, err := q.q.ExecContext(ctx,
		"UPDATE tickets SET status = ?, updated_at = ? WHERE id = ? AND deleted = 0",
		string(status), formatTime(at), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NextTicketKey allocates the next PREFIX-NNN key.
func (q *queries) NextTicketKey(ctx context.Context, prefix string) (string, error) {
	var next int
	err := q.q.QueryRowContext(ctx, `
		INSERT INTO ticket_key_counters (prefix, last_number) VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET last_number = last_number + 1
		RETURNING last_number
	`, prefix).Scan(&next)
	if err != nil {
		return "", err
	}
	return models.FormatTicketKey(prefix, next)
}

func (q *queries) collectStates(ctx context.Context, rows *sql.Rows) (map[string]models.TicketState, error) {
	defer rows.Close()

	result := map[string]models.TicketState{}
	var ids []string
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		result[st.ID] = *st
		ids = append(ids, st.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	deps, err := q.ListDependsOn(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, st := range result {
		st.DependsOn = deps[id]
		result[id] = st
	}
	return result, nil
}

func scanState(scanner interface {
	Scan(dest ...any) error
}) (*models.TicketState, error) {
	var st models.TicketState
	var projectID sql.NullString
	var status string
	if err := scanner.Scan(&st.ID, &projectID, &st.Title, &status, &st.BlockedBy, &st.FlaggedByDependencies, &st.Deleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	st.ProjectID = projectID.String
	st.Status = models.Status(status)
	return &st, nil
}

func sortStates(states []models.TicketState) {
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
}
