package store

import (
	"context"
	"database/sql"
	"fmt"

	"ticketd/internal/models"
)

// CreateProject inserts a project.
func (q *queries) CreateProject(ctx context.Context, project *models.Project) error {
	if project == nil {
		return fmt.Errorf("project is required")
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, key_prefix, created_at) VALUES (?, ?, ?, ?, ?)
	`, project.ID, project.Name, nullIfEmpty(project.Description), project.KeyPrefix, formatTime(project.CreatedAt))
	return err
}

// GetProject returns a project by id, or nil when unknown.
func (q *queries) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := q.q.QueryRowContext(ctx, "SELECT id, name, description, key_prefix, created_at FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListProjects returns all projects ordered by name.
func (q *queries) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT id, name, description, key_prefix, created_at FROM projects ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpsertMember adds a member or changes the role of an existing one.
func (q *queries) UpsertMember(ctx context.Context, member *models.Member) error {
	if member == nil {
		return fmt.Errorf("member is required")
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, added_by, added_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, user_id) DO UPDATE SET role = excluded.role
	`, member.ProjectID, member.UserID, string(member.Role), nullIfEmpty(member.AddedBy), formatTime(member.AddedAt))
	return err
}

// ListMembers returns the members of a project.
func (q *queries) ListMembers(ctx context.Context, projectID string) ([]models.Member, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT project_id, user_id, role, added_by, added_at
		FROM project_members WHERE project_id = ? ORDER BY user_id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Member{}
	for rows.Next() {
		var m models.Member
		var role, addedAt string
		var addedBy sql.NullString
		if err := rows.Scan(&m.ProjectID, &m.UserID, &role, &addedBy, &addedAt); err != nil {
			return nil, err
		}
		m.Role = models.MemberRole(role)
		m.AddedBy = addedBy.String
		if m.AddedAt, err = parseTime(addedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemberRole reports the role of userID in projectID.
func (q *queries) MemberRole(ctx context.Context, projectID, userID string) (models.MemberRole, bool, error) {
	var role string
	err := q.q.QueryRowContext(ctx, "SELECT role FROM project_members WHERE project_id = ? AND user_id = ?", projectID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return models.MemberRole(role), true, nil
}

func scanProject(scanner interface {
	Scan(dest ...any) error
}) (*models.Project, error) {
	var p models.Project
	var description sql.NullString
	var createdAt string
	if err := scanner.Scan(&p.ID, &p.Name, &description, &p.KeyPrefix, &createdAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}
