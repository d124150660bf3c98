package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticketd/internal/api"
	"ticketd/internal/models"
	"ticketd/internal/store"
)

// ProjectService manages projects and their members.
type ProjectService struct {
	store store.TicketStore
	now   func() time.Time
}

// NewProjectService constructs a ProjectService.
func NewProjectService(ticketStore store.TicketStore) *ProjectService {
	return &ProjectService{store: ticketStore, now: func() time.Time { return time.Now().UTC() }}
}

// Create creates a project. An authenticated creator becomes its ADMIN.
func (s *ProjectService) Create(ctx context.Context, req api.ProjectCreateRequest) (models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Project{}, badRequestCode(fmt.Errorf("name is required"), ErrCodeMissingRequired)
	}

	id, err := store.GenerateProjectID(s.store.ProjectExists)
	if err != nil {
		return models.Project{}, internalError(err)
	}

	now := s.now()
	project := models.Project{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		KeyPrefix:   models.KeyPrefix(name),
		CreatedAt:   now,
	}
	actor := actorFromContext(ctx)

	err = s.store.InTx(ctx, func(q store.Queries) error {
		if err := q.CreateProject(ctx, &project); err != nil {
			return storeFailure(err)
		}
		if actor == "" {
			return nil
		}
		if err := q.UpsertMember(ctx, &models.Member{
			ProjectID: id,
			UserID:    actor,
			Role:      models.RoleAdmin,
			AddedBy:   actor,
			AddedAt:   now,
		}); err != nil {
			return storeFailure(err)
		}
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// List returns every project.
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id string) (models.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, storeFailure(err)
	}
	if project == nil {
		return models.Project{}, notFoundCode(fmt.Errorf("project not found: %s", id), ErrCodeProjectNotFound)
	}
	return *project, nil
}

// AddMember grants userId a role in the project, replacing any previous role.
// Once a project has members, only its ADMINs and MANAGERs may grant roles.
func (s *ProjectService) AddMember(ctx context.Context, projectID string, req api.MemberAddRequest) (models.Member, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return models.Member{}, badRequestCode(fmt.Errorf("userId is required"), ErrCodeMissingRequired)
	}
	role, err := models.ParseMemberRole(req.Role)
	if err != nil {
		return models.Member{}, badRequestCode(err, ErrCodeInvalidRole)
	}

	actor := actorFromContext(ctx)
	member := models.Member{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		AddedBy:   actor,
		AddedAt:   s.now(),
	}
	err = s.store.InTx(ctx, func(q store.Queries) error {
		project, err := q.GetProject(ctx, projectID)
		if err != nil {
			return storeFailure(err)
		}
		if project == nil {
			return notFoundCode(fmt.Errorf("project not found: %s", projectID), ErrCodeProjectNotFound)
		}
		if err := authorizeMemberGrant(ctx, q, projectID, actor); err != nil {
			return err
		}
		if err := q.UpsertMember(ctx, &member); err != nil {
			return storeFailure(err)
		}
		return nil
	})
	if err != nil {
		return models.Member{}, err
	}
	return member, nil
}

// authorizeMemberGrant admits anyone into a project without members, and
// otherwise only its ADMINs and MANAGERs.
func authorizeMemberGrant(ctx context.Context, q store.Queries, projectID, actor string) error {
	members, err := q.ListMembers(ctx, projectID)
	if err != nil {
		return storeFailure(err)
	}
	if len(members) == 0 {
		return nil
	}
	denied := forbiddenCode(fmt.Errorf("only project ADMIN or MANAGER members may grant roles"), ErrCodeForbidden)
	if actor == "" {
		return denied
	}
	role, ok, err := q.MemberRole(ctx, projectID, actor)
	if err != nil {
		return storeFailure(err)
	}
	if !ok || (role != models.RoleAdmin && role != models.RoleManager) {
		return denied
	}
	return nil
}

// ListMembers returns the members of a project.
func (s *ProjectService) ListMembers(ctx context.Context, projectID string) ([]models.Member, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, projectID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if members == nil {
		members = []models.Member{}
	}
	return members, nil
}
