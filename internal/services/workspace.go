package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

type WorkspaceCreateInput struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
}

type WorkspaceMemberInfo struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type WorkspaceService interface {
	// EnsureDefaults seeds the default workspace, admin user, and owner
	// membership on startup.
	EnsureDefaults(ctx context.Context) error
	ListForUser(ctx context.Context, userID string) ([]*types.Workspace, error)
	Create(ctx context.Context, input WorkspaceCreateInput, ownerUserID string) (*types.Workspace, error)
	Get(ctx context.Context, workspaceID string) (*types.Workspace, error)
	ListMembers(ctx context.Context, workspaceID string) ([]*WorkspaceMemberInfo, error)
}

type workspaceService struct {
	db         *gorm.DB
	log        *logger.Logger
	workspaces repos.WorkspaceRepo
	users      repos.UserRepo
}

func NewWorkspaceService(db *gorm.DB, baseLog *logger.Logger, workspaces repos.WorkspaceRepo, users repos.UserRepo) WorkspaceService {
	return &workspaceService{
		db:         db,
		log:        baseLog.With("service", "WorkspaceService"),
		workspaces: workspaces,
		users:      users,
	}
}

func (s *workspaceService) EnsureDefaults(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ws, err := s.workspaces.GetByID(ctx, tx, types.DefaultWorkspaceID)
		if err != nil {
			return err
		}
		if ws == nil {
			if _, err := s.workspaces.Create(ctx, tx, &types.Workspace{
				ID:          types.DefaultWorkspaceID,
				Name:        "Default",
				Slug:        "default",
				Description: "Default workspace",
			}); err != nil {
				return fmt.Errorf("seed default workspace: %w", err)
			}
		}

		admin, err := s.users.GetByID(ctx, tx, DefaultAdminUserID)
		if err != nil {
			return err
		}
		if admin == nil {
			if _, err := s.users.Create(ctx, tx, &types.User{
				ID:          DefaultAdminUserID,
				Username:    "admin",
				DisplayName: "Admin",
			}); err != nil {
				return fmt.Errorf("seed admin user: %w", err)
			}
		}

		member, err := s.workspaces.GetMember(ctx, tx, types.DefaultWorkspaceID, DefaultAdminUserID)
		if err != nil {
			return err
		}
		if member == nil {
			if err := s.workspaces.AddMember(ctx, tx, &types.WorkspaceMember{
				WorkspaceID: types.DefaultWorkspaceID,
				UserID:      DefaultAdminUserID,
				Role:        "owner",
			}); err != nil {
				return fmt.Errorf("seed admin membership: %w", err)
			}
		}

		s.log.Info("Default workspace and admin user ensured")
		return nil
	})
}

func (s *workspaceService) ListForUser(ctx context.Context, userID string) ([]*types.Workspace, error) {
	return s.workspaces.ListForUser(ctx, nil, userID)
}

func (s *workspaceService) Create(ctx context.Context, input WorkspaceCreateInput, ownerUserID string) (*types.Workspace, error) {
	var created *types.Workspace
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ws, err := s.workspaces.Create(ctx, tx, &types.Workspace{
			ID:          input.Slug,
			Name:        input.Name,
			Slug:        input.Slug,
			Description: input.Description,
		})
		if err != nil {
			return err
		}
		if err := s.workspaces.AddMember(ctx, tx, &types.WorkspaceMember{
			WorkspaceID: ws.ID,
			UserID:      ownerUserID,
			Role:        "owner",
		}); err != nil {
			return err
		}
		created = ws
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *workspaceService) Get(ctx context.Context, workspaceID string) (*types.Workspace, error) {
	return s.workspaces.GetByID(ctx, nil, workspaceID)
}

func (s *workspaceService) ListMembers(ctx context.Context, workspaceID string) ([]*WorkspaceMemberInfo, error) {
	members, err := s.workspaces.ListMembers(ctx, nil, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]*WorkspaceMemberInfo, 0, len(members))
	for _, m := range members {
		info := &WorkspaceMemberInfo{
			ID:          m.ID.String(),
			WorkspaceID: m.WorkspaceID,
			UserID:      m.UserID,
			Role:        m.Role,
		}
		user, err := s.users.GetByID(ctx, nil, m.UserID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			info.Username = user.Username
			info.DisplayName = user.DisplayName
		}
		out = append(out, info)
	}
	return out, nil
}
