package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

type WorkspaceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, workspace *types.Workspace) (*types.Workspace, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Workspace, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID string) ([]*types.Workspace, error)
	AddMember(ctx context.Context, tx *gorm.DB, member *types.WorkspaceMember) error
	GetMember(ctx context.Context, tx *gorm.DB, workspaceID, userID string) (*types.WorkspaceMember, error)
	ListMembers(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.WorkspaceMember, error)
}

type workspaceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkspaceRepo(db *gorm.DB, baseLog *logger.Logger) WorkspaceRepo {
	return &workspaceRepo{db: db, log: baseLog.With("repo", "WorkspaceRepo")}
}

func (r *workspaceRepo) Create(ctx context.Context, tx *gorm.DB, workspace *types.Workspace) (*types.Workspace, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	workspace.CreatedAt = now
	workspace.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(workspace).Error; err != nil {
		return nil, err
	}
	return workspace, nil
}

func (r *workspaceRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Workspace, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var workspace types.Workspace
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &workspace, nil
}

func (r *workspaceRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID string) ([]*types.Workspace, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Workspace
	err := transaction.WithContext(ctx).
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspace_members.user_id = ?", userID).
		Order("workspaces.name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workspaceRepo) AddMember(ctx context.Context, tx *gorm.DB, member *types.WorkspaceMember) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	member.CreatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Create(member).Error
}

func (r *workspaceRepo) GetMember(ctx context.Context, tx *gorm.DB, workspaceID, userID string) (*types.WorkspaceMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var member types.WorkspaceMember
	err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *workspaceRepo) ListMembers(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.WorkspaceMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WorkspaceMember
	err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
