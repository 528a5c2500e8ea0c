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

type CredentialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cred *types.Credential) (*types.Credential, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Credential, error)
	GetByNames(ctx context.Context, tx *gorm.DB, workspaceID string, names []string) ([]*types.Credential, error)
	ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.Credential, error)
	Save(ctx context.Context, tx *gorm.DB, cred *types.Credential) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error)
}

type credentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCredentialRepo(db *gorm.DB, baseLog *logger.Logger) CredentialRepo {
	return &credentialRepo{db: db, log: baseLog.With("repo", "CredentialRepo")}
}

func (r *credentialRepo) Create(ctx context.Context, tx *gorm.DB, cred *types.Credential) (*types.Credential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	now := time.Now().UTC()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(cred).Error; err != nil {
		return nil, err
	}
	return cred, nil
}

func (r *credentialRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Credential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("id = ?", id)
	if workspaceID != "" {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	var cred types.Credential
	err := q.First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepo) GetByNames(ctx context.Context, tx *gorm.DB, workspaceID string, names []string) ([]*types.Credential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Credential
	if len(names) == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND name IN ?", workspaceID, names).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *credentialRepo) ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.Credential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Credential
	err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *credentialRepo) Save(ctx context.Context, tx *gorm.DB, cred *types.Credential) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cred.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Save(cred).Error
}

func (r *credentialRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Delete(&types.Credential{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
