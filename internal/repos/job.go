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

type JobDefinitionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.JobDefinition) (*types.JobDefinition, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.JobDefinition, error)
	ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.JobDefinition, error)
	Save(ctx context.Context, tx *gorm.DB, job *types.JobDefinition) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error)
}

type jobDefinitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) JobDefinitionRepo {
	return &jobDefinitionRepo{db: db, log: baseLog.With("repo", "JobDefinitionRepo")}
}

func (r *jobDefinitionRepo) Create(ctx context.Context, tx *gorm.DB, job *types.JobDefinition) (*types.JobDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobDefinitionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.JobDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("id = ?", id)
	if workspaceID != "" {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	var job types.JobDefinition
	err := q.First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobDefinitionRepo) ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.JobDefinition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobDefinition
	err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobDefinitionRepo) Save(ctx context.Context, tx *gorm.DB, job *types.JobDefinition) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	job.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Save(job).Error
}

func (r *jobDefinitionRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Delete(&types.JobDefinition{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
