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

type RunFilter struct {
	JobDefinitionID *uuid.UUID
	Status          string
}

type JobRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.JobRun) (*types.JobRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.JobRun, error)
	ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string, filter RunFilter) ([]*types.JobRun, error)
	// ListDispatchable returns queued runs in the workspace whose scheduled_at
	// has elapsed, oldest first (created_at, id).
	ListDispatchable(ctx context.Context, tx *gorm.DB, workspaceID string, now time.Time) ([]*types.JobRun, error)
	// ClaimQueued performs the conditional queued->assigned transition and
	// reports whether this caller won the claim.
	ClaimQueued(ctx context.Context, tx *gorm.DB, runID, workerID uuid.UUID, now time.Time) (bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	// ListOverdue returns assigned/running runs whose timeout has elapsed.
	ListOverdue(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.JobRun, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{db: db, log: baseLog.With("repo", "JobRunRepo")}
}

func (r *jobRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.JobRun) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = types.RunStatusQueued
	}
	if run.AttemptNumber == 0 {
		run.AttemptNumber = 1
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("id = ?", id)
	if workspaceID != "" {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	var run types.JobRun
	err := q.First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *jobRunRepo) ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string, filter RunFilter) ([]*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC")
	if filter.JobDefinitionID != nil {
		q = q.Where("job_definition_id = ?", *filter.JobDefinitionID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var out []*types.JobRun
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunRepo) ListDispatchable(ctx context.Context, tx *gorm.DB, workspaceID string, now time.Time) ([]*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobRun
	err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND status = ?", workspaceID, types.RunStatusQueued).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunRepo) ClaimQueued(ctx context.Context, tx *gorm.DB, runID, workerID uuid.UUID, now time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", runID, types.RunStatusQueued).
		Updates(map[string]interface{}{
			"status":     types.RunStatusAssigned,
			"worker_id":  workerID,
			"started_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) ListOverdue(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var candidates []*types.JobRun
	err := transaction.WithContext(ctx).
		Where("status IN ?", []string{types.RunStatusAssigned, types.RunStatusRunning}).
		Where("started_at IS NOT NULL").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	var out []*types.JobRun
	for _, run := range candidates {
		deadline := run.StartedAt.Add(time.Duration(run.TimeoutSeconds) * time.Second)
		if now.After(deadline) {
			out = append(out, run)
		}
	}
	return out, nil
}

func (r *jobRunRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Select("status, count(id) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
