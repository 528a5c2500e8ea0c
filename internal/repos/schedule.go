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

type ScheduleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) (*types.Schedule, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Schedule, error)
	ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.Schedule, error)
	// ListEnabled is workspace-agnostic: the scheduler tick fires schedules
	// across every workspace.
	ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.Schedule, error)
	ListDue(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Schedule, error)
	Save(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error)
}

type scheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ScheduleRepo {
	return &scheduleRepo{db: db, log: baseLog.With("repo", "ScheduleRepo")}
}

func (r *scheduleRepo) Create(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) (*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	if err := transaction.WithContext(ctx).Create(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("id = ?", id)
	if workspaceID != "" {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	var schedule types.Schedule
	err := q.First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID string) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Schedule
	err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scheduleRepo) ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Schedule
	err := transaction.WithContext(ctx).
		Where("enabled = ?", true).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scheduleRepo) ListDue(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Schedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Schedule
	err := transaction.WithContext(ctx).
		Where("enabled = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scheduleRepo) Save(ctx context.Context, tx *gorm.DB, schedule *types.Schedule) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	schedule.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Save(schedule).Error
}

func (r *scheduleRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Delete(&types.Schedule{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
