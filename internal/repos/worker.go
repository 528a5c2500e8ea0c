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

type WorkerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, worker *types.Worker) (*types.Worker, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Worker, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Worker, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	// ReapStale flips online/busy workers whose heartbeat predates the cutoff
	// to offline, returning how many were reaped.
	ReapStale(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type workerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerRepo(db *gorm.DB, baseLog *logger.Logger) WorkerRepo {
	return &workerRepo{db: db, log: baseLog.With("repo", "WorkerRepo")}
}

func (r *workerRepo) Create(ctx context.Context, tx *gorm.DB, worker *types.Worker) (*types.Worker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if worker.ID == uuid.Nil {
		worker.ID = uuid.New()
	}
	now := time.Now().UTC()
	worker.CreatedAt = now
	worker.UpdatedAt = now
	worker.LastHeartbeat = now
	if worker.Status == "" {
		worker.Status = types.WorkerStatusOnline
	}
	if err := transaction.WithContext(ctx).Create(worker).Error; err != nil {
		return nil, err
	}
	return worker, nil
}

func (r *workerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, workspaceID string) (*types.Worker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("id = ?", id)
	if workspaceID != "" {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	var worker types.Worker
	err := q.First(&worker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Worker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Worker
	err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workerRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Worker{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *workerRepo) ReapStale(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Worker{}).
		Where("status IN ? AND last_heartbeat < ?", []string{types.WorkerStatusOnline, types.WorkerStatusBusy}, cutoff).
		Updates(map[string]interface{}{
			"status":     types.WorkerStatusOffline,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *workerRepo) CountByStatus(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
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
		Model(&types.Worker{}).
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
