package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

type JobLogRepo interface {
	// AppendBatch persists a batch of lines. Conflicting sequences are
	// last-writer-wins so a retried worker batch stays idempotent.
	AppendBatch(ctx context.Context, tx *gorm.DB, logs []*types.JobLog) error
	ListAfter(ctx context.Context, tx *gorm.DB, runID uuid.UUID, afterSequence int) ([]*types.JobLog, error)
	CountForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (int64, error)
}

type jobLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobLogRepo(db *gorm.DB, baseLog *logger.Logger) JobLogRepo {
	return &jobLogRepo{db: db, log: baseLog.With("repo", "JobLogRepo")}
}

func (r *jobLogRepo) AppendBatch(ctx context.Context, tx *gorm.DB, logs []*types.JobLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(logs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		if l.Stream == "" {
			l.Stream = types.LogStreamStdout
		}
		l.CreatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "sequence"}},
			DoUpdates: clause.AssignmentColumns([]string{"stream", "line"}),
		}).
		Create(&logs).Error
}

func (r *jobLogRepo) ListAfter(ctx context.Context, tx *gorm.DB, runID uuid.UUID, afterSequence int) ([]*types.JobLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobLog
	err := transaction.WithContext(ctx).
		Where("run_id = ? AND sequence > ?", runID, afterSequence).
		Order("sequence ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobLogRepo) CountForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).
		Model(&types.JobLog{}).
		Where("run_id = ?", runID).
		Count(&n).Error
	return n, err
}
