package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
)

// MetricsService produces the introspection snapshot: run and worker counts
// by status.
type MetricsService interface {
	Snapshot(ctx context.Context) (runCounts, workerCounts map[string]int64, err error)
}

type metricsService struct {
	db      *gorm.DB
	log     *logger.Logger
	runs    repos.JobRunRepo
	workers repos.WorkerRepo
}

func NewMetricsService(db *gorm.DB, baseLog *logger.Logger, runs repos.JobRunRepo, workers repos.WorkerRepo) MetricsService {
	return &metricsService{
		db:      db,
		log:     baseLog.With("service", "MetricsService"),
		runs:    runs,
		workers: workers,
	}
}

func (s *metricsService) Snapshot(ctx context.Context) (map[string]int64, map[string]int64, error) {
	runCounts, err := s.runs.CountByStatus(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	workerCounts, err := s.workers.CountByStatus(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return runCounts, workerCounts, nil
}
