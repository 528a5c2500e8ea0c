package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

type WorkerRegisterInput struct {
	Name   string            `json:"name" binding:"required"`
	Labels map[string]string `json:"labels"`
}

type WorkerService interface {
	Register(ctx context.Context, input WorkerRegisterInput, workspaceID string) (*types.Worker, error)
	// Heartbeat refreshes liveness and returns whether the worker's current
	// run has been cancelled server-side, so the worker can stop early.
	Heartbeat(ctx context.Context, workerID uuid.UUID, status string) (*types.Worker, bool, error)
	// List returns all workers, lazily reaping stale ones first.
	List(ctx context.Context) ([]*types.Worker, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type workerService struct {
	db               *gorm.DB
	log              *logger.Logger
	workers          repos.WorkerRepo
	runs             repos.JobRunRepo
	heartbeatTimeout time.Duration
}

func NewWorkerService(db *gorm.DB, baseLog *logger.Logger, workers repos.WorkerRepo, runs repos.JobRunRepo, heartbeatTimeout time.Duration) WorkerService {
	return &workerService{
		db:               db,
		log:              baseLog.With("service", "WorkerService"),
		workers:          workers,
		runs:             runs,
		heartbeatTimeout: heartbeatTimeout,
	}
}

func (s *workerService) Register(ctx context.Context, input WorkerRegisterInput, workspaceID string) (*types.Worker, error) {
	labels := datatypes.JSONMap{}
	for k, v := range input.Labels {
		labels[k] = v
	}
	worker := &types.Worker{
		WorkspaceID: workspaceID,
		Name:        input.Name,
		Status:      types.WorkerStatusOnline,
		Labels:      labels,
	}
	created, err := s.workers.Create(ctx, nil, worker)
	if err != nil {
		return nil, err
	}
	s.log.Info("Worker registered", "worker_id", created.ID, "name", created.Name, "workspace_id", workspaceID)
	return created, nil
}

func (s *workerService) Heartbeat(ctx context.Context, workerID uuid.UUID, status string) (*types.Worker, bool, error) {
	worker, err := s.workers.GetByID(ctx, nil, workerID, "")
	if err != nil {
		return nil, false, err
	}
	if worker == nil {
		return nil, false, nil
	}
	if status == "" {
		status = types.WorkerStatusOnline
	}
	now := time.Now().UTC()
	if err := s.workers.UpdateFields(ctx, nil, workerID, map[string]interface{}{
		"last_heartbeat": now,
		"status":         status,
	}); err != nil {
		return nil, false, err
	}
	worker.LastHeartbeat = now
	worker.Status = status

	// Surface server-side cancellation of the in-flight run.
	cancelled := false
	if worker.CurrentRunID != nil {
		run, err := s.runs.GetByID(ctx, nil, *worker.CurrentRunID, "")
		if err != nil {
			return nil, false, err
		}
		if run != nil && run.Status == types.RunStatusCancelled {
			cancelled = true
		}
	}
	return worker, cancelled, nil
}

func (s *workerService) List(ctx context.Context) ([]*types.Worker, error) {
	cutoff := time.Now().UTC().Add(-s.heartbeatTimeout)
	if _, err := s.workers.ReapStale(ctx, nil, cutoff); err != nil {
		return nil, err
	}
	return s.workers.List(ctx, nil)
}

func (s *workerService) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return s.workers.CountByStatus(ctx, nil)
}
