package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

// LifecycleService applies run state transitions on completion,
// cancellation, and timeout, and spawns retry children.
type LifecycleService interface {
	// CompleteRun records a worker-reported terminal status. If the run was
	// cancelled server-side first, the incoming status is ignored and the
	// run stays cancelled.
	CompleteRun(ctx context.Context, workerID, runID uuid.UUID, status, result string, exitCode *int) (*types.JobRun, error)
	// CancelRun flips a queued/assigned/running run to cancelled. Returns
	// nil when the run does not exist or is already terminal.
	CancelRun(ctx context.Context, runID uuid.UUID, workspaceID string) (*types.JobRun, error)
	// SweepTimeouts flips overdue assigned/running runs to timeout and frees
	// their workers. Returns how many runs were timed out.
	SweepTimeouts(ctx context.Context) (int, error)
	// Start launches the periodic timeout sweep.
	Start(ctx context.Context)
}

type lifecycleService struct {
	db            *gorm.DB
	log           *logger.Logger
	runs          repos.JobRunRepo
	workers       repos.WorkerRepo
	webhooks      WebhookNotifier
	sweepInterval time.Duration
}

func NewLifecycleService(db *gorm.DB, baseLog *logger.Logger, runs repos.JobRunRepo, workers repos.WorkerRepo, webhooks WebhookNotifier) LifecycleService {
	return &lifecycleService{
		db:            db,
		log:           baseLog.With("service", "LifecycleService"),
		runs:          runs,
		workers:       workers,
		webhooks:      webhooks,
		sweepInterval: 30 * time.Second,
	}
}

func (s *lifecycleService) CompleteRun(ctx context.Context, workerID, runID uuid.UUID, status, result string, exitCode *int) (*types.JobRun, error) {
	var finished *types.JobRun
	var spawnRetry bool
	var alreadyTerminal bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := s.runs.GetByID(ctx, tx, runID, "")
		if err != nil {
			return err
		}
		if run == nil {
			return nil
		}

		// A run that is already terminal absorbs the report. In particular a
		// server-side cancellation wins over a late worker status; the
		// worker is still freed so it can poll again.
		if types.RunStatusTerminal(run.Status) {
			if err := s.freeWorker(ctx, tx, workerID); err != nil {
				return err
			}
			finished = run
			alreadyTerminal = true
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":       status,
			"result":       result,
			"completed_at": now,
		}
		if exitCode != nil {
			updates["exit_code"] = *exitCode
		}
		if err := s.runs.UpdateFields(ctx, tx, runID, updates); err != nil {
			return err
		}
		run.Status = status
		run.Result = result
		run.ExitCode = exitCode
		run.CompletedAt = &now

		if err := s.freeWorker(ctx, tx, workerID); err != nil {
			return err
		}

		if retryEligible(run) {
			if err := s.spawnRetryChild(ctx, tx, run, now); err != nil {
				return err
			}
			spawnRetry = true
		}

		finished = run
		return nil
	})
	if err != nil {
		return nil, err
	}
	if finished == nil {
		return nil, nil
	}
	if alreadyTerminal {
		// The first terminal transition already fired the webhook.
		return finished, nil
	}

	s.log.Info("Run finished", "run_id", finished.ID, "status", finished.Status, "attempt", finished.AttemptNumber, "retry_spawned", spawnRetry)
	s.webhooks.Fire(finished)
	return finished, nil
}

func (s *lifecycleService) CancelRun(ctx context.Context, runID uuid.UUID, workspaceID string) (*types.JobRun, error) {
	var cancelled *types.JobRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := s.runs.GetByID(ctx, tx, runID, workspaceID)
		if err != nil {
			return err
		}
		if run == nil {
			return nil
		}
		switch run.Status {
		case types.RunStatusQueued, types.RunStatusAssigned, types.RunStatusRunning:
		default:
			return nil
		}
		now := time.Now().UTC()
		if err := s.runs.UpdateFields(ctx, tx, runID, map[string]interface{}{
			"status":       types.RunStatusCancelled,
			"completed_at": now,
		}); err != nil {
			return err
		}
		run.Status = types.RunStatusCancelled
		run.CompletedAt = &now
		cancelled = run
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cancelled != nil {
		s.log.Info("Run cancelled", "run_id", cancelled.ID)
		s.webhooks.Fire(cancelled)
	}
	return cancelled, nil
}

func (s *lifecycleService) SweepTimeouts(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	overdue, err := s.runs.ListOverdue(ctx, nil, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, run := range overdue {
		run := run
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.runs.UpdateFields(ctx, tx, run.ID, map[string]interface{}{
				"status":       types.RunStatusTimeout,
				"completed_at": now,
			}); err != nil {
				return err
			}
			run.Status = types.RunStatusTimeout
			run.CompletedAt = &now

			if run.WorkerID != nil {
				if err := s.freeWorker(ctx, tx, *run.WorkerID); err != nil {
					return err
				}
			}
			if retryEligible(run) {
				return s.spawnRetryChild(ctx, tx, run, now)
			}
			return nil
		})
		if err != nil {
			s.log.Error("Timeout sweep failed for run", "run_id", run.ID, "error", err)
			continue
		}
		s.log.Warn("Run timed out", "run_id", run.ID, "timeout_seconds", run.TimeoutSeconds)
		s.webhooks.Fire(run)
		count++
	}
	return count, nil
}

func (s *lifecycleService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepTimeouts(ctx); err != nil {
					s.log.Error("Timeout sweep error", "error", err)
				}
			}
		}
	}()
}

func (s *lifecycleService) freeWorker(ctx context.Context, tx *gorm.DB, workerID uuid.UUID) error {
	if workerID == uuid.Nil {
		return nil
	}
	return s.workers.UpdateFields(ctx, tx, workerID, map[string]interface{}{
		"status":         types.WorkerStatusOnline,
		"current_run_id": nil,
	})
}

func retryEligible(run *types.JobRun) bool {
	if run.Status != types.RunStatusFailed && run.Status != types.RunStatusTimeout {
		return false
	}
	return run.AttemptNumber <= run.MaxRetries
}

// spawnRetryChild enqueues the next attempt with the same snapshot,
// activated after the backoff.
func (s *lifecycleService) spawnRetryChild(ctx context.Context, tx *gorm.DB, run *types.JobRun, now time.Time) error {
	backoff := time.Duration(run.RetryBackoffSeconds) * time.Second
	scheduledAt := now.Add(backoff)
	parentID := run.ID
	child := &types.JobRun{
		WorkspaceID:         run.WorkspaceID,
		JobDefinitionID:     run.JobDefinitionID,
		Status:              types.RunStatusQueued,
		Name:                run.Name,
		TaskPrompt:          run.TaskPrompt,
		AgentType:           run.AgentType,
		AgentConfig:         run.AgentConfig,
		MCPServers:          run.MCPServers,
		EnvVars:             run.EnvVars,
		CredentialIDs:       run.CredentialIDs,
		RequiredLabels:      run.RequiredLabels,
		SkillIDs:            run.SkillIDs,
		TimeoutSeconds:      run.TimeoutSeconds,
		MaxRetries:          run.MaxRetries,
		RetryBackoffSeconds: run.RetryBackoffSeconds,
		AttemptNumber:       run.AttemptNumber + 1,
		ParentRunID:         &parentID,
		WebhookURL:          run.WebhookURL,
		WebhookSecret:       run.WebhookSecret,
		ScheduledAt:         &scheduledAt,
	}
	created, err := s.runs.Create(ctx, tx, child)
	if err != nil {
		return err
	}
	s.log.Info("Retry run queued", "run_id", created.ID, "parent_run_id", run.ID, "attempt", created.AttemptNumber, "scheduled_at", scheduledAt)
	return nil
}
