package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
)

const schedulerTickInterval = 30 * time.Second

// Scheduler advances enabled schedules whose next_run_at has elapsed,
// creating runs and recomputing the next fire time. A single background
// task serialises the ticks; the loop survives transient failures.
type Scheduler struct {
	db           *gorm.DB
	log          *logger.Logger
	schedules    repos.ScheduleRepo
	jobs         JobService
	tickInterval time.Duration
}

func NewScheduler(db *gorm.DB, baseLog *logger.Logger, schedules repos.ScheduleRepo, jobs JobService) *Scheduler {
	return &Scheduler{
		db:           db,
		log:          baseLog.With("component", "Scheduler"),
		schedules:    schedules,
		jobs:         jobs,
		tickInterval: schedulerTickInterval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		s.log.Info("Scheduler starting", "tick_interval", s.tickInterval)
		if err := s.initializeNextRunTimes(ctx); err != nil {
			s.log.Error("Failed to initialize schedule fire times", "error", err)
		}
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Scheduler stopping")
				return
			case <-ticker.C:
				if err := s.Tick(ctx); err != nil {
					s.log.Error("Scheduler tick error", "error", err)
				}
			}
		}
	}()
}

// initializeNextRunTimes recomputes next_run_at for every enabled schedule
// on startup so missed fires during downtime are skipped, not backfilled.
func (s *Scheduler) initializeNextRunTimes(ctx context.Context) error {
	schedules, err := s.schedules.ListEnabled(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, schedule := range schedules {
		next, err := ComputeNextRun(schedule.CronExpression, now)
		if err != nil {
			s.log.Warn("Skipping schedule with unparsable cron", "schedule_id", schedule.ID, "cron", schedule.CronExpression, "error", err)
			continue
		}
		schedule.NextRunAt = &next
		if err := s.schedules.Save(ctx, nil, schedule); err != nil {
			return err
		}
	}
	s.log.Info("Initialized next_run_at for enabled schedules", "count", len(schedules))
	return nil
}

// Tick fires every due schedule once, committing once at the end of the
// pass. next_run_at always advances, even when the trigger fails, so a
// broken job cannot cause a tight retry loop.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		due, err := s.schedules.ListDue(ctx, tx, now)
		if err != nil {
			return err
		}

		for _, schedule := range due {
			run, err := s.jobs.TriggerRun(ctx, tx, schedule.JobDefinitionID, schedule.WorkspaceID)
			if err != nil {
				s.log.Error("Failed to fire schedule", "schedule_id", schedule.ID, "job_id", schedule.JobDefinitionID, "error", err)
			} else {
				fired := now
				runID := run.ID
				schedule.LastRunAt = &fired
				schedule.LastRunID = &runID
				s.log.Info("Schedule fired", "schedule_id", schedule.ID, "run_id", run.ID, "job_id", schedule.JobDefinitionID)
			}

			next, cronErr := ComputeNextRun(schedule.CronExpression, now)
			if cronErr != nil {
				s.log.Warn("Schedule has unparsable cron, cannot advance", "schedule_id", schedule.ID, "error", cronErr)
			} else {
				schedule.NextRunAt = &next
			}
			if err := s.schedules.Save(ctx, tx, schedule); err != nil {
				return err
			}
		}
		return nil
	})
}
