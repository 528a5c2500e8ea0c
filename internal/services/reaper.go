package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
)

const reaperSweepInterval = 30 * time.Second

// Reaper marks workers offline when their heartbeat ages past the timeout.
// The workers-list read also reaps lazily; this sweep covers idle periods.
// A busy worker that is reaped keeps its assigned run — the run is resolved
// by the timeout sweep, not the reaper.
type Reaper struct {
	db               *gorm.DB
	log              *logger.Logger
	workers          repos.WorkerRepo
	heartbeatTimeout time.Duration
	sweepInterval    time.Duration
}

func NewReaper(db *gorm.DB, baseLog *logger.Logger, workers repos.WorkerRepo, heartbeatTimeout time.Duration) *Reaper {
	return &Reaper{
		db:               db,
		log:              baseLog.With("component", "Reaper"),
		workers:          workers,
		heartbeatTimeout: heartbeatTimeout,
		sweepInterval:    reaperSweepInterval,
	}
}

func (r *Reaper) Start(ctx context.Context) {
	go func() {
		r.log.Info("Heartbeat reaper starting", "sweep_interval", r.sweepInterval, "heartbeat_timeout", r.heartbeatTimeout)
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.log.Info("Heartbeat reaper stopping")
				return
			case <-ticker.C:
				if err := r.Sweep(ctx); err != nil {
					r.log.Error("Heartbeat sweep error", "error", err)
				}
			}
		}
	}()
}

func (r *Reaper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.heartbeatTimeout)
	reaped, err := r.workers.ReapStale(ctx, nil, cutoff)
	if err != nil {
		return err
	}
	if reaped > 0 {
		r.log.Warn("Reaped stale workers", "count", reaped, "cutoff", cutoff)
	}
	return nil
}
