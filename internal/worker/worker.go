// Package worker implements the polling worker process: register, heartbeat,
// claim runs, execute the agent subprocess, stream logs, report completion.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

type Worker struct {
	cfg    Config
	log    *logger.Logger
	client *Client
	agent  Agent
	id     uuid.UUID
}

func New(cfg Config, baseLog *logger.Logger, agent Agent) *Worker {
	return &Worker{
		cfg:    cfg,
		log:    baseLog.With("component", "Worker"),
		client: NewClient(cfg),
		agent:  agent,
	}
}

// Run registers the worker and loops poll -> execute -> heartbeat until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	name := w.cfg.WorkerName
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		name = "worker-" + hostname
	}

	w.log.Info("Registering worker", "name", name, "server", w.cfg.ServerURL)
	registered, err := w.client.Register(ctx, name, w.cfg.Labels)
	if err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	w.id = registered.ID
	w.log.Info("Registered", "worker_id", w.id)

	lastHeartbeat := time.Now()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
		}

		if time.Since(lastHeartbeat) >= w.cfg.HeartbeatInterval {
			if _, err := w.client.Heartbeat(ctx, w.id, types.WorkerStatusOnline); err != nil {
				w.log.Warn("Heartbeat failed", "error", err)
			}
			lastHeartbeat = time.Now()
		}

		job, err := w.client.Poll(ctx, w.id)
		if err != nil {
			w.log.Error("Poll failed", "error", err)
			w.sleep(ctx, w.cfg.PollInterval)
			continue
		}
		if job == nil {
			w.sleep(ctx, w.cfg.PollInterval)
			continue
		}

		ExecuteRun(ctx, w.client, w.log, w.cfg, w.agent, w.id, job)
		if _, err := w.client.Heartbeat(ctx, w.id, types.WorkerStatusOnline); err != nil {
			w.log.Warn("Heartbeat failed", "error", err)
		}
		lastHeartbeat = time.Now()
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
