package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

func TestHeartbeatRefreshesLiveness(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	workers := NewWorkerService(db, logger.NewNop(), r.workers, r.runs, 90*time.Second)
	ctx := context.Background()

	worker, err := workers.Register(ctx, WorkerRegisterInput{Name: "w1", Labels: map[string]string{"gpu": "true"}}, "default")
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, r.workers.UpdateFields(ctx, nil, worker.ID, map[string]interface{}{
		"last_heartbeat": stale,
	}))

	beat, cancelled, err := workers.Heartbeat(ctx, worker.ID, types.WorkerStatusOnline)
	require.NoError(t, err)
	require.NotNil(t, beat)
	require.False(t, cancelled)
	require.True(t, beat.LastHeartbeat.After(stale))
}

func TestStaleWorkerReapedOnListRead(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	workers := NewWorkerService(db, logger.NewNop(), r.workers, r.runs, 90*time.Second)
	ctx := context.Background()

	stale, err := workers.Register(ctx, WorkerRegisterInput{Name: "stale"}, "default")
	require.NoError(t, err)
	_, err = workers.Register(ctx, WorkerRegisterInput{Name: "fresh"}, "default")
	require.NoError(t, err)

	require.NoError(t, r.workers.UpdateFields(ctx, nil, stale.ID, map[string]interface{}{
		"last_heartbeat": time.Now().UTC().Add(-5 * time.Minute),
	}))

	listed, err := workers.List(ctx)
	require.NoError(t, err)

	statuses := map[string]string{}
	for _, w := range listed {
		statuses[w.Name] = w.Status
	}
	require.Equal(t, types.WorkerStatusOffline, statuses["stale"])
	require.Equal(t, types.WorkerStatusOnline, statuses["fresh"])
}

func TestReaperSweepLeavesRunAssigned(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	reaper := NewReaper(db, logger.NewNop(), r.workers, 90*time.Second)
	ctx := context.Background()

	worker, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "busy"})
	require.NoError(t, err)
	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)
	now := time.Now().UTC()
	won, err := r.runs.ClaimQueued(ctx, nil, run.ID, worker.ID, now)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, r.workers.UpdateFields(ctx, nil, worker.ID, map[string]interface{}{
		"status": types.WorkerStatusBusy, "current_run_id": run.ID,
		"last_heartbeat": now.Add(-10 * time.Minute),
	}))

	require.NoError(t, reaper.Sweep(ctx))

	// The worker is offline but the run stays assigned; only the run
	// timeout sweep resolves it.
	reaped, err := r.workers.GetByID(ctx, nil, worker.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.WorkerStatusOffline, reaped.Status)

	still, err := r.runs.GetByID(ctx, nil, run.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.RunStatusAssigned, still.Status)
}

func TestHeartbeatSurfacesCancellation(t *testing.T) {
	db := newTestDB(t)
	r := newTestRepos(db)
	workers := NewWorkerService(db, logger.NewNop(), r.workers, r.runs, 90*time.Second)
	lifecycle := NewLifecycleService(db, logger.NewNop(), r.runs, r.workers, noopWebhooks{})
	ctx := context.Background()

	worker, err := workers.Register(ctx, WorkerRegisterInput{Name: "w1"}, "default")
	require.NoError(t, err)
	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)
	now := time.Now().UTC()
	won, err := r.runs.ClaimQueued(ctx, nil, run.ID, worker.ID, now)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, r.workers.UpdateFields(ctx, nil, worker.ID, map[string]interface{}{
		"status": types.WorkerStatusBusy, "current_run_id": run.ID,
	}))

	_, err = lifecycle.CancelRun(ctx, run.ID, "default")
	require.NoError(t, err)

	_, cancelled, err := workers.Heartbeat(ctx, worker.ID, types.WorkerStatusBusy)
	require.NoError(t, err)
	require.True(t, cancelled)
}
