package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/sse"
	"github.com/block/flight-control/internal/storage"
	"github.com/block/flight-control/internal/types"
)

func newLogFixture(t *testing.T) (LogService, testRepos, ArtifactService) {
	t.Helper()
	db := newTestDB(t)
	r := newTestRepos(db)
	log := logger.NewNop()
	store := storage.NewLocalStore(t.TempDir())
	artifacts := NewArtifactService(db, log, r.artifacts, store)
	hub := sse.NewHub(log)
	return NewLogService(db, log, r.logs, r.runs, artifacts, hub), r, artifacts
}

func TestAppendAndGetLogsOrdered(t *testing.T) {
	logs, r, _ := newLogFixture(t)
	ctx := context.Background()

	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	_, err = logs.Append(ctx, run.ID, []LogLine{
		{Stream: "stdout", Line: "one", Sequence: 1},
		{Stream: "stderr", Line: "two", Sequence: 2},
	})
	require.NoError(t, err)
	_, err = logs.Append(ctx, run.ID, []LogLine{
		{Stream: "stdout", Line: "three", Sequence: 3},
	})
	require.NoError(t, err)

	entries, err := logs.GetLogs(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		require.Equal(t, i+1, entry.Sequence)
	}

	tail, err := logs.GetLogs(ctx, run.ID, 1)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.Equal(t, "two", tail[0].Line)
	require.Equal(t, types.LogStreamStderr, tail[0].Stream)

	past, err := logs.GetLogs(ctx, run.ID, 99)
	require.NoError(t, err)
	require.Empty(t, past)
}

func TestAppendRetriedBatchIsLastWriterWins(t *testing.T) {
	logs, r, _ := newLogFixture(t)
	ctx := context.Background()

	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	_, err = logs.Append(ctx, run.ID, []LogLine{{Stream: "stdout", Line: "first", Sequence: 1}})
	require.NoError(t, err)
	// A retried batch re-sends sequence 1; the retry wins.
	_, err = logs.Append(ctx, run.ID, []LogLine{{Stream: "stdout", Line: "retried", Sequence: 1}})
	require.NoError(t, err)

	entries, err := logs.GetLogs(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "retried", entries[0].Line)
}

func TestFirstLogBatchMarksRunRunning(t *testing.T) {
	logs, r, _ := newLogFixture(t)
	ctx := context.Background()

	worker, err := r.workers.Create(ctx, nil, &types.Worker{WorkspaceID: "default", Name: "w"})
	require.NoError(t, err)
	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)
	won, err := r.runs.ClaimQueued(ctx, nil, run.ID, worker.ID, run.CreatedAt)
	require.NoError(t, err)
	require.True(t, won)

	_, err = logs.Append(ctx, run.ID, []LogLine{{Stream: "stdout", Line: "go", Sequence: 1}})
	require.NoError(t, err)

	after, err := r.runs.GetByID(ctx, nil, run.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.RunStatusRunning, after.Status)
}

func TestGetLogsFallsBackToRunOutputArtifact(t *testing.T) {
	logs, r, artifacts := newLogFixture(t)
	ctx := context.Background()

	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	content := "[stdout] hello\n[stderr] oops\nbare line\n"
	_, err = artifacts.Save(ctx, run.ID, "run-output.log", []byte(content), "text/plain", "default")
	require.NoError(t, err)

	entries, err := logs.GetLogs(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, LogEntry{Stream: "stdout", Line: "hello", Sequence: 1}, entries[0])
	require.Equal(t, LogEntry{Stream: "stderr", Line: "oops", Sequence: 2}, entries[1])
	// Unprefixed lines count as stdout.
	require.Equal(t, LogEntry{Stream: "stdout", Line: "bare line", Sequence: 3}, entries[2])

	tail, err := logs.GetLogs(ctx, run.ID, 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.Equal(t, 3, tail[0].Sequence)
}

func TestSSEFanoutReceivesAppendedLines(t *testing.T) {
	logs, r, _ := newLogFixture(t)
	ctx := context.Background()

	run, err := r.runs.Create(ctx, nil, &types.JobRun{
		WorkspaceID: "default", Name: "r", TaskPrompt: "p", AgentType: "goose",
	})
	require.NoError(t, err)

	sub := logs.Subscribe(run.ID)
	defer logs.Unsubscribe(sub)

	_, err = logs.Append(ctx, run.ID, []LogLine{{Stream: "stdout", Line: "live", Sequence: 1}})
	require.NoError(t, err)

	select {
	case event := <-sub.Outbound:
		require.Equal(t, "live", event.Line)
		require.Equal(t, 1, event.Sequence)
	default:
		t.Fatal("expected a fanned-out log event")
	}
}
