package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/services"
	"github.com/block/flight-control/internal/types"
)

// ExecuteRun drives one dispatched run: prepare a scratch directory, write
// skills, stream agent output, and report the terminal status.
func ExecuteRun(ctx context.Context, client *Client, log *logger.Logger, cfg Config, agent Agent, workerID uuid.UUID, job *services.DispatchEnvelope) {
	runLog := log.With("run_id", job.RunID, "name", job.Name)
	runLog.Info("Starting run")

	streamer := NewLogStreamer(client, log, job.RunID, cfg.LogBatchInterval)
	flushCtx, stopFlush := context.WithCancel(ctx)
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		streamer.RunFlushLoop(flushCtx)
	}()
	defer func() {
		stopFlush()
		<-flushDone
	}()

	workDir, err := os.MkdirTemp("", fmt.Sprintf("orch-%s-", job.RunID))
	if err != nil {
		reportFailure(ctx, client, runLog, streamer, workerID, job.RunID, err)
		return
	}
	defer os.RemoveAll(workDir)

	if err := WriteSkills(ctx, client, log, job.Skills, workDir); err != nil {
		reportFailure(ctx, client, runLog, streamer, workerID, job.RunID, err)
		return
	}

	exitCode, err := agent.Run(ctx, job, workDir, streamer.AddLine)
	if err != nil {
		reportFailure(ctx, client, runLog, streamer, workerID, job.RunID, err)
		return
	}

	_ = streamer.Flush(ctx)

	status := types.RunStatusCompleted
	if exitCode != 0 {
		status = types.RunStatusFailed
	}
	if err := client.CompleteRun(ctx, job.RunID, workerID, status, "", &exitCode); err != nil {
		runLog.Error("Failed to report run completion", "error", err)
		return
	}
	runLog.Info("Run finished", "status", status, "exit_code", exitCode)
}

func reportFailure(ctx context.Context, client *Client, log *logger.Logger, streamer *LogStreamer, workerID, runID uuid.UUID, cause error) {
	log.Error("Run failed on worker", "error", cause)
	streamer.AddLine(types.LogStreamStderr, fmt.Sprintf("Worker error: %v", cause))
	_ = streamer.Flush(ctx)

	exitCode := -1
	if err := client.CompleteRun(ctx, runID, workerID, types.RunStatusFailed, cause.Error(), &exitCode); err != nil {
		log.Error("Failed to report run failure", "error", err)
	}
}
