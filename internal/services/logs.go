package services

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/sse"
	"github.com/block/flight-control/internal/types"
)

const runOutputLogFilename = "run-output.log"

var logLinePattern = regexp.MustCompile(`^\[(stdout|stderr)\] (.*)$`)

type LogLine struct {
	Stream   string `json:"stream"`
	Line     string `json:"line"`
	Sequence int    `json:"sequence" binding:"required"`
}

type LogEntry struct {
	Stream   string `json:"stream"`
	Line     string `json:"line"`
	Sequence int    `json:"sequence"`
}

// LogService accepts worker log batches, persists them, and fans them out to
// in-process SSE subscribers. Reads are served from rows when present and
// otherwise from a per-run run-output.log artifact.
type LogService interface {
	Append(ctx context.Context, runID uuid.UUID, lines []LogLine) (int, error)
	GetLogs(ctx context.Context, runID uuid.UUID, afterSequence int) ([]LogEntry, error)
	Subscribe(runID uuid.UUID) *sse.Subscriber
	Unsubscribe(sub *sse.Subscriber)
	// ServeSSE blocks, streaming the subscriber's events until the client
	// disconnects.
	ServeSSE(w http.ResponseWriter, r *http.Request, sub *sse.Subscriber)
}

type logService struct {
	db        *gorm.DB
	log       *logger.Logger
	logs      repos.JobLogRepo
	runs      repos.JobRunRepo
	artifacts ArtifactService
	hub       *sse.Hub
}

func NewLogService(db *gorm.DB, baseLog *logger.Logger, logs repos.JobLogRepo, runs repos.JobRunRepo, artifacts ArtifactService, hub *sse.Hub) LogService {
	return &logService{
		db:        db,
		log:       baseLog.With("service", "LogService"),
		logs:      logs,
		runs:      runs,
		artifacts: artifacts,
		hub:       hub,
	}
}

func (s *logService) Append(ctx context.Context, runID uuid.UUID, lines []LogLine) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	rows := make([]*types.JobLog, 0, len(lines))
	for _, line := range lines {
		stream := line.Stream
		if stream != types.LogStreamStdout && stream != types.LogStreamStderr {
			stream = types.LogStreamStdout
		}
		rows = append(rows, &types.JobLog{
			RunID:    runID,
			Sequence: line.Sequence,
			Stream:   stream,
			Line:     line.Line,
		})
	}
	if err := s.logs.AppendBatch(ctx, nil, rows); err != nil {
		return 0, err
	}

	// First log batch marks the run as running.
	run, err := s.runs.GetByID(ctx, nil, runID, "")
	if err != nil {
		return 0, err
	}
	if run != nil && run.Status == types.RunStatusAssigned {
		if err := s.runs.UpdateFields(ctx, nil, runID, map[string]interface{}{
			"status": types.RunStatusRunning,
		}); err != nil {
			return 0, err
		}
	}

	for _, row := range rows {
		s.hub.Broadcast(runID, sse.LogEvent{
			Stream:   row.Stream,
			Line:     row.Line,
			Sequence: row.Sequence,
		})
	}
	return len(rows), nil
}

func (s *logService) GetLogs(ctx context.Context, runID uuid.UUID, afterSequence int) ([]LogEntry, error) {
	rows, err := s.logs.ListAfter(ctx, nil, runID, afterSequence)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		out := make([]LogEntry, 0, len(rows))
		for _, row := range rows {
			out = append(out, LogEntry{Stream: row.Stream, Line: row.Line, Sequence: row.Sequence})
		}
		return out, nil
	}

	// Check whether any rows exist at all before falling back; afterSequence
	// past the tail must not re-read the artifact.
	n, err := s.logs.CountForRun(ctx, nil, runID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return []LogEntry{}, nil
	}
	return s.readFromArtifact(ctx, runID, afterSequence)
}

// readFromArtifact parses the worker-uploaded run-output.log. Sequence
// numbers are synthesised from 1-based line position; lines without a
// [stdout] / [stderr] prefix count as stdout.
func (s *logService) readFromArtifact(ctx context.Context, runID uuid.UUID, afterSequence int) ([]LogEntry, error) {
	artifacts, err := s.artifacts.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	var logArtifact *types.Artifact
	for _, a := range artifacts {
		if a.Filename == runOutputLogFilename {
			logArtifact = a
			break
		}
	}
	if logArtifact == nil {
		return []LogEntry{}, nil
	}

	data, err := s.artifacts.ReadData(ctx, logArtifact)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []LogEntry{}, nil
	}

	entries := []LogEntry{}
	for i, raw := range strings.Split(text, "\n") {
		seq := i + 1
		if seq <= afterSequence {
			continue
		}
		if m := logLinePattern.FindStringSubmatch(raw); m != nil {
			entries = append(entries, LogEntry{Stream: m[1], Line: m[2], Sequence: seq})
		} else {
			entries = append(entries, LogEntry{Stream: types.LogStreamStdout, Line: raw, Sequence: seq})
		}
	}
	return entries, nil
}

func (s *logService) Subscribe(runID uuid.UUID) *sse.Subscriber {
	return s.hub.Subscribe(runID)
}

func (s *logService) Unsubscribe(sub *sse.Subscriber) {
	s.hub.Unsubscribe(sub)
}

func (s *logService) ServeSSE(w http.ResponseWriter, r *http.Request, sub *sse.Subscriber) {
	s.hub.ServeHTTP(w, r, sub)
}
