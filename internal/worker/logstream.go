package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/services"
)

// LogStreamer batches agent output lines and ships them to the server
// periodically. Failed batches are re-enqueued ahead of newer lines so the
// sequence stays monotonic across retries.
type LogStreamer struct {
	client   *Client
	log      *logger.Logger
	runID    uuid.UUID
	interval time.Duration

	mu       sync.Mutex
	buffer   []services.LogLine
	sequence int
}

func NewLogStreamer(client *Client, baseLog *logger.Logger, runID uuid.UUID, interval time.Duration) *LogStreamer {
	return &LogStreamer{
		client:   client,
		log:      baseLog.With("component", "LogStreamer", "run_id", runID),
		runID:    runID,
		interval: interval,
	}
}

func (s *LogStreamer) AddLine(stream, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	s.buffer = append(s.buffer, services.LogLine{
		Stream:   stream,
		Line:     line,
		Sequence: s.sequence,
	})
}

func (s *LogStreamer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if err := s.client.PostLogs(ctx, s.runID, batch); err != nil {
		s.log.Error("Failed to send logs, re-enqueueing", "lines", len(batch), "error", err)
		s.mu.Lock()
		s.buffer = append(batch, s.buffer...)
		s.mu.Unlock()
		return err
	}
	return nil
}

// RunFlushLoop flushes until the context is cancelled, then drains once.
func (s *LogStreamer) RunFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = s.Flush(context.Background())
			return
		case <-ticker.C:
			_ = s.Flush(ctx)
		}
	}
}
