// Package sse fans run log lines out to in-process subscribers. The
// registry is process-local, guarded by a mutex; delivery is best-effort
// (full subscriber queues drop lines rather than block the log pipeline).
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/block/flight-control/internal/pkg/logger"
)

const (
	subscriberBuffer = 64
	pingInterval     = 30 * time.Second
)

type LogEvent struct {
	Stream   string `json:"stream"`
	Line     string `json:"line"`
	Sequence int    `json:"sequence"`
}

type Subscriber struct {
	ID       uuid.UUID
	RunID    uuid.UUID
	Outbound chan LogEvent
	done     chan struct{}
}

type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[uuid.UUID]map[*Subscriber]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "SSEHub"),
		subscriptions: make(map[uuid.UUID]map[*Subscriber]bool),
	}
}

func (hub *Hub) Subscribe(runID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		ID:       uuid.New(),
		RunID:    runID,
		Outbound: make(chan LogEvent, subscriberBuffer),
		done:     make(chan struct{}),
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	subs, exists := hub.subscriptions[runID]
	if !exists {
		subs = make(map[*Subscriber]bool)
		hub.subscriptions[runID] = subs
	}
	subs[sub] = true

	hub.log.Debug("SSE subscriber added", "subscriberID", sub.ID, "runID", runID)
	return sub
}

func (hub *Hub) Unsubscribe(sub *Subscriber) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	subs, ok := hub.subscriptions[sub.RunID]
	if !ok {
		return
	}
	if _, present := subs[sub]; !present {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(hub.subscriptions, sub.RunID)
	}
	close(sub.done)
	hub.log.Debug("SSE subscriber removed", "subscriberID", sub.ID, "runID", sub.RunID)
}

// Broadcast pushes a log event to every subscriber of the run. Subscribers
// with full buffers miss the line; durable reads go through the log reader.
func (hub *Hub) Broadcast(runID uuid.UUID, event LogEvent) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	subs, ok := hub.subscriptions[runID]
	if !ok {
		return
	}
	for sub := range subs {
		select {
		case sub.Outbound <- event:
		default:
			hub.log.Warn("Dropping SSE log event; subscriber buffer full", "subscriberID", sub.ID, "runID", runID)
		}
	}
}

// SubscriberCount is used by tests and the metrics endpoint.
func (hub *Hub) SubscriberCount(runID uuid.UUID) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[runID])
}

// ServeHTTP streams `log` events to the client, with a `ping` event after
// 30 s of idleness. Returns when the client disconnects.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, sub *Subscriber) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	idle := time.NewTimer(pingInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-idle.C:
			fmt.Fprint(w, "event: ping\ndata: \n\n")
			flusher.Flush()
			idle.Reset(pingInterval)
		case event := <-sub.Outbound:
			payload, err := json.Marshal(event)
			if err != nil {
				hub.log.Warn("Failed to marshal SSE log event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: log\ndata: %s\n\n", payload)
			flusher.Flush()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(pingInterval)
		}
	}
}
