package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/block/flight-control/internal/pkg/logger"
)

func TestBroadcastReachesRunSubscribersOnly(t *testing.T) {
	hub := NewHub(logger.NewNop())
	runA := uuid.New()
	runB := uuid.New()

	subA := hub.Subscribe(runA)
	subB := hub.Subscribe(runB)
	defer hub.Unsubscribe(subA)
	defer hub.Unsubscribe(subB)

	hub.Broadcast(runA, LogEvent{Stream: "stdout", Line: "hello", Sequence: 1})

	select {
	case event := <-subA.Outbound:
		if event.Line != "hello" {
			t.Fatalf("event = %+v", event)
		}
	default:
		t.Fatal("subscriber for runA received nothing")
	}
	select {
	case event := <-subB.Outbound:
		t.Fatalf("subscriber for runB leaked event %+v", event)
	default:
	}
}

func TestUnsubscribeRemovesRegistryEntry(t *testing.T) {
	hub := NewHub(logger.NewNop())
	runID := uuid.New()

	sub1 := hub.Subscribe(runID)
	sub2 := hub.Subscribe(runID)
	if hub.SubscriberCount(runID) != 2 {
		t.Fatalf("count = %d", hub.SubscriberCount(runID))
	}

	hub.Unsubscribe(sub1)
	if hub.SubscriberCount(runID) != 1 {
		t.Fatalf("count after first unsubscribe = %d", hub.SubscriberCount(runID))
	}
	hub.Unsubscribe(sub2)
	if hub.SubscriberCount(runID) != 0 {
		t.Fatalf("count after second unsubscribe = %d", hub.SubscriberCount(runID))
	}

	// Double unsubscribe must be harmless.
	hub.Unsubscribe(sub2)
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.NewNop())
	runID := uuid.New()
	sub := hub.Subscribe(runID)
	defer hub.Unsubscribe(sub)

	for i := 1; i <= subscriberBuffer+10; i++ {
		hub.Broadcast(runID, LogEvent{Stream: "stdout", Line: "x", Sequence: i})
	}
	// The hub never blocks; exactly the buffered prefix is retained.
	if got := len(sub.Outbound); got != subscriberBuffer {
		t.Fatalf("buffered = %d, want %d", got, subscriberBuffer)
	}
}
