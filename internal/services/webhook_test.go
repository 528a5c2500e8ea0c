package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

func TestWebhookFireDeliversSignedPayload(t *testing.T) {
	received := make(chan *http.Request, 1)
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		received <- r
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	started := time.Now().UTC().Add(-time.Minute)
	completed := time.Now().UTC()
	exitCode := 0
	jobID := uuid.New()
	run := &types.JobRun{
		ID:              uuid.New(),
		JobDefinitionID: &jobID,
		Status:          types.RunStatusCompleted,
		ExitCode:        &exitCode,
		StartedAt:       &started,
		CompletedAt:     &completed,
		WebhookURL:      server.URL,
		WebhookSecret:   "topsecret",
	}

	notifier := NewWebhookNotifier(logger.NewNop())
	notifier.Fire(run)

	select {
	case req := <-received:
		require.Equal(t, "application/json", req.Header.Get("Content-Type"))
		require.Equal(t, "FlightControl-Webhook/1.0", req.Header.Get("User-Agent"))

		signature := req.Header.Get("X-FlightControl-Signature")
		require.True(t, len(signature) > len("sha256="))
		mac := hmac.New(sha256.New, []byte("topsecret"))
		mac.Write(body)
		require.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), signature)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, run.ID.String(), payload["run_id"])
		require.Equal(t, jobID.String(), payload["job_id"])
		require.Equal(t, types.RunStatusCompleted, payload["status"])
		require.InDelta(t, 60.0, payload["duration_seconds"].(float64), 1.0)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was never delivered")
	}
}

func TestWebhookFireIsNoopWithoutURL(t *testing.T) {
	notifier := NewWebhookNotifier(logger.NewNop())
	// Must not panic or block.
	notifier.Fire(&types.JobRun{ID: uuid.New()})
	notifier.Fire(nil)
}

func TestWebhookSignatureOmittedWithoutSecret(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-FlightControl-Signature")
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(logger.NewNop())
	notifier.Fire(&types.JobRun{ID: uuid.New(), Status: types.RunStatusFailed, WebhookURL: server.URL})

	select {
	case signature := <-received:
		require.Empty(t, signature)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was never delivered")
	}
}
