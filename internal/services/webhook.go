package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/types"
)

const webhookTimeout = 30 * time.Second

type webhookPayload struct {
	RunID           string   `json:"run_id"`
	JobID           *string  `json:"job_id"`
	Status          string   `json:"status"`
	ExitCode        *int     `json:"exit_code"`
	StartedAt       *string  `json:"started_at"`
	CompletedAt     *string  `json:"completed_at"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

// WebhookNotifier fires terminal-transition notifications. Delivery is
// fire-and-forget: responses are ignored, failures are logged, and the
// caller of CompleteRun is never blocked.
type WebhookNotifier interface {
	Fire(run *types.JobRun)
}

type webhookNotifier struct {
	log    *logger.Logger
	client *http.Client
}

func NewWebhookNotifier(baseLog *logger.Logger) WebhookNotifier {
	return &webhookNotifier{
		log:    baseLog.With("service", "WebhookNotifier"),
		client: &http.Client{Timeout: webhookTimeout},
	}
}

func (n *webhookNotifier) Fire(run *types.JobRun) {
	if run == nil || run.WebhookURL == "" {
		return
	}
	go n.send(run)
}

func (n *webhookNotifier) send(run *types.JobRun) {
	payload := buildWebhookPayload(run)
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("Failed to marshal webhook payload", "run_id", run.ID, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, run.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("Webhook request build failed", "run_id", run.ID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FlightControl-Webhook/1.0")
	if run.WebhookSecret != "" {
		req.Header.Set("X-FlightControl-Signature", "sha256="+computeSignature(body, run.WebhookSecret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("Webhook delivery failed", "run_id", run.ID, "url", run.WebhookURL, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		n.log.Warn("Webhook delivery rejected", "run_id", run.ID, "url", run.WebhookURL, "status", resp.StatusCode)
		return
	}
	n.log.Info("Webhook sent", "run_id", run.ID, "url", run.WebhookURL)
}

func computeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func buildWebhookPayload(run *types.JobRun) webhookPayload {
	payload := webhookPayload{
		RunID:    run.ID.String(),
		Status:   run.Status,
		ExitCode: run.ExitCode,
	}
	if run.JobDefinitionID != nil {
		jobID := run.JobDefinitionID.String()
		payload.JobID = &jobID
	}
	if run.StartedAt != nil {
		started := run.StartedAt.UTC().Format(time.RFC3339Nano)
		payload.StartedAt = &started
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.UTC().Format(time.RFC3339Nano)
		payload.CompletedAt = &completed
	}
	if run.StartedAt != nil && run.CompletedAt != nil {
		duration := run.CompletedAt.Sub(*run.StartedAt).Seconds()
		payload.DurationSeconds = &duration
	}
	return payload
}
