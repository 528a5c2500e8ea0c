package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/block/flight-control/internal/services"
)

// Client is the worker's HTTP surface against the control plane.
type Client struct {
	baseURL     string
	apiKey      string
	workspaceID string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:     cfg.ServerURL + "/api/v1",
		apiKey:      cfg.APIKey,
		workspaceID: cfg.WorkspaceID,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

type RegisterResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type HeartbeatResponse struct {
	Status       string `json:"status"`
	RunCancelled bool   `json:"run_cancelled"`
}

func (c *Client) Register(ctx context.Context, name string, labels map[string]string) (*RegisterResponse, error) {
	var out RegisterResponse
	err := c.postJSON(ctx, "/workers/register", map[string]any{"name": name, "labels": labels}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Heartbeat(ctx context.Context, workerID uuid.UUID, status string) (*HeartbeatResponse, error) {
	var out HeartbeatResponse
	err := c.postJSON(ctx, "/workers/heartbeat", map[string]any{"worker_id": workerID, "status": status}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Poll asks for work. A null body means nothing is dispatchable.
func (c *Client) Poll(ctx context.Context, workerID uuid.UUID) (*services.DispatchEnvelope, error) {
	body, err := c.do(ctx, http.MethodPost, "/workers/poll?worker_id="+url.QueryEscape(workerID.String()), nil, "")
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, nil
	}
	var envelope services.DispatchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return &envelope, nil
}

func (c *Client) PostLogs(ctx context.Context, runID uuid.UUID, lines []services.LogLine) error {
	return c.postJSON(ctx, fmt.Sprintf("/workers/runs/%s/logs", runID), map[string]any{"lines": lines}, nil)
}

func (c *Client) UploadArtifact(ctx context.Context, runID uuid.UUID, filename string, data []byte, contentType string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/workers/runs/%s/artifacts", runID), buf.Bytes(), mw.FormDataContentType())
	return err
}

func (c *Client) CompleteRun(ctx context.Context, runID, workerID uuid.UUID, status, result string, exitCode *int) error {
	path := fmt.Sprintf("/workers/runs/%s/complete?worker_id=%s", runID, url.QueryEscape(workerID.String()))
	return c.postJSON(ctx, path, map[string]any{
		"status":    status,
		"result":    result,
		"exit_code": exitCode,
	}, nil)
}

func (c *Client) DownloadSkillFile(ctx context.Context, skillID, filePath string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/skills/%s/files/%s", skillID, filePath), nil, "")
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	respBody, err := c.do(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Workspace-ID", c.workspaceID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: server returned %d: %s", method, path, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
