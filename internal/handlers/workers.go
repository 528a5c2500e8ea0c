package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/block/flight-control/internal/middleware"
	"github.com/block/flight-control/internal/services"
)

type WorkersHandler struct {
	workers   services.WorkerService
	dispatch  services.DispatchService
	lifecycle services.LifecycleService
	logs      services.LogService
	artifacts services.ArtifactService
}

func NewWorkersHandler(workers services.WorkerService, dispatch services.DispatchService, lifecycle services.LifecycleService, logs services.LogService, artifacts services.ArtifactService) *WorkersHandler {
	return &WorkersHandler{
		workers:   workers,
		dispatch:  dispatch,
		lifecycle: lifecycle,
		logs:      logs,
		artifacts: artifacts,
	}
}

// POST /api/v1/workers/register
func (h *WorkersHandler) Register(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	var input services.WorkerRegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	worker, err := h.workers.Register(c.Request.Context(), input, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, gin.H{"id": worker.ID, "name": worker.Name})
}

type heartbeatRequest struct {
	WorkerID uuid.UUID `json:"worker_id" binding:"required"`
	Status   string    `json:"status"`
}

// POST /api/v1/workers/heartbeat
func (h *WorkersHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	worker, cancelled, err := h.workers.Heartbeat(c.Request.Context(), req.WorkerID, req.Status)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if worker == nil {
		RespondError(c, http.StatusNotFound, "worker_not_found", fmt.Errorf("worker not found"))
		return
	}
	RespondOK(c, gin.H{"status": "ok", "run_cancelled": cancelled})
}

// POST /api/v1/workers/poll?worker_id=...
func (h *WorkersHandler) Poll(c *gin.Context) {
	workerID, err := uuid.Parse(c.Query("worker_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_worker_id", err)
		return
	}
	envelope, err := h.dispatch.Poll(c.Request.Context(), workerID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if envelope == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	RespondOK(c, envelope)
}

type logBatchRequest struct {
	Lines []services.LogLine `json:"lines" binding:"required"`
}

// POST /api/v1/workers/runs/:run_id/logs
func (h *WorkersHandler) PostLogs(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	var req logBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	count, err := h.logs.Append(c.Request.Context(), runID, req.Lines)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"appended": count})
}

// POST /api/v1/workers/runs/:run_id/artifacts (multipart form, field "file")
func (h *WorkersHandler) UploadArtifact(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	filename := fileHeader.Filename
	if filename == "" {
		filename = "unnamed"
	}
	artifact, err := h.artifacts.Save(c.Request.Context(), runID, filename, data, fileHeader.Header.Get("Content-Type"), auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, artifact)
}

type completeRequest struct {
	Status   string `json:"status" binding:"required"`
	Result   string `json:"result"`
	ExitCode *int   `json:"exit_code"`
}

// POST /api/v1/workers/runs/:run_id/complete?worker_id=...
func (h *WorkersHandler) Complete(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	workerID := uuid.Nil
	if workerIDStr := c.Query("worker_id"); workerIDStr != "" {
		workerID, err = uuid.Parse(workerIDStr)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_worker_id", err)
			return
		}
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	run, err := h.lifecycle.CompleteRun(c.Request.Context(), workerID, runID, req.Status, req.Result, req.ExitCode)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run not found"))
		return
	}
	RespondOK(c, gin.H{"status": run.Status})
}
