package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/block/flight-control/internal/middleware"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/services"
)

type RunsHandler struct {
	runs      services.RunService
	lifecycle services.LifecycleService
	logs      services.LogService
	artifacts services.ArtifactService
}

func NewRunsHandler(runs services.RunService, lifecycle services.LifecycleService, logs services.LogService, artifacts services.ArtifactService) *RunsHandler {
	return &RunsHandler{runs: runs, lifecycle: lifecycle, logs: logs, artifacts: artifacts}
}

// GET /api/v1/runs
func (h *RunsHandler) List(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	filter := repos.RunFilter{Status: c.Query("status")}
	if jobIDStr := c.Query("job_id"); jobIDStr != "" {
		jobID, err := uuid.Parse(jobIDStr)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
			return
		}
		filter.JobDefinitionID = &jobID
	}
	runs, err := h.runs.List(c.Request.Context(), auth.WorkspaceID, filter)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, runs)
}

// POST /api/v1/runs
func (h *RunsHandler) Create(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	var input services.RunCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	run, err := h.runs.CreateAdhoc(c.Request.Context(), input, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, run)
}

// GET /api/v1/runs/:id
func (h *RunsHandler) Get(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.runs.Get(c.Request.Context(), runID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run not found"))
		return
	}
	RespondOK(c, run)
}

// POST /api/v1/runs/:id/cancel
func (h *RunsHandler) Cancel(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.lifecycle.CancelRun(c.Request.Context(), runID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusBadRequest, "cannot_cancel", fmt.Errorf("run cannot be cancelled"))
		return
	}
	RespondOK(c, run)
}

// GET /api/v1/runs/:id/logs?after=N
func (h *RunsHandler) GetLogs(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.runs.Get(c.Request.Context(), runID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run not found"))
		return
	}

	after := 0
	if afterStr := c.Query("after"); afterStr != "" {
		after, err = strconv.Atoi(afterStr)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_after", err)
			return
		}
	}
	entries, err := h.logs.GetLogs(c.Request.Context(), runID, after)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, entries)
}

// GET /api/v1/runs/:id/logs/stream
func (h *RunsHandler) StreamLogs(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.runs.Get(c.Request.Context(), runID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run not found"))
		return
	}

	sub := h.logs.Subscribe(runID)
	defer h.logs.Unsubscribe(sub)
	h.logs.ServeSSE(c.Writer, c.Request, sub)
}

// GET /api/v1/runs/:id/artifacts
func (h *RunsHandler) ListArtifacts(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.runs.Get(c.Request.Context(), runID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run not found"))
		return
	}
	artifacts, err := h.artifacts.List(c.Request.Context(), runID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, artifacts)
}

// GET /api/v1/runs/:id/artifacts/:aid
func (h *RunsHandler) DownloadArtifact(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	artifactID, err := uuid.Parse(c.Param("aid"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_artifact_id", err)
		return
	}
	run, err := h.runs.Get(c.Request.Context(), runID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run not found"))
		return
	}
	artifact, err := h.artifacts.Get(c.Request.Context(), artifactID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if artifact == nil || artifact.RunID != runID {
		RespondError(c, http.StatusNotFound, "artifact_not_found", fmt.Errorf("artifact not found"))
		return
	}
	data, err := h.artifacts.ReadData(c.Request.Context(), artifact)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.ContentType, data)
}
