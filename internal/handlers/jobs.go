package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/block/flight-control/internal/middleware"
	"github.com/block/flight-control/internal/services"
)

type JobsHandler struct {
	jobs services.JobService
}

func NewJobsHandler(jobs services.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// GET /api/v1/jobs
func (h *JobsHandler) List(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	jobs, err := h.jobs.List(c.Request.Context(), auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, jobs)
}

// POST /api/v1/jobs
func (h *JobsHandler) Create(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	var input services.JobDefinitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), input, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, job)
}

// GET /api/v1/jobs/:id
func (h *JobsHandler) Get(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), jobID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job not found"))
		return
	}
	RespondOK(c, job)
}

// PUT /api/v1/jobs/:id
func (h *JobsHandler) Update(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	var input services.JobDefinitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	job, err := h.jobs.Update(c.Request.Context(), jobID, input, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job not found"))
		return
	}
	RespondOK(c, job)
}

// DELETE /api/v1/jobs/:id
func (h *JobsHandler) Delete(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	deleted, err := h.jobs.Delete(c.Request.Context(), jobID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if !deleted {
		RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/jobs/:id/run
func (h *JobsHandler) Trigger(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	run, err := h.jobs.TriggerRun(c.Request.Context(), nil, jobID, auth.WorkspaceID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, run)
}
