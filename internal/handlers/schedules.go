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

type SchedulesHandler struct {
	schedules services.ScheduleService
}

func NewSchedulesHandler(schedules services.ScheduleService) *SchedulesHandler {
	return &SchedulesHandler{schedules: schedules}
}

// GET /api/v1/schedules
func (h *SchedulesHandler) List(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	schedules, err := h.schedules.List(c.Request.Context(), auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, schedules)
}

// POST /api/v1/schedules
func (h *SchedulesHandler) Create(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	var input services.ScheduleCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), input, auth.WorkspaceID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCron) {
			RespondError(c, http.StatusBadRequest, "invalid_cron", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, schedule)
}

// PUT /api/v1/schedules/:id
func (h *SchedulesHandler) Update(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_schedule_id", err)
		return
	}
	var input services.ScheduleUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	schedule, err := h.schedules.Update(c.Request.Context(), scheduleID, input, auth.WorkspaceID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCron) {
			RespondError(c, http.StatusBadRequest, "invalid_cron", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if schedule == nil {
		RespondError(c, http.StatusNotFound, "schedule_not_found", fmt.Errorf("schedule not found"))
		return
	}
	RespondOK(c, schedule)
}

// DELETE /api/v1/schedules/:id
func (h *SchedulesHandler) Delete(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_schedule_id", err)
		return
	}
	deleted, err := h.schedules.Delete(c.Request.Context(), scheduleID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if !deleted {
		RespondError(c, http.StatusNotFound, "schedule_not_found", fmt.Errorf("schedule not found"))
		return
	}
	c.Status(http.StatusNoContent)
}
