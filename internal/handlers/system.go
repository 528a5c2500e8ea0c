package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/block/flight-control/internal/services"
	"github.com/block/flight-control/internal/types"
)

type SystemHandler struct {
	workers services.WorkerService
	metrics services.MetricsService
}

func NewSystemHandler(workers services.WorkerService, metrics services.MetricsService) *SystemHandler {
	return &SystemHandler{workers: workers, metrics: metrics}
}

// GET /api/v1/system/workers
func (h *SystemHandler) ListWorkers(c *gin.Context) {
	workers, err := h.workers.List(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, workers)
}

// GET /api/v1/system/metrics
func (h *SystemHandler) Metrics(c *gin.Context) {
	// Reap stale workers before counting so the snapshot is honest.
	if _, err := h.workers.List(c.Request.Context()); err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	runCounts, workerCounts, err := h.metrics.Snapshot(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{
		"runs":        runCounts,
		"workers":     workerCounts,
		"queue_depth": runCounts[types.RunStatusQueued],
	})
}
