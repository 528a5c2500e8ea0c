package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/block/flight-control/internal/middleware"
	"github.com/block/flight-control/internal/services"
)

type WorkspacesHandler struct {
	workspaces services.WorkspaceService
}

func NewWorkspacesHandler(workspaces services.WorkspaceService) *WorkspacesHandler {
	return &WorkspacesHandler{workspaces: workspaces}
}

// GET /api/v1/workspaces
func (h *WorkspacesHandler) List(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	workspaces, err := h.workspaces.ListForUser(c.Request.Context(), auth.User.ID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, workspaces)
}

// POST /api/v1/workspaces (admin only)
func (h *WorkspacesHandler) Create(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	var input services.WorkspaceCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	workspace, err := h.workspaces.Create(c.Request.Context(), input, auth.User.ID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, workspace)
}

// GET /api/v1/workspaces/:id/members
func (h *WorkspacesHandler) ListMembers(c *gin.Context) {
	workspaceID := c.Param("id")
	workspace, err := h.workspaces.Get(c.Request.Context(), workspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if workspace == nil {
		RespondError(c, http.StatusNotFound, "workspace_not_found", fmt.Errorf("workspace not found"))
		return
	}
	members, err := h.workspaces.ListMembers(c.Request.Context(), workspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, members)
}

// GET /api/v1/users/me
func (h *WorkspacesHandler) Me(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	RespondOK(c, gin.H{
		"user":         auth.User,
		"workspace_id": auth.WorkspaceID,
		"role":         auth.ApiKey.Role,
	})
}
