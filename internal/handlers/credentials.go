package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/block/flight-control/internal/middleware"
	"github.com/block/flight-control/internal/services"
)

type CredentialsHandler struct {
	credentials services.CredentialService
}

func NewCredentialsHandler(credentials services.CredentialService) *CredentialsHandler {
	return &CredentialsHandler{credentials: credentials}
}

// GET /api/v1/credentials
func (h *CredentialsHandler) List(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	creds, err := h.credentials.List(c.Request.Context(), auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, creds)
}

// POST /api/v1/credentials
func (h *CredentialsHandler) Create(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	var input services.CredentialCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	cred, err := h.credentials.Create(c.Request.Context(), input, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, cred)
}

// PUT /api/v1/credentials/:id
func (h *CredentialsHandler) Update(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	credID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_credential_id", err)
		return
	}
	var input services.CredentialUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	cred, err := h.credentials.Update(c.Request.Context(), credID, input, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if cred == nil {
		RespondError(c, http.StatusNotFound, "credential_not_found", fmt.Errorf("credential not found"))
		return
	}
	RespondOK(c, cred)
}

// DELETE /api/v1/credentials/:id
func (h *CredentialsHandler) Delete(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	credID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_credential_id", err)
		return
	}
	deleted, err := h.credentials.Delete(c.Request.Context(), credID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if !deleted {
		RespondError(c, http.StatusNotFound, "credential_not_found", fmt.Errorf("credential not found"))
		return
	}
	c.Status(http.StatusNoContent)
}
