package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/block/flight-control/internal/middleware"
	"github.com/block/flight-control/internal/services"
	"github.com/block/flight-control/internal/skillmd"
)

type SkillsHandler struct {
	skills services.SkillService
}

func NewSkillsHandler(skills services.SkillService) *SkillsHandler {
	return &SkillsHandler{skills: skills}
}

// GET /api/v1/skills
func (h *SkillsHandler) List(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	skills, err := h.skills.List(c.Request.Context(), auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, skills)
}

// GET /api/v1/skills/:id
func (h *SkillsHandler) Get(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	skillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_skill_id", err)
		return
	}
	skill, err := h.skills.Get(c.Request.Context(), skillID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if skill == nil {
		RespondError(c, http.StatusNotFound, "skill_not_found", fmt.Errorf("skill not found"))
		return
	}
	files, err := h.skills.Files(c.Request.Context(), skillID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"skill": skill, "files": files})
}

// POST /api/v1/skills (multipart: skill_md + optional files[] or zip_file)
func (h *SkillsHandler) Upload(c *gin.Context) {
	auth := middleware.GetAuthContext(c)

	skillMdHeader, err := c.FormFile("skill_md")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_skill_md", fmt.Errorf("skill_md file is required"))
		return
	}
	skillMdData, err := readFormFile(skillMdHeader.Open())
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_skill_md", err)
		return
	}

	parsed, err := skillmd.Parse(string(skillMdData))
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "invalid_skill_md", err)
		return
	}

	extraFiles := map[string][]byte{}
	form, _ := c.MultipartForm()
	if form != nil {
		if zipFiles := form.File["zip_file"]; len(zipFiles) > 0 {
			zipData, err := readFormFile(zipFiles[0].Open())
			if err != nil {
				RespondError(c, http.StatusBadRequest, "invalid_zip", err)
				return
			}
			extraFiles, err = skillmd.ExtractZip(zipData)
			if err != nil {
				RespondError(c, http.StatusUnprocessableEntity, "unsafe_zip", err)
				return
			}
		} else {
			for _, fh := range form.File["files"] {
				data, err := readFormFile(fh.Open())
				if err != nil {
					RespondError(c, http.StatusBadRequest, "invalid_file", err)
					return
				}
				if fh.Filename != "" {
					extraFiles[fh.Filename] = data
				}
			}
		}
	}

	skill, err := h.skills.Create(c.Request.Context(), parsed, auth.WorkspaceID, extraFiles)
	if err != nil {
		if errors.Is(err, services.ErrSkillExists) {
			RespondError(c, http.StatusConflict, "skill_exists", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondCreated(c, skill)
}

// PUT /api/v1/skills/:id
func (h *SkillsHandler) Update(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	skillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_skill_id", err)
		return
	}
	var input services.SkillUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	skill, err := h.skills.Update(c.Request.Context(), skillID, input, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if skill == nil {
		RespondError(c, http.StatusNotFound, "skill_not_found", fmt.Errorf("skill not found"))
		return
	}
	RespondOK(c, skill)
}

// DELETE /api/v1/skills/:id
func (h *SkillsHandler) Delete(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	skillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_skill_id", err)
		return
	}
	deleted, err := h.skills.Delete(c.Request.Context(), skillID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if !deleted {
		RespondError(c, http.StatusNotFound, "skill_not_found", fmt.Errorf("skill not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/skills/:id/files/*path
func (h *SkillsHandler) DownloadFile(c *gin.Context) {
	auth := middleware.GetAuthContext(c)
	skillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_skill_id", err)
		return
	}
	skill, err := h.skills.Get(c.Request.Context(), skillID, auth.WorkspaceID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if skill == nil {
		RespondError(c, http.StatusNotFound, "skill_not_found", fmt.Errorf("skill not found"))
		return
	}

	filePath := c.Param("path")
	if len(filePath) > 0 && filePath[0] == '/' {
		filePath = filePath[1:]
	}
	if strings.Contains(filePath, "..") {
		RespondError(c, http.StatusNotFound, "file_not_found", fmt.Errorf("file not found"))
		return
	}
	absPath := h.skills.FilePath(auth.WorkspaceID, skill.Name, filePath)
	if info, err := os.Stat(absPath); err != nil || info.IsDir() {
		RespondError(c, http.StatusNotFound, "file_not_found", fmt.Errorf("file not found"))
		return
	}
	c.FileAttachment(absPath, filePath)
}

func readFormFile(f multipart.File, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
