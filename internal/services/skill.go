package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/skillmd"
	"github.com/block/flight-control/internal/storage"
	"github.com/block/flight-control/internal/types"
)

var ErrSkillExists = errors.New("skill already exists in this workspace")

type SkillUpdateInput struct {
	Description   *string `json:"description"`
	Instructions  *string `json:"instructions"`
	License       *string `json:"license"`
	Compatibility *string `json:"compatibility"`
	AllowedTools  *string `json:"allowed_tools"`
}

type SkillService interface {
	List(ctx context.Context, workspaceID string) ([]*types.Skill, error)
	Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.Skill, error)
	Files(ctx context.Context, skillID uuid.UUID) ([]*types.SkillFile, error)
	// Create registers a parsed skill plus its extra files. A rebuilt
	// SKILL.md is always stored alongside and counted in the aggregates.
	Create(ctx context.Context, parsed *skillmd.ParsedSkill, workspaceID string, files map[string][]byte) (*types.Skill, error)
	Update(ctx context.Context, id uuid.UUID, input SkillUpdateInput, workspaceID string) (*types.Skill, error)
	Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error)
	// FilePath resolves the on-disk location of a skill file for download.
	FilePath(workspaceID, skillName, filePath string) string
}

type skillService struct {
	db     *gorm.DB
	log    *logger.Logger
	skills repos.SkillRepo
	store  storage.Store
}

func NewSkillService(db *gorm.DB, baseLog *logger.Logger, skills repos.SkillRepo, store storage.Store) SkillService {
	return &skillService{
		db:     db,
		log:    baseLog.With("service", "SkillService"),
		skills: skills,
		store:  store,
	}
}

func (s *skillService) List(ctx context.Context, workspaceID string) ([]*types.Skill, error) {
	return s.skills.ListByWorkspace(ctx, nil, workspaceID)
}

func (s *skillService) Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.Skill, error) {
	return s.skills.GetByID(ctx, nil, id, workspaceID)
}

func (s *skillService) Files(ctx context.Context, skillID uuid.UUID) ([]*types.SkillFile, error) {
	return s.skills.ListFiles(ctx, nil, skillID)
}

func (s *skillService) Create(ctx context.Context, parsed *skillmd.ParsedSkill, workspaceID string, files map[string][]byte) (*types.Skill, error) {
	existing, err := s.skills.GetByName(ctx, nil, workspaceID, parsed.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("skill %q: %w", parsed.Name, ErrSkillExists)
	}

	metadata := datatypes.JSONMap{}
	for k, v := range parsed.Metadata {
		metadata[k] = v
	}

	allFiles := map[string][]byte{
		"SKILL.md": []byte(skillmd.Rebuild(parsed)),
	}
	for path, data := range files {
		allFiles[path] = data
	}

	var created *types.Skill
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skill, err := s.skills.Create(ctx, tx, &types.Skill{
			WorkspaceID:   workspaceID,
			Name:          parsed.Name,
			Description:   parsed.Description,
			Instructions:  parsed.Instructions,
			License:       parsed.License,
			Compatibility: parsed.Compatibility,
			Metadata:      metadata,
			AllowedTools:  parsed.AllowedTools,
		})
		if err != nil {
			return err
		}

		var totalSize int64
		fileCount := 0
		for path, data := range allFiles {
			if err := s.store.Save(s.relPath(workspaceID, parsed.Name, path), data); err != nil {
				return fmt.Errorf("write skill file %s: %w", path, err)
			}
			sum := sha256.Sum256(data)
			contentType := mime.TypeByExtension(filepath.Ext(path))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			if _, err := s.skills.CreateFile(ctx, tx, &types.SkillFile{
				SkillID:        skill.ID,
				FilePath:       path,
				SizeBytes:      int64(len(data)),
				ChecksumSHA256: hex.EncodeToString(sum[:]),
				ContentType:    contentType,
			}); err != nil {
				return err
			}
			totalSize += int64(len(data))
			fileCount++
		}

		skill.TotalSizeBytes = totalSize
		skill.FileCount = fileCount
		if err := s.skills.Save(ctx, tx, skill); err != nil {
			return err
		}
		created = skill
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Skill created", "skill_id", created.ID, "name", created.Name, "files", created.FileCount)
	return created, nil
}

func (s *skillService) Update(ctx context.Context, id uuid.UUID, input SkillUpdateInput, workspaceID string) (*types.Skill, error) {
	skill, err := s.skills.GetByID(ctx, nil, id, workspaceID)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, nil
	}
	if input.Description != nil {
		skill.Description = *input.Description
	}
	if input.Instructions != nil {
		skill.Instructions = *input.Instructions
	}
	if input.License != nil {
		skill.License = *input.License
	}
	if input.Compatibility != nil {
		skill.Compatibility = *input.Compatibility
	}
	if input.AllowedTools != nil {
		skill.AllowedTools = *input.AllowedTools
	}
	if err := s.skills.Save(ctx, nil, skill); err != nil {
		return nil, err
	}
	return skill, nil
}

func (s *skillService) Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error) {
	skill, err := s.skills.GetByID(ctx, nil, id, workspaceID)
	if err != nil {
		return false, err
	}
	if skill == nil {
		return false, nil
	}

	if err := s.store.DeleteTree(fmt.Sprintf("%s/%s", workspaceID, skill.Name)); err != nil {
		return false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.skills.DeleteFiles(ctx, tx, skill.ID); err != nil {
			return err
		}
		_, err := s.skills.Delete(ctx, tx, skill.ID, workspaceID)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *skillService) FilePath(workspaceID, skillName, filePath string) string {
	return s.store.AbsPath(s.relPath(workspaceID, skillName, filePath))
}

func (s *skillService) relPath(workspaceID, skillName, filePath string) string {
	return fmt.Sprintf("%s/%s/%s", workspaceID, skillName, filePath)
}
