package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/storage"
	"github.com/block/flight-control/internal/types"
)

type ArtifactService interface {
	Save(ctx context.Context, runID uuid.UUID, filename string, data []byte, contentType, workspaceID string) (*types.Artifact, error)
	List(ctx context.Context, runID uuid.UUID) ([]*types.Artifact, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Artifact, error)
	ReadData(ctx context.Context, artifact *types.Artifact) ([]byte, error)
}

type artifactService struct {
	db        *gorm.DB
	log       *logger.Logger
	artifacts repos.ArtifactRepo
	store     storage.Store
}

func NewArtifactService(db *gorm.DB, baseLog *logger.Logger, artifacts repos.ArtifactRepo, store storage.Store) ArtifactService {
	return &artifactService{
		db:        db,
		log:       baseLog.With("service", "ArtifactService"),
		artifacts: artifacts,
		store:     store,
	}
}

func (s *artifactService) Save(ctx context.Context, runID uuid.UUID, filename string, data []byte, contentType, workspaceID string) (*types.Artifact, error) {
	sum := sha256.Sum256(data)
	storagePath := fmt.Sprintf("%s/%s", runID, filename)

	if err := s.store.Save(storagePath, data); err != nil {
		return nil, fmt.Errorf("save artifact bytes: %w", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	artifact := &types.Artifact{
		WorkspaceID:    workspaceID,
		RunID:          runID,
		Filename:       filename,
		ContentType:    contentType,
		SizeBytes:      int64(len(data)),
		ChecksumSHA256: hex.EncodeToString(sum[:]),
		StoragePath:    storagePath,
	}
	return s.artifacts.Create(ctx, nil, artifact)
}

func (s *artifactService) List(ctx context.Context, runID uuid.UUID) ([]*types.Artifact, error) {
	return s.artifacts.ListByRun(ctx, nil, runID)
}

func (s *artifactService) Get(ctx context.Context, id uuid.UUID) (*types.Artifact, error) {
	return s.artifacts.GetByID(ctx, nil, id)
}

func (s *artifactService) ReadData(ctx context.Context, artifact *types.Artifact) ([]byte, error) {
	return s.store.Read(artifact.StoragePath)
}
