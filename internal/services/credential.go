package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/secrets"
	"github.com/block/flight-control/internal/types"
)

type CredentialCreateInput struct {
	Name        string `json:"name" binding:"required"`
	EnvVar      string `json:"env_var" binding:"required"`
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

type CredentialUpdateInput struct {
	Name        *string `json:"name"`
	EnvVar      *string `json:"env_var"`
	Value       *string `json:"value"`
	Description *string `json:"description"`
}

// CredentialService stores workspace credentials encrypted at rest.
// Plaintext leaves the box only inside the dispatch envelope builder.
type CredentialService interface {
	List(ctx context.Context, workspaceID string) ([]*types.Credential, error)
	Create(ctx context.Context, input CredentialCreateInput, workspaceID string) (*types.Credential, error)
	Update(ctx context.Context, id uuid.UUID, input CredentialUpdateInput, workspaceID string) (*types.Credential, error)
	Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error)
}

type credentialService struct {
	db          *gorm.DB
	log         *logger.Logger
	credentials repos.CredentialRepo
	box         *secrets.Box
}

func NewCredentialService(db *gorm.DB, baseLog *logger.Logger, credentials repos.CredentialRepo, box *secrets.Box) CredentialService {
	return &credentialService{
		db:          db,
		log:         baseLog.With("service", "CredentialService"),
		credentials: credentials,
		box:         box,
	}
}

func (s *credentialService) List(ctx context.Context, workspaceID string) ([]*types.Credential, error) {
	return s.credentials.ListByWorkspace(ctx, nil, workspaceID)
}

func (s *credentialService) Create(ctx context.Context, input CredentialCreateInput, workspaceID string) (*types.Credential, error) {
	encrypted, err := s.box.Encrypt(input.Value)
	if err != nil {
		return nil, err
	}
	return s.credentials.Create(ctx, nil, &types.Credential{
		WorkspaceID:    workspaceID,
		Name:           input.Name,
		EnvVar:         input.EnvVar,
		EncryptedValue: encrypted,
		Description:    input.Description,
	})
}

func (s *credentialService) Update(ctx context.Context, id uuid.UUID, input CredentialUpdateInput, workspaceID string) (*types.Credential, error) {
	cred, err := s.credentials.GetByID(ctx, nil, id, workspaceID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, nil
	}
	if input.Name != nil {
		cred.Name = *input.Name
	}
	if input.EnvVar != nil {
		cred.EnvVar = *input.EnvVar
	}
	if input.Value != nil {
		encrypted, err := s.box.Encrypt(*input.Value)
		if err != nil {
			return nil, err
		}
		cred.EncryptedValue = encrypted
	}
	if input.Description != nil {
		cred.Description = *input.Description
	}
	if err := s.credentials.Save(ctx, nil, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

func (s *credentialService) Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error) {
	return s.credentials.Delete(ctx, nil, id, workspaceID)
}
