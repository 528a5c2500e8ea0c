package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

type RunCreateInput struct {
	Name           string            `json:"name" binding:"required"`
	TaskPrompt     string            `json:"task_prompt" binding:"required"`
	AgentType      string            `json:"agent_type"`
	AgentConfig    datatypes.JSONMap `json:"agent_config"`
	MCPServers     datatypes.JSON    `json:"mcp_servers"`
	EnvVars        datatypes.JSONMap `json:"env_vars"`
	CredentialIDs  []string          `json:"credential_ids"`
	RequiredLabels datatypes.JSONMap `json:"required_labels"`
	SkillIDs       *[]string         `json:"skill_ids"`
	TimeoutSeconds *int              `json:"timeout_seconds"`
}

type RunService interface {
	List(ctx context.Context, workspaceID string, filter repos.RunFilter) ([]*types.JobRun, error)
	Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.JobRun, error)
	CreateAdhoc(ctx context.Context, input RunCreateInput, workspaceID string) (*types.JobRun, error)
}

type runService struct {
	db   *gorm.DB
	log  *logger.Logger
	runs repos.JobRunRepo
}

func NewRunService(db *gorm.DB, baseLog *logger.Logger, runs repos.JobRunRepo) RunService {
	return &runService{
		db:   db,
		log:  baseLog.With("service", "RunService"),
		runs: runs,
	}
}

func (s *runService) List(ctx context.Context, workspaceID string, filter repos.RunFilter) ([]*types.JobRun, error) {
	return s.runs.ListByWorkspace(ctx, nil, workspaceID, filter)
}

func (s *runService) Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.JobRun, error) {
	return s.runs.GetByID(ctx, nil, id, workspaceID)
}

func (s *runService) CreateAdhoc(ctx context.Context, input RunCreateInput, workspaceID string) (*types.JobRun, error) {
	run := &types.JobRun{
		WorkspaceID:         workspaceID,
		Status:              types.RunStatusQueued,
		Name:                input.Name,
		TaskPrompt:          input.TaskPrompt,
		AgentType:           "goose",
		AgentConfig:         input.AgentConfig,
		MCPServers:          input.MCPServers,
		EnvVars:             input.EnvVars,
		CredentialIDs:       datatypes.JSONSlice[string](input.CredentialIDs),
		RequiredLabels:      input.RequiredLabels,
		TimeoutSeconds:      1800,
		RetryBackoffSeconds: 60,
	}
	if input.AgentType != "" {
		run.AgentType = input.AgentType
	}
	if input.SkillIDs != nil {
		slice := datatypes.NewJSONSlice(*input.SkillIDs)
		run.SkillIDs = &slice
	}
	if input.TimeoutSeconds != nil {
		run.TimeoutSeconds = *input.TimeoutSeconds
	}
	return s.runs.Create(ctx, nil, run)
}
