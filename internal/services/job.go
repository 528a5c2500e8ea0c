package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/repos"
	"github.com/block/flight-control/internal/types"
)

var ErrJobNotFound = errors.New("job definition not found")

type JobDefinitionInput struct {
	Name                string            `json:"name" binding:"required"`
	Description         string            `json:"description"`
	TaskPrompt          string            `json:"task_prompt" binding:"required"`
	AgentType           string            `json:"agent_type"`
	AgentConfig         datatypes.JSONMap `json:"agent_config"`
	MCPServers          datatypes.JSON    `json:"mcp_servers"`
	EnvVars             datatypes.JSONMap `json:"env_vars"`
	CredentialIDs       []string          `json:"credential_ids"`
	Labels              datatypes.JSONMap `json:"labels"`
	SkillIDs            *[]string         `json:"skill_ids"`
	TimeoutSeconds      *int              `json:"timeout_seconds"`
	MaxRetries          *int              `json:"max_retries"`
	RetryBackoffSeconds *int              `json:"retry_backoff_seconds"`
	WebhookURL          *string           `json:"webhook_url"`
	WebhookSecret       *string           `json:"webhook_secret"`
}

type JobService interface {
	List(ctx context.Context, workspaceID string) ([]*types.JobDefinition, error)
	Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.JobDefinition, error)
	Create(ctx context.Context, input JobDefinitionInput, workspaceID string) (*types.JobDefinition, error)
	Update(ctx context.Context, id uuid.UUID, input JobDefinitionInput, workspaceID string) (*types.JobDefinition, error)
	Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error)
	// TriggerRun snapshots the job definition into a fresh queued run. Job
	// labels are copied into the run's required_labels at trigger time;
	// later edits to the job do not retouch queued runs.
	TriggerRun(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, workspaceID string) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	jobs repos.JobDefinitionRepo
	runs repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobDefinitionRepo, runs repos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		jobs: jobs,
		runs: runs,
	}
}

func (s *jobService) List(ctx context.Context, workspaceID string) ([]*types.JobDefinition, error) {
	return s.jobs.ListByWorkspace(ctx, nil, workspaceID)
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID, workspaceID string) (*types.JobDefinition, error) {
	return s.jobs.GetByID(ctx, nil, id, workspaceID)
}

func (s *jobService) Create(ctx context.Context, input JobDefinitionInput, workspaceID string) (*types.JobDefinition, error) {
	job := &types.JobDefinition{
		WorkspaceID:         workspaceID,
		Name:                input.Name,
		Description:         input.Description,
		TaskPrompt:          input.TaskPrompt,
		AgentType:           "goose",
		AgentConfig:         input.AgentConfig,
		MCPServers:          input.MCPServers,
		EnvVars:             input.EnvVars,
		CredentialIDs:       datatypes.JSONSlice[string](input.CredentialIDs),
		Labels:              input.Labels,
		TimeoutSeconds:      1800,
		RetryBackoffSeconds: 60,
	}
	if input.AgentType != "" {
		job.AgentType = input.AgentType
	}
	if input.SkillIDs != nil {
		slice := datatypes.NewJSONSlice(*input.SkillIDs)
		job.SkillIDs = &slice
	}
	if input.TimeoutSeconds != nil {
		job.TimeoutSeconds = *input.TimeoutSeconds
	}
	if input.MaxRetries != nil {
		job.MaxRetries = *input.MaxRetries
	}
	if input.RetryBackoffSeconds != nil {
		job.RetryBackoffSeconds = *input.RetryBackoffSeconds
	}
	if input.WebhookURL != nil {
		job.WebhookURL = *input.WebhookURL
	}
	if input.WebhookSecret != nil {
		job.WebhookSecret = *input.WebhookSecret
	}
	return s.jobs.Create(ctx, nil, job)
}

func (s *jobService) Update(ctx context.Context, id uuid.UUID, input JobDefinitionInput, workspaceID string) (*types.JobDefinition, error) {
	job, err := s.jobs.GetByID(ctx, nil, id, workspaceID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	if input.Name != "" {
		job.Name = input.Name
	}
	if input.Description != "" {
		job.Description = input.Description
	}
	if input.TaskPrompt != "" {
		job.TaskPrompt = input.TaskPrompt
	}
	if input.AgentType != "" {
		job.AgentType = input.AgentType
	}
	if input.AgentConfig != nil {
		job.AgentConfig = input.AgentConfig
	}
	if input.MCPServers != nil {
		job.MCPServers = input.MCPServers
	}
	if input.EnvVars != nil {
		job.EnvVars = input.EnvVars
	}
	if input.CredentialIDs != nil {
		job.CredentialIDs = datatypes.JSONSlice[string](input.CredentialIDs)
	}
	if input.Labels != nil {
		job.Labels = input.Labels
	}
	if input.SkillIDs != nil {
		slice := datatypes.NewJSONSlice(*input.SkillIDs)
		job.SkillIDs = &slice
	}
	if input.TimeoutSeconds != nil {
		job.TimeoutSeconds = *input.TimeoutSeconds
	}
	if input.MaxRetries != nil {
		job.MaxRetries = *input.MaxRetries
	}
	if input.RetryBackoffSeconds != nil {
		job.RetryBackoffSeconds = *input.RetryBackoffSeconds
	}
	if input.WebhookURL != nil {
		job.WebhookURL = *input.WebhookURL
	}
	if input.WebhookSecret != nil {
		job.WebhookSecret = *input.WebhookSecret
	}
	if err := s.jobs.Save(ctx, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *jobService) Delete(ctx context.Context, id uuid.UUID, workspaceID string) (bool, error) {
	return s.jobs.Delete(ctx, nil, id, workspaceID)
}

func (s *jobService) TriggerRun(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, workspaceID string) (*types.JobRun, error) {
	job, err := s.jobs.GetByID(ctx, tx, jobID, workspaceID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}

	jobDefinitionID := job.ID
	run := &types.JobRun{
		WorkspaceID:         job.WorkspaceID,
		JobDefinitionID:     &jobDefinitionID,
		Status:              types.RunStatusQueued,
		Name:                job.Name,
		TaskPrompt:          job.TaskPrompt,
		AgentType:           job.AgentType,
		AgentConfig:         job.AgentConfig,
		MCPServers:          job.MCPServers,
		EnvVars:             job.EnvVars,
		CredentialIDs:       job.CredentialIDs,
		RequiredLabels:      job.Labels,
		SkillIDs:            job.SkillIDs,
		TimeoutSeconds:      job.TimeoutSeconds,
		MaxRetries:          job.MaxRetries,
		RetryBackoffSeconds: job.RetryBackoffSeconds,
		WebhookURL:          job.WebhookURL,
		WebhookSecret:       job.WebhookSecret,
	}
	created, err := s.runs.Create(ctx, tx, run)
	if err != nil {
		return nil, err
	}
	s.log.Info("Run triggered from job", "run_id", created.ID, "job_id", job.ID, "workspace_id", job.WorkspaceID)
	return created, nil
}
