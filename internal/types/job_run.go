package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusQueued    = "queued"
	RunStatusAssigned  = "assigned"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusTimeout   = "timeout"
	RunStatusCancelled = "cancelled"
)

// RunStatusTerminal reports whether a status admits no further transitions.
func RunStatusTerminal(status string) bool {
	switch status {
	case RunStatusCompleted, RunStatusFailed, RunStatusTimeout, RunStatusCancelled:
		return true
	}
	return false
}

type JobRun struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID     string     `gorm:"not null;index;column:workspace_id" json:"workspace_id"`
	JobDefinitionID *uuid.UUID `gorm:"type:uuid;index;column:job_definition_id" json:"job_definition_id"` // nil for ad-hoc runs
	Status          string     `gorm:"not null;default:queued;index;column:status" json:"status"`
	WorkerID        *uuid.UUID `gorm:"type:uuid;column:worker_id" json:"worker_id"`

	// Snapshotted config at trigger time
	Name           string                       `gorm:"not null;column:name" json:"name"`
	TaskPrompt     string                       `gorm:"type:text;not null;column:task_prompt" json:"task_prompt"`
	AgentType      string                       `gorm:"not null;default:goose;column:agent_type" json:"agent_type"`
	AgentConfig    datatypes.JSONMap            `gorm:"column:agent_config" json:"agent_config"`
	MCPServers     datatypes.JSON               `gorm:"column:mcp_servers" json:"mcp_servers"`
	EnvVars        datatypes.JSONMap            `gorm:"column:env_vars" json:"env_vars"`
	CredentialIDs  datatypes.JSONSlice[string]  `gorm:"column:credential_ids" json:"credential_ids"`
	RequiredLabels datatypes.JSONMap            `gorm:"column:required_labels" json:"required_labels"`
	SkillIDs       *datatypes.JSONSlice[string] `gorm:"column:skill_ids" json:"skill_ids"`
	TimeoutSeconds int                          `gorm:"not null;default:1800;column:timeout_seconds" json:"timeout_seconds"`

	// Retry bookkeeping (snapshotted from the job definition)
	MaxRetries          int        `gorm:"not null;default:0;column:max_retries" json:"max_retries"`
	RetryBackoffSeconds int        `gorm:"not null;default:60;column:retry_backoff_seconds" json:"retry_backoff_seconds"`
	AttemptNumber       int        `gorm:"not null;default:1;column:attempt_number" json:"attempt_number"`
	ParentRunID         *uuid.UUID `gorm:"type:uuid;column:parent_run_id" json:"parent_run_id"`

	WebhookURL    string `gorm:"column:webhook_url" json:"webhook_url"`
	WebhookSecret string `gorm:"column:webhook_secret" json:"-"`

	ScheduledAt *time.Time `gorm:"column:scheduled_at;index" json:"scheduled_at"` // future activation; nil = immediate
	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`
	Result      string     `gorm:"type:text;column:result" json:"result"`
	ExitCode    *int       `gorm:"column:exit_code" json:"exit_code"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_runs" }
