package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobDefinition struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID string    `gorm:"not null;index;column:workspace_id" json:"workspace_id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	TaskPrompt  string    `gorm:"type:text;not null;column:task_prompt" json:"task_prompt"`
	AgentType   string    `gorm:"not null;default:goose;column:agent_type" json:"agent_type"`

	AgentConfig   datatypes.JSONMap            `gorm:"column:agent_config" json:"agent_config"`
	MCPServers    datatypes.JSON               `gorm:"column:mcp_servers" json:"mcp_servers"`
	EnvVars       datatypes.JSONMap            `gorm:"column:env_vars" json:"env_vars"`
	CredentialIDs datatypes.JSONSlice[string]  `gorm:"column:credential_ids" json:"credential_ids"`
	Labels        datatypes.JSONMap            `gorm:"column:labels" json:"labels"`
	SkillIDs      *datatypes.JSONSlice[string] `gorm:"column:skill_ids" json:"skill_ids"` // nil=all workspace skills, []=none, else named set

	TimeoutSeconds      int `gorm:"not null;default:1800;column:timeout_seconds" json:"timeout_seconds"`
	MaxRetries          int `gorm:"not null;default:0;column:max_retries" json:"max_retries"`
	RetryBackoffSeconds int `gorm:"not null;default:60;column:retry_backoff_seconds" json:"retry_backoff_seconds"`

	WebhookURL    string `gorm:"column:webhook_url" json:"webhook_url"`
	WebhookSecret string `gorm:"column:webhook_secret" json:"-"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (JobDefinition) TableName() string { return "job_definitions" }
