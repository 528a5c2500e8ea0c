package types

import (
	"time"

	"github.com/google/uuid"
)

type Schedule struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID     string     `gorm:"not null;index;column:workspace_id" json:"workspace_id"`
	JobDefinitionID uuid.UUID  `gorm:"type:uuid;not null;index;column:job_definition_id" json:"job_definition_id"`
	Name            string     `gorm:"column:name" json:"name"`
	CronExpression  string     `gorm:"not null;column:cron_expression" json:"cron_expression"`
	Enabled         bool       `gorm:"not null;default:true;index;column:enabled" json:"enabled"`
	NextRunAt       *time.Time `gorm:"column:next_run_at;index" json:"next_run_at"`
	LastRunAt       *time.Time `gorm:"column:last_run_at" json:"last_run_at"`
	LastRunID       *uuid.UUID `gorm:"type:uuid;column:last_run_id" json:"last_run_id"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Schedule) TableName() string { return "schedules" }
