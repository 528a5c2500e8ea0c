package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	WorkerStatusOnline  = "online"
	WorkerStatusBusy    = "busy"
	WorkerStatusOffline = "offline"
)

type Worker struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID   string            `gorm:"not null;index;column:workspace_id" json:"workspace_id"`
	Name          string            `gorm:"not null;column:name" json:"name"`
	Status        string            `gorm:"not null;default:online;index;column:status" json:"status"`
	Labels        datatypes.JSONMap `gorm:"column:labels" json:"labels"`
	LastHeartbeat time.Time         `gorm:"not null;index;column:last_heartbeat" json:"last_heartbeat"`
	CurrentRunID  *uuid.UUID        `gorm:"type:uuid;column:current_run_id" json:"current_run_id"`
	CreatedAt     time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Worker) TableName() string { return "workers" }
