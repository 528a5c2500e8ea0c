package types

import (
	"time"

	"github.com/google/uuid"
)

const DefaultWorkspaceID = "default"

type Workspace struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Workspace) TableName() string { return "workspaces" }

type WorkspaceMember struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID string    `gorm:"not null;uniqueIndex:idx_workspace_member;column:workspace_id" json:"workspace_id"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_workspace_member;column:user_id" json:"user_id"`
	Role        string    `gorm:"not null;column:role" json:"role"` // owner|admin|member
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (WorkspaceMember) TableName() string { return "workspace_members" }
