package types

import (
	"time"

	"github.com/google/uuid"
)

type Credential struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID    string    `gorm:"not null;uniqueIndex:idx_credential_name;column:workspace_id" json:"workspace_id"`
	Name           string    `gorm:"not null;uniqueIndex:idx_credential_name;column:name" json:"name"`
	EnvVar         string    `gorm:"not null;column:env_var" json:"env_var"`
	EncryptedValue string    `gorm:"not null;column:encrypted_value" json:"-"`
	Description    string    `gorm:"column:description" json:"description"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Credential) TableName() string { return "credentials" }
