package types

import (
	"time"

	"github.com/google/uuid"
)

type Artifact struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID    string    `gorm:"not null;index;column:workspace_id" json:"workspace_id"`
	RunID          uuid.UUID `gorm:"type:uuid;not null;index;column:run_id" json:"run_id"`
	Filename       string    `gorm:"not null;column:filename" json:"filename"`
	ContentType    string    `gorm:"not null;column:content_type" json:"content_type"`
	SizeBytes      int64     `gorm:"not null;column:size_bytes" json:"size_bytes"`
	ChecksumSHA256 string    `gorm:"not null;column:checksum_sha256" json:"checksum_sha256"`
	StoragePath    string    `gorm:"not null;column:storage_path" json:"storage_path"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

func (Artifact) TableName() string { return "artifacts" }
