package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Skill struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID    string            `gorm:"not null;uniqueIndex:idx_skill_name;column:workspace_id" json:"workspace_id"`
	Name           string            `gorm:"not null;uniqueIndex:idx_skill_name;column:name" json:"name"`
	Description    string            `gorm:"not null;column:description" json:"description"`
	Instructions   string            `gorm:"type:text;not null;column:instructions" json:"instructions"`
	License        string            `gorm:"column:license" json:"license,omitempty"`
	Compatibility  string            `gorm:"column:compatibility" json:"compatibility,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	AllowedTools   string            `gorm:"column:allowed_tools" json:"allowed_tools,omitempty"`
	TotalSizeBytes int64             `gorm:"not null;default:0;column:total_size_bytes" json:"total_size_bytes"`
	FileCount      int               `gorm:"not null;default:0;column:file_count" json:"file_count"`
	CreatedAt      time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`
}

func (Skill) TableName() string { return "skills" }

type SkillFile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SkillID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_skill_file;column:skill_id" json:"skill_id"`
	FilePath       string    `gorm:"not null;uniqueIndex:idx_skill_file;column:file_path" json:"file_path"`
	SizeBytes      int64     `gorm:"not null;column:size_bytes" json:"size_bytes"`
	ChecksumSHA256 string    `gorm:"not null;column:checksum_sha256" json:"checksum_sha256"`
	ContentType    string    `gorm:"not null;column:content_type" json:"content_type"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (SkillFile) TableName() string { return "skill_files" }
