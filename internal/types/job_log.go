package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	LogStreamStdout = "stdout"
	LogStreamStderr = "stderr"
)

type JobLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_run_sequence;column:run_id" json:"run_id"`
	Sequence  int       `gorm:"not null;uniqueIndex:idx_run_sequence;column:sequence" json:"sequence"`
	Stream    string    `gorm:"not null;default:stdout;column:stream" json:"stream"`
	Line      string    `gorm:"type:text;not null;column:line" json:"line"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (JobLog) TableName() string { return "job_logs" }
