package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

type JobRun struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	JobType    string            `gorm:"not null;index;column:job_type" json:"job_type"`
	Status     string            `gorm:"not null;default:queued;index;column:status" json:"status"`
	Payload    datatypes.JSONMap `gorm:"column:payload" json:"payload"`
	Attempts   int               `gorm:"not null;default:0;column:attempts" json:"attempts"`
	LastError  string            `gorm:"column:last_error" json:"last_error"`
	RunAt      time.Time         `gorm:"not null;index;column:run_at" json:"run_at"`
	StartedAt  *time.Time        `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time        `gorm:"column:finished_at" json:"finished_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
