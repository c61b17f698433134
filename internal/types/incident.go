package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Incident lifecycle: open -> in_progress -> resolved. Resolved is terminal.
const (
	IncidentStatusOpen       = "open"
	IncidentStatusInProgress = "in_progress"
	IncidentStatusResolved   = "resolved"
)

type SafetyIncident struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID         uuid.UUID                   `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	MessageID         uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex;column:message_id" json:"message_id"`
	TriggerKeywords   datatypes.JSONSlice[string] `gorm:"column:trigger_keywords" json:"trigger_keywords"`
	CounselorNotified bool                        `gorm:"not null;default:false;column:counselor_notified" json:"counselor_notified"`
	GuardianNotified  bool                        `gorm:"not null;default:false;column:guardian_notified" json:"guardian_notified"`
	Status            string                      `gorm:"not null;default:open;index;column:status" json:"status"`
	Notes             string                      `gorm:"column:notes" json:"notes"`
	ResolvedAt        *time.Time                  `gorm:"column:resolved_at" json:"resolved_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SafetyIncident) TableName() string { return "safety_incident" }
