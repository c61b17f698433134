package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID       uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID  uuid.UUID         `gorm:"type:uuid;index;column:actor_id" json:"actor_id"`
	Action   string            `gorm:"not null;index;column:action" json:"action"`
	Entity   string            `gorm:"column:entity" json:"entity"`
	EntityID uuid.UUID         `gorm:"type:uuid;column:entity_id" json:"entity_id"`
	Details  datatypes.JSONMap `gorm:"column:details" json:"details"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }
