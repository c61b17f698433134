package types

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID      uuid.UUID `gorm:"type:uuid;not null;index;column:sender_id" json:"sender_id"`
	Message       string    `gorm:"not null;column:message" json:"message"`
	IsPrivate     bool      `gorm:"not null;default:true;column:is_private" json:"is_private"`
	FlaggedForSOS bool      `gorm:"not null;default:false;index;column:flagged_for_sos" json:"flagged_for_sos"`
	ExpiresAt     time.Time `gorm:"not null;index;column:expires_at" json:"expires_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }
