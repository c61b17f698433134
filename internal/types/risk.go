package types

import (
	"time"

	"github.com/google/uuid"
)

// Risk bands derived from the overall score. Snapshots are append-only.
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

type RiskScore struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID            uuid.UUID `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	AttendanceScore      float64   `gorm:"not null;column:attendance_score" json:"attendance_score"`
	TestPerformanceScore float64   `gorm:"not null;column:test_performance_score" json:"test_performance_score"`
	FeePaymentScore      float64   `gorm:"not null;column:fee_payment_score" json:"fee_payment_score"`
	ChatBehaviorScore    float64   `gorm:"not null;column:chat_behavior_score" json:"chat_behavior_score"`
	OverallScore         float64   `gorm:"not null;column:overall_score" json:"overall_score"`
	RiskLevel            string    `gorm:"not null;index;column:risk_level" json:"risk_level"`
	CalculatedAt         time.Time `gorm:"not null;index;column:calculated_at" json:"calculated_at"`
}

func (RiskScore) TableName() string { return "risk_score" }
