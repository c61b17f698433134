package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentProfile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`
	StudentNumber string    `gorm:"not null;uniqueIndex;column:student_number" json:"student_number"`
	ClassName     string    `gorm:"column:class_name" json:"class_name"`
	Grade         string    `gorm:"column:grade" json:"grade"`
	GuardianName  string    `gorm:"column:guardian_name" json:"guardian_name"`
	GuardianPhone string    `gorm:"column:guardian_phone" json:"guardian_phone"`
	GuardianEmail string    `gorm:"column:guardian_email" json:"guardian_email"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudentProfile) TableName() string { return "student_profile" }

type AttendanceRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	Date      time.Time `gorm:"not null;index;column:date" json:"date"`
	Present   bool      `gorm:"not null;column:present" json:"present"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AttendanceRecord) TableName() string { return "attendance_record" }

type TestRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	Subject   string    `gorm:"not null;column:subject" json:"subject"`
	TestName  string    `gorm:"not null;column:test_name" json:"test_name"`
	Score     float64   `gorm:"not null;column:score" json:"score"`
	MaxScore  float64   `gorm:"not null;column:max_score" json:"max_score"`
	TestDate  time.Time `gorm:"not null;index;column:test_date" json:"test_date"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (TestRecord) TableName() string { return "test_record" }

type FeeRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID  `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	Amount    float64    `gorm:"not null;column:amount" json:"amount"`
	DueDate   time.Time  `gorm:"not null;column:due_date" json:"due_date"`
	PaidDate  *time.Time `gorm:"column:paid_date" json:"paid_date,omitempty"`
	IsPaid    bool       `gorm:"not null;default:false;column:is_paid" json:"is_paid"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (FeeRecord) TableName() string { return "fee_record" }
