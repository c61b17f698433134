package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Assignment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID   uuid.UUID  `gorm:"type:uuid;not null;index;column:teacher_id" json:"teacher_id"`
	Title       string     `gorm:"not null;column:title" json:"title"`
	Description string     `gorm:"column:description" json:"description"`
	Subject     string     `gorm:"column:subject" json:"subject"`
	DueDate     *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Assignment) TableName() string { return "assignment" }

type Submission struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;index;column:assignment_id" json:"assignment_id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;index;column:student_id" json:"student_id"`
	FilePath     string    `gorm:"not null;column:file_path" json:"file_path"`
	FileName     string    `gorm:"not null;column:file_name" json:"file_name"`
	ContentType  string    `gorm:"column:content_type" json:"content_type"`
	OCRText      string    `gorm:"column:ocr_text" json:"ocr_text"`
	Grade        *float64  `gorm:"column:grade" json:"grade,omitempty"`
	Feedback     string    `gorm:"column:feedback" json:"feedback"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Submission) TableName() string { return "submission" }

type QuizQuestion struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID  *uuid.UUID                  `gorm:"type:uuid;index;column:submission_id" json:"submission_id,omitempty"`
	Question      string                      `gorm:"not null;column:question" json:"question"`
	Options       datatypes.JSONSlice[string] `gorm:"column:options" json:"options"`
	CorrectAnswer string                      `gorm:"not null;column:correct_answer" json:"correct_answer"`
	Explanation   string                      `gorm:"column:explanation" json:"explanation"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }
