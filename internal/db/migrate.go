package db

import (
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.StudentProfile{},
		&types.AttendanceRecord{},
		&types.TestRecord{},
		&types.FeeRecord{},
		&types.Assignment{},
		&types.Submission{},
		&types.QuizQuestion{},
		&types.ChatMessage{},
		&types.RiskScore{},
		&types.SafetyIncident{},
		&types.AuditLog{},
		&types.JobRun{},
	)
}
