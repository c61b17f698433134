package app

import (
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
)

type Repos struct {
	User           repos.UserRepo
	UserToken      repos.UserTokenRepo
	StudentProfile repos.StudentProfileRepo
	Attendance     repos.AttendanceRepo
	TestRecord     repos.TestRecordRepo
	FeeRecord      repos.FeeRecordRepo
	ChatMessage    repos.ChatMessageRepo
	RiskScore      repos.RiskScoreRepo
	SafetyIncident repos.SafetyIncidentRepo
	Assignment     repos.AssignmentRepo
	Submission     repos.SubmissionRepo
	QuizQuestion   repos.QuizQuestionRepo
	AuditLog       repos.AuditLogRepo
	JobRun         repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		UserToken:      repos.NewUserTokenRepo(db, log),
		StudentProfile: repos.NewStudentProfileRepo(db, log),
		Attendance:     repos.NewAttendanceRepo(db, log),
		TestRecord:     repos.NewTestRecordRepo(db, log),
		FeeRecord:      repos.NewFeeRecordRepo(db, log),
		ChatMessage:    repos.NewChatMessageRepo(db, log),
		RiskScore:      repos.NewRiskScoreRepo(db, log),
		SafetyIncident: repos.NewSafetyIncidentRepo(db, log),
		Assignment:     repos.NewAssignmentRepo(db, log),
		Submission:     repos.NewSubmissionRepo(db, log),
		QuizQuestion:   repos.NewQuizQuestionRepo(db, log),
		AuditLog:       repos.NewAuditLogRepo(db, log),
		JobRun:         repos.NewJobRunRepo(db, log),
	}
}
