package app

import (
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/jobs"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
)

type Services struct {
	Auth         services.AuthService
	User         services.UserService
	Student      services.StudentService
	Safety       services.SafetyService
	Risk         services.RiskService
	Chat         services.ChatService
	Incident     services.IncidentService
	Assignment   services.AssignmentService
	Storage      services.StorageService
	OCR          services.OCRService
	Quiz         services.QuizService
	Notification services.NotificationService

	JobWorker *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	var s Services

	s.Auth = services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	s.User = services.NewUserService(db, log, r.User)
	s.Student = services.NewStudentService(db, log, r.User, r.StudentProfile, r.Attendance, r.TestRecord, r.FeeRecord, r.Submission, r.RiskScore)

	s.Safety = services.NewSafetyService(log, cfg.SOSKeywords)
	s.Risk = services.NewRiskService(db, log, r.User, r.StudentProfile, r.Attendance, r.TestRecord, r.FeeRecord, r.ChatMessage, r.SafetyIncident, r.RiskScore)
	s.Chat = services.NewChatService(db, log, s.Safety, r.ChatMessage, r.SafetyIncident, r.JobRun, r.AuditLog, cfg.ChatRetentionDays)
	s.Incident = services.NewIncidentService(db, log, r.SafetyIncident, r.AuditLog)

	if c.GcpBucket != nil {
		s.Storage = services.NewGCSStorageService(log, c.GcpBucket)
	} else {
		s.Storage = services.NewLocalStorageService(log)
	}
	if c.GcpVision != nil {
		s.OCR = services.NewVisionOCRService(log, c.GcpVision)
	} else {
		s.OCR = services.NewMockOCRService(log)
	}
	s.Quiz = services.NewQuizService(log, c.Openai)
	s.Notification = services.NewNotificationService(log, c.Twilio)

	s.Assignment = services.NewAssignmentService(db, log, r.Assignment, r.Submission, r.QuizQuestion, r.JobRun, r.AuditLog, s.Storage)

	registry := jobs.NewRegistry()
	for _, h := range []jobs.Handler{
		jobs.NewOCRExtractHandler(log, r.Submission, s.Storage, s.OCR),
		jobs.NewQuizGenerateHandler(log, r.Submission, r.QuizQuestion, s.Quiz),
		jobs.NewSOSNotifyHandler(log, r.User, r.StudentProfile, r.ChatMessage, r.SafetyIncident, s.Notification, s.Incident),
		jobs.NewChatCleanupHandler(log, s.Chat),
	} {
		if err := registry.Register(h); err != nil {
			return Services{}, err
		}
	}
	s.JobWorker = jobs.NewWorker(db, log, r.JobRun, registry)

	return s, nil
}
