package app

import (
	"github.com/sharmaji2007/student-counsellor-system/internal/handlers"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/server"
)

func wireHandlers(log *logger.Logger, s Services) *server.Handlers {
	log.Info("Wiring handlers...")
	return &server.Handlers{
		Health:     handlers.NewHealthHandler(),
		Auth:       handlers.NewAuthHandler(s.Auth),
		User:       handlers.NewUserHandler(s.User),
		Student:    handlers.NewStudentHandler(s.Student),
		Risk:       handlers.NewRiskHandler(s.Risk),
		Chat:       handlers.NewChatHandler(s.Chat),
		Incident:   handlers.NewIncidentHandler(s.Incident),
		Assignment: handlers.NewAssignmentHandler(s.Assignment),
	}
}
