package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sharmaji2007/student-counsellor-system/internal/handlers"
	"github.com/sharmaji2007/student-counsellor-system/internal/middleware"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Student    *handlers.StudentHandler
	Risk       *handlers.RiskHandler
	Chat       *handlers.ChatHandler
	Incident   *handlers.IncidentHandler
	Assignment *handlers.AssignmentHandler
}

func NewRouter(authMW *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h *Handlers) *gin.Engine {
	router := gin.Default()

	allowOrigins := []string{"http://localhost:3000"}
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS")); raw != "" {
		allowOrigins = strings.Split(raw, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware("student-counsellor"))

	router.GET("/healthcheck", h.Health.Healthcheck)

	api := router.Group("/api")
	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.POST("/refresh", h.Auth.Refresh)

	protected := api.Group("")
	protected.Use(authMW.RequireAuth())

	protected.POST("/logout", h.Auth.Logout)
	protected.GET("/me", h.User.GetMe)

	// Staff can read every student; only counselors and admins create
	// or edit records.
	staff := authMW.RequireRoles(types.RoleTeacher, types.RoleMentor, types.RoleCounselor, types.RoleAdmin)
	recordKeepers := authMW.RequireRoles(types.RoleCounselor, types.RoleAdmin)

	students := protected.Group("/students")
	students.POST("", recordKeepers, h.Student.CreateProfile)
	students.GET("", staff, h.Student.ListProfiles)
	students.GET("/:id", staff, h.Student.GetProfile)
	students.PATCH("/:id", recordKeepers, h.Student.UpdateProfile)
	students.POST("/:id/attendance", recordKeepers, h.Student.RecordAttendance)
	students.GET("/:id/attendance", staff, h.Student.ListAttendance)
	students.POST("/:id/tests", recordKeepers, h.Student.RecordTest)
	students.GET("/:id/tests", staff, h.Student.ListTests)
	students.POST("/:id/fees", recordKeepers, h.Student.RecordFee)
	students.GET("/:id/fees", staff, h.Student.ListFees)

	studentOnly := authMW.RequireRoles(types.RoleStudent)
	protected.GET("/dashboard", studentOnly, h.Student.Dashboard)

	riskReaders := authMW.RequireRoles(types.RoleMentor, types.RoleCounselor, types.RoleAdmin)
	risk := protected.Group("/risk", riskReaders)
	risk.POST("/compute/:id", h.Risk.Compute)
	risk.POST("/compute-all", h.Risk.ComputeAll)
	risk.GET("/students/:id", h.Risk.Latest)
	risk.GET("/students/:id/explanation", h.Risk.Explanation)
	risk.GET("/scores", h.Risk.ListScores)
	risk.GET("/summary", h.Risk.Summary)

	incidentReaders := authMW.RequireRoles(types.RoleCounselor, types.RoleAdmin)

	chat := protected.Group("/chat")
	chat.POST("/messages", studentOnly, rateLimiter.PerMinute("chat", 10), h.Chat.SendMessage)
	chat.GET("/messages", studentOnly, h.Chat.ListOwn)
	chat.GET("/public", incidentReaders, h.Chat.ListPublic)
	chat.POST("/cleanup", incidentReaders, h.Chat.Cleanup)

	incidents := protected.Group("/incidents", incidentReaders)
	incidents.GET("", h.Incident.List)
	incidents.GET("/:id", h.Incident.Get)
	incidents.PATCH("/:id/status", h.Incident.UpdateStatus)
	incidents.POST("/:id/resolve", h.Incident.Resolve)

	teacherOnly := authMW.RequireRoles(types.RoleTeacher, types.RoleAdmin)
	assignments := protected.Group("/assignments")
	assignments.POST("", teacherOnly, h.Assignment.Create)
	assignments.GET("", h.Assignment.List)
	assignments.GET("/:id", h.Assignment.Get)
	assignments.POST("/:id/submissions",
		studentOnly,
		rateLimiter.PerMinute("upload", 20),
		h.Assignment.Submit,
	)

	submissions := protected.Group("/submissions")
	submissions.GET("/:id", h.Assignment.GetSubmission)
	submissions.POST("/:id/grade", teacherOnly, h.Assignment.Grade)
	submissions.POST("/:id/quiz", rateLimiter.PerMinute("ocr", 5), h.Assignment.RequestQuiz)
	submissions.GET("/:id/quiz", h.Assignment.ListQuiz)

	return router
}
