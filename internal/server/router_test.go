package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sharmaji2007/student-counsellor-system/internal/handlers"
	"github.com/sharmaji2007/student-counsellor-system/internal/middleware"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/services"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// roleTokenAuth treats the bearer token as the caller's role so route
// guards can be exercised without issuing real JWTs.
type roleTokenAuth struct{}

func (roleTokenAuth) Register(ctx context.Context, input *services.RegisterInput) (*types.User, error) {
	return nil, nil
}

func (roleTokenAuth) Login(ctx context.Context, email, password string) (*services.AuthTokens, error) {
	return nil, nil
}

func (roleTokenAuth) Refresh(ctx context.Context, refreshToken string) (*services.AuthTokens, error) {
	return nil, nil
}

func (roleTokenAuth) Logout(ctx context.Context) error { return nil }

func (roleTokenAuth) AccessTTL() time.Duration { return time.Minute }

func (roleTokenAuth) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		UserID: uuid.New(),
		Role:   tokenString,
	}), nil
}

type noopChatService struct{}

func (noopChatService) SendMessage(ctx context.Context, senderID uuid.UUID, text string, isPrivate bool) (*services.SendMessageResult, error) {
	return &services.SendMessageResult{Message: &types.ChatMessage{ID: uuid.New()}}, nil
}

func (noopChatService) ListOwn(ctx context.Context, senderID uuid.UUID) ([]*types.ChatMessage, error) {
	return nil, nil
}

func (noopChatService) ListPublic(ctx context.Context) ([]*types.ChatMessage, error) {
	return nil, nil
}

func (noopChatService) CleanupExpired(ctx context.Context) (int64, error) { return 0, nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	authMW := middleware.NewAuthMiddleware(log, roleTokenAuth{})
	rateLimiter := middleware.NewRateLimiter(log, nil)
	h := &Handlers{
		Health:     handlers.NewHealthHandler(),
		Auth:       handlers.NewAuthHandler(nil),
		User:       handlers.NewUserHandler(nil),
		Student:    handlers.NewStudentHandler(nil),
		Risk:       handlers.NewRiskHandler(nil),
		Chat:       handlers.NewChatHandler(noopChatService{}),
		Incident:   handlers.NewIncidentHandler(nil),
		Assignment: handlers.NewAssignmentHandler(nil),
	}
	return NewRouter(authMW, rateLimiter, h)
}

func doRequest(router *gin.Engine, method, path, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+role)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatRoutes_StudentOnly(t *testing.T) {
	router := newTestRouter(t)

	for _, role := range []string{types.RoleTeacher, types.RoleMentor, types.RoleCounselor, types.RoleAdmin} {
		if w := doRequest(router, http.MethodPost, "/api/chat/messages", role, `{"message":"hi"}`); w.Code != http.StatusForbidden {
			t.Fatalf("POST /chat/messages as %s: expected 403, got %d", role, w.Code)
		}
		if w := doRequest(router, http.MethodGet, "/api/chat/messages", role, ""); w.Code != http.StatusForbidden {
			t.Fatalf("GET /chat/messages as %s: expected 403, got %d", role, w.Code)
		}
	}

	if w := doRequest(router, http.MethodPost, "/api/chat/messages", types.RoleStudent, `{"message":"hi"}`); w.Code != http.StatusCreated {
		t.Fatalf("POST /chat/messages as student: expected 201, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/chat/messages", types.RoleStudent, ""); w.Code != http.StatusOK {
		t.Fatalf("GET /chat/messages as student: expected 200, got %d", w.Code)
	}
}

func TestChatMonitoringRoutes_CounselorOnly(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(router, http.MethodGet, "/api/chat/public", types.RoleStudent, ""); w.Code != http.StatusForbidden {
		t.Fatalf("GET /chat/public as student: expected 403, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/chat/public", types.RoleCounselor, ""); w.Code != http.StatusOK {
		t.Fatalf("GET /chat/public as counselor: expected 200, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodPost, "/api/chat/cleanup", types.RoleTeacher, ""); w.Code != http.StatusForbidden {
		t.Fatalf("POST /chat/cleanup as teacher: expected 403, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodPost, "/api/chat/cleanup", types.RoleAdmin, ""); w.Code != http.StatusOK {
		t.Fatalf("POST /chat/cleanup as admin: expected 200, got %d", w.Code)
	}
}
