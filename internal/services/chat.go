package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

const (
	JobTypeSOSNotify   = "sos_notify"
	JobTypeChatCleanup = "chat_cleanup"
)

type SendMessageResult struct {
	Message  *types.ChatMessage    `json:"message"`
	Flagged  bool                  `json:"flagged"`
	Incident *types.SafetyIncident `json:"incident,omitempty"`
}

type ChatService interface {
	// SendMessage persists the message. When the detector matches, the
	// flagged message and its incident are written in one transaction:
	// either both rows exist or neither does.
	SendMessage(ctx context.Context, senderID uuid.UUID, text string, isPrivate bool) (*SendMessageResult, error)
	ListOwn(ctx context.Context, senderID uuid.UUID) ([]*types.ChatMessage, error)
	ListPublic(ctx context.Context) ([]*types.ChatMessage, error)
	// CleanupExpired deletes expired, unflagged messages. Flagged messages
	// are retained regardless of expiry.
	CleanupExpired(ctx context.Context) (int64, error)
}

type chatService struct {
	db        *gorm.DB
	log       *logger.Logger
	safety    SafetyService
	messages  repos.ChatMessageRepo
	incidents repos.SafetyIncidentRepo
	jobs      repos.JobRunRepo
	audit     repos.AuditLogRepo
	retention time.Duration
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	safety SafetyService,
	messages repos.ChatMessageRepo,
	incidents repos.SafetyIncidentRepo,
	jobs repos.JobRunRepo,
	audit repos.AuditLogRepo,
	retentionDays int,
) ChatService {
	serviceLog := baseLog.With("service", "ChatService")
	if retentionDays <= 0 {
		retentionDays = 15
	}
	return &chatService{
		db:        db,
		log:       serviceLog,
		safety:    safety,
		messages:  messages,
		incidents: incidents,
		jobs:      jobs,
		audit:     audit,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func (cs *chatService) SendMessage(ctx context.Context, senderID uuid.UUID, text string, isPrivate bool) (*SendMessageResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("message text required: %w", pkgerrors.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	message := &types.ChatMessage{
		ID:        uuid.New(),
		SenderID:  senderID,
		Message:   text,
		IsPrivate: isPrivate,
		ExpiresAt: now.Add(cs.retention),
	}

	assessment := cs.safety.Assess(text)
	result := &SendMessageResult{Message: message}

	if len(assessment.Keywords) == 0 {
		if _, err := cs.messages.Create(ctx, nil, message); err != nil {
			return nil, fmt.Errorf("persist message: %w", err)
		}
		return result, nil
	}

	message.FlaggedForSOS = true
	incident := &types.SafetyIncident{
		ID:              uuid.New(),
		StudentID:       senderID,
		MessageID:       message.ID,
		TriggerKeywords: datatypes.NewJSONSlice(assessment.Keywords),
		Status:          types.IncidentStatusOpen,
	}

	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := cs.messages.Create(ctx, tx, message); err != nil {
			return err
		}
		if _, err := cs.incidents.Create(ctx, tx, incident); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist flagged message: %w", err)
	}

	result.Flagged = true
	result.Incident = incident
	cs.log.Warn("Crisis keywords detected in chat message",
		"sender_id", senderID,
		"incident_id", incident.ID,
		"risk_level", assessment.RiskLevel,
	)

	// Notification delivery is background work; a failed enqueue is logged,
	// never surfaced to the sender.
	if cs.jobs != nil {
		_, err := cs.jobs.Enqueue(ctx, nil, &types.JobRun{
			ID:      uuid.New(),
			JobType: JobTypeSOSNotify,
			Payload: datatypes.JSONMap{
				"incident_id": incident.ID.String(),
				"student_id":  senderID.String(),
				"risk_level":  assessment.RiskLevel,
			},
		})
		if err != nil {
			cs.log.Error("Failed to enqueue SOS notification", "incident_id", incident.ID, "error", err)
		}
	}
	return result, nil
}

func (cs *chatService) ListOwn(ctx context.Context, senderID uuid.UUID) ([]*types.ChatMessage, error) {
	return cs.messages.ListBySender(ctx, nil, senderID, time.Now().UTC())
}

func (cs *chatService) ListPublic(ctx context.Context) ([]*types.ChatMessage, error) {
	return cs.messages.ListPublic(ctx, nil, time.Now().UTC())
}

func (cs *chatService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := cs.messages.DeleteExpiredUnflagged(ctx, nil, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired messages: %w", err)
	}
	if deleted > 0 {
		cs.log.Info("Expired chat messages removed", "deleted", deleted)
	}
	if cs.audit != nil {
		// ActorID stays nil when the scheduler runs the cleanup.
		actorID := uuid.Nil
		if rd := requestdata.GetRequestData(ctx); rd != nil {
			actorID = rd.UserID
		}
		entry := &types.AuditLog{
			ID:      uuid.New(),
			ActorID: actorID,
			Action:  "chat.cleanup",
			Entity:  "chat_message",
			Details: datatypes.JSONMap{"deleted": deleted},
		}
		if err := cs.audit.Create(ctx, nil, entry); err != nil {
			cs.log.Warn("Failed to write audit entry", "action", "chat.cleanup", "error", err)
		}
	}
	return deleted, nil
}
