package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

func newChatTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(&types.ChatMessage{}, &types.SafetyIncident{}, &types.JobRun{}, &types.AuditLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return gdb
}

type chatFixture struct {
	db        *gorm.DB
	messages  repos.ChatMessageRepo
	incidents repos.SafetyIncidentRepo
	jobs      repos.JobRunRepo
	service   ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	gdb := newChatTestDB(t)
	f := &chatFixture{
		db:        gdb,
		messages:  repos.NewChatMessageRepo(gdb, log),
		incidents: repos.NewSafetyIncidentRepo(gdb, log),
		jobs:      repos.NewJobRunRepo(gdb, log),
	}
	safety := NewSafetyService(log, nil)
	f.service = NewChatService(gdb, log, safety, f.messages, f.incidents, f.jobs, repos.NewAuditLogRepo(gdb, log), 15)
	return f
}

func TestSendMessage_CleanMessageIsNotFlagged(t *testing.T) {
	f := newChatFixture(t)
	senderID := uuid.New()

	result, err := f.service.SendMessage(context.Background(), senderID, "see you at practice", true)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Flagged || result.Incident != nil {
		t.Fatalf("expected unflagged result, got %+v", result)
	}

	stored, err := f.messages.GetByID(context.Background(), nil, result.Message.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.FlaggedForSOS {
		t.Fatalf("expected flagged_for_sos=false")
	}

	var incidentCount int64
	if err := f.db.Model(&types.SafetyIncident{}).Count(&incidentCount).Error; err != nil {
		t.Fatalf("count incidents: %v", err)
	}
	if incidentCount != 0 {
		t.Fatalf("expected no incidents, got %d", incidentCount)
	}
}

func TestSendMessage_CrisisMessageCreatesIncidentAndJob(t *testing.T) {
	f := newChatFixture(t)
	senderID := uuid.New()

	result, err := f.service.SendMessage(context.Background(), senderID, "I want to kill myself", true)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !result.Flagged || result.Incident == nil {
		t.Fatalf("expected flagged result with incident, got %+v", result)
	}
	if result.Incident.MessageID != result.Message.ID {
		t.Fatalf("incident references message %s, want %s", result.Incident.MessageID, result.Message.ID)
	}
	if result.Incident.Status != types.IncidentStatusOpen {
		t.Fatalf("expected open incident, got %q", result.Incident.Status)
	}

	stored, err := f.incidents.GetByID(context.Background(), nil, result.Incident.ID)
	if err != nil {
		t.Fatalf("incident not persisted: %v", err)
	}
	if len(stored.TriggerKeywords) == 0 {
		t.Fatalf("expected trigger keywords recorded")
	}

	var jobCount int64
	if err := f.db.Model(&types.JobRun{}).Where("job_type = ?", JobTypeSOSNotify).Count(&jobCount).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobCount != 1 {
		t.Fatalf("expected 1 sos job, got %d", jobCount)
	}
}

// failingIncidentRepo rejects every create so the surrounding transaction
// must roll back.
type failingIncidentRepo struct {
	repos.SafetyIncidentRepo
}

func (f *failingIncidentRepo) Create(ctx context.Context, tx *gorm.DB, incident *types.SafetyIncident) (*types.SafetyIncident, error) {
	return nil, errors.New("incident store unavailable")
}

func TestSendMessage_FlagAndIncidentAreAtomic(t *testing.T) {
	f := newChatFixture(t)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	safety := NewSafetyService(log, nil)
	service := NewChatService(f.db, log, safety, f.messages, &failingIncidentRepo{f.incidents}, f.jobs, nil, 15)

	_, err = service.SendMessage(context.Background(), uuid.New(), "I want to kill myself", true)
	if err == nil {
		t.Fatalf("expected error from failing incident store")
	}

	var messageCount int64
	if err := f.db.Model(&types.ChatMessage{}).Count(&messageCount).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if messageCount != 0 {
		t.Fatalf("expected message rolled back, got %d rows", messageCount)
	}
}

func TestSendMessage_EmptyTextRejected(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.service.SendMessage(context.Background(), uuid.New(), "   ", true)
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSendMessage_RetentionSetsExpiry(t *testing.T) {
	f := newChatFixture(t)

	before := time.Now().UTC()
	result, err := f.service.SendMessage(context.Background(), uuid.New(), "hello", true)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	want := before.Add(15 * 24 * time.Hour)
	if result.Message.ExpiresAt.Before(want.Add(-time.Minute)) || result.Message.ExpiresAt.After(want.Add(time.Minute)) {
		t.Fatalf("expected expiry near %v, got %v", want, result.Message.ExpiresAt)
	}
}

func TestCleanupExpired_RetainsFlaggedMessages(t *testing.T) {
	f := newChatFixture(t)
	now := time.Now().UTC()

	expired := &types.ChatMessage{
		ID:        uuid.New(),
		SenderID:  uuid.New(),
		Message:   "old message",
		IsPrivate: true,
		ExpiresAt: now.Add(-time.Hour),
	}
	expiredFlagged := &types.ChatMessage{
		ID:            uuid.New(),
		SenderID:      uuid.New(),
		Message:       "old flagged message",
		IsPrivate:     true,
		FlaggedForSOS: true,
		ExpiresAt:     now.Add(-time.Hour),
	}
	live := &types.ChatMessage{
		ID:        uuid.New(),
		SenderID:  uuid.New(),
		Message:   "recent message",
		IsPrivate: true,
		ExpiresAt: now.Add(time.Hour),
	}
	for _, message := range []*types.ChatMessage{expired, expiredFlagged, live} {
		if _, err := f.messages.Create(context.Background(), nil, message); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	deleted, err := f.service.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	if _, err := f.messages.GetByID(context.Background(), nil, expiredFlagged.ID); err != nil {
		t.Fatalf("flagged message should survive cleanup: %v", err)
	}
	if _, err := f.messages.GetByID(context.Background(), nil, live.ID); err != nil {
		t.Fatalf("live message should survive cleanup: %v", err)
	}
	if _, err := f.messages.GetByID(context.Background(), nil, expired.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected expired message gone, got %v", err)
	}

	var auditCount int64
	if err := f.db.Model(&types.AuditLog{}).Where("action = ?", "chat.cleanup").Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if auditCount != 1 {
		t.Fatalf("expected cleanup audit entry, got %d", auditCount)
	}
}

func TestListPublic_ExcludesPrivateMessages(t *testing.T) {
	f := newChatFixture(t)
	senderID := uuid.New()

	if _, err := f.service.SendMessage(context.Background(), senderID, "private note", true); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	public, err := f.service.SendMessage(context.Background(), senderID, "public note", false)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	listed, err := f.service.ListPublic(context.Background())
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 public message, got %d", len(listed))
	}
	if listed[0].ID != public.Message.ID {
		t.Fatalf("unexpected public message %s", listed[0].ID)
	}
}
