package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

type incidentFixture struct {
	db        *gorm.DB
	incidents repos.SafetyIncidentRepo
	service   IncidentService
	actorID   uuid.UUID
}

func newIncidentFixture(t *testing.T) *incidentFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

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
	if err := gdb.AutoMigrate(&types.SafetyIncident{}, &types.AuditLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	f := &incidentFixture{
		db:        gdb,
		incidents: repos.NewSafetyIncidentRepo(gdb, log),
		actorID:   uuid.New(),
	}
	f.service = NewIncidentService(gdb, log, f.incidents, repos.NewAuditLogRepo(gdb, log))
	return f
}

func (f *incidentFixture) seedIncident(t *testing.T, status string) *types.SafetyIncident {
	t.Helper()
	incident := &types.SafetyIncident{
		ID:              uuid.New(),
		StudentID:       uuid.New(),
		MessageID:       uuid.New(),
		TriggerKeywords: datatypes.NewJSONSlice([]string{"kill myself"}),
		Status:          status,
	}
	if _, err := f.incidents.Create(context.Background(), nil, incident); err != nil {
		t.Fatalf("seed incident: %v", err)
	}
	return incident
}

func TestUpdateStatus_OpenToInProgress(t *testing.T) {
	f := newIncidentFixture(t)
	incident := f.seedIncident(t, types.IncidentStatusOpen)

	updated, err := f.service.UpdateStatus(context.Background(), f.actorID, incident.ID, types.IncidentStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != types.IncidentStatusInProgress {
		t.Fatalf("expected in_progress, got %q", updated.Status)
	}

	var auditCount int64
	if err := f.db.Model(&types.AuditLog{}).Where("action = ?", "incident.status").Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if auditCount != 1 {
		t.Fatalf("expected audit entry, got %d", auditCount)
	}
}

func TestUpdateStatus_ResolvedIsTerminal(t *testing.T) {
	f := newIncidentFixture(t)
	incident := f.seedIncident(t, types.IncidentStatusResolved)

	_, err := f.service.UpdateStatus(context.Background(), f.actorID, incident.ID, types.IncidentStatusOpen)
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	f := newIncidentFixture(t)
	incident := f.seedIncident(t, types.IncidentStatusOpen)

	_, err := f.service.UpdateStatus(context.Background(), f.actorID, incident.ID, "escalated")
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestResolve_SetsNotesAndTimestamp(t *testing.T) {
	f := newIncidentFixture(t)
	incident := f.seedIncident(t, types.IncidentStatusInProgress)

	resolved, err := f.service.Resolve(context.Background(), f.actorID, incident.ID, "Spoke with student and guardian.")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != types.IncidentStatusResolved {
		t.Fatalf("expected resolved, got %q", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Fatalf("expected resolved_at set")
	}
	if resolved.Notes != "Spoke with student and guardian." {
		t.Fatalf("unexpected notes: %q", resolved.Notes)
	}

	// Resolving twice is rejected.
	if _, err := f.service.Resolve(context.Background(), f.actorID, incident.ID, "again"); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument on double resolve, got %v", err)
	}
}

func TestMarkNotified_OnlySetsDeliveredChannels(t *testing.T) {
	f := newIncidentFixture(t)
	incident := f.seedIncident(t, types.IncidentStatusOpen)

	if err := f.service.MarkNotified(context.Background(), incident.ID, true, false); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	stored, err := f.service.Get(context.Background(), incident.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !stored.CounselorNotified || stored.GuardianNotified {
		t.Fatalf("unexpected notification flags: %+v", stored)
	}
}

func TestListIncidents_ValidatesStatusFilter(t *testing.T) {
	f := newIncidentFixture(t)
	f.seedIncident(t, types.IncidentStatusOpen)
	f.seedIncident(t, types.IncidentStatusResolved)

	open, err := f.service.List(context.Background(), types.IncidentStatusOpen)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open incident, got %d", len(open))
	}

	if _, err := f.service.List(context.Background(), "escalated"); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
