package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

func newJobTestDB(t *testing.T) *gorm.DB {
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
	if err := gdb.AutoMigrate(&types.JobRun{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func newJobContext(t *testing.T, gdb *gorm.DB, job *types.JobRun) (*Context, repos.JobRunRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := repos.NewJobRunRepo(gdb, log)
	return NewContext(context.Background(), gdb, job, repo, log, 5, 30*time.Second), repo
}

func seedJobRun(t *testing.T, gdb *gorm.DB, attempts int) *types.JobRun {
	t.Helper()
	started := time.Now().UTC()
	job := &types.JobRun{
		ID:        uuid.New(),
		JobType:   "ocr_extract",
		Status:    types.JobStatusRunning,
		Attempts:  attempts,
		RunAt:     started,
		StartedAt: &started,
	}
	if err := gdb.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func loadJobRun(t *testing.T, gdb *gorm.DB, id uuid.UUID) *types.JobRun {
	t.Helper()
	var job types.JobRun
	if err := gdb.Where("id = ?", id).First(&job).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	return &job
}

func TestFail_RequeuesWhileAttemptsRemain(t *testing.T) {
	gdb := newJobTestDB(t)
	job := seedJobRun(t, gdb, 1)
	jc, _ := newJobContext(t, gdb, job)

	before := time.Now().UTC()
	jc.Fail(errors.New("download failed"))

	stored := loadJobRun(t, gdb, job.ID)
	if stored.Status != types.JobStatusQueued {
		t.Fatalf("expected requeue, got %q", stored.Status)
	}
	if stored.StartedAt != nil {
		t.Fatalf("expected started_at cleared, got %v", stored.StartedAt)
	}
	if stored.RunAt.Before(before.Add(29 * time.Second)) {
		t.Fatalf("expected delayed run_at, got %v", stored.RunAt)
	}
	if stored.LastError != "download failed" {
		t.Fatalf("unexpected last_error: %q", stored.LastError)
	}
	if stored.FinishedAt != nil {
		t.Fatalf("requeued run must not be finished")
	}
}

func TestFail_TerminalAfterMaxAttempts(t *testing.T) {
	gdb := newJobTestDB(t)
	job := seedJobRun(t, gdb, 5)
	jc, _ := newJobContext(t, gdb, job)

	jc.Fail(errors.New("still broken"))

	stored := loadJobRun(t, gdb, job.ID)
	if stored.Status != types.JobStatusFailed {
		t.Fatalf("expected failed, got %q", stored.Status)
	}
	if stored.FinishedAt == nil {
		t.Fatalf("expected finished_at set")
	}
}

func TestSucceed_MarksTerminalSuccess(t *testing.T) {
	gdb := newJobTestDB(t)
	job := seedJobRun(t, gdb, 1)
	job.LastError = "previous failure"
	jc, _ := newJobContext(t, gdb, job)

	jc.Succeed()

	stored := loadJobRun(t, gdb, job.ID)
	if stored.Status != types.JobStatusSucceeded {
		t.Fatalf("expected succeeded, got %q", stored.Status)
	}
	if stored.LastError != "" {
		t.Fatalf("expected last_error cleared, got %q", stored.LastError)
	}
	if stored.FinishedAt == nil {
		t.Fatalf("expected finished_at set")
	}
}

func TestPayloadAccessors(t *testing.T) {
	id := uuid.New()
	job := &types.JobRun{
		ID:      uuid.New(),
		JobType: "quiz_generate",
		Payload: datatypes.JSONMap{
			"submission_id": id.String(),
			"num_questions": float64(7),
			"bad_id":        "not-a-uuid",
		},
	}
	jc := NewContext(context.Background(), nil, job, nil, nil, 5, time.Second)

	got, ok := jc.PayloadUUID("submission_id")
	if !ok || got != id {
		t.Fatalf("expected %s, got %s (ok=%v)", id, got, ok)
	}
	if _, ok := jc.PayloadUUID("bad_id"); ok {
		t.Fatalf("expected parse failure for bad_id")
	}
	if _, ok := jc.PayloadUUID("missing"); ok {
		t.Fatalf("expected missing key to report false")
	}

	n, ok := jc.PayloadInt("num_questions")
	if !ok || n != 7 {
		t.Fatalf("expected 7, got %d (ok=%v)", n, ok)
	}
	if _, ok := jc.PayloadInt("bad_id"); ok {
		t.Fatalf("expected non-numeric value to report false")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	handler := &ChatCleanupHandler{}

	if err := registry.Register(handler); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(handler); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if _, ok := registry.Get("chat_cleanup"); !ok {
		t.Fatalf("expected handler lookup to succeed")
	}
}
