package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

type JobRunRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, run *types.JobRun) (*types.JobRun, error)
	// ClaimNextRunnable picks one runnable job and marks it running
	// (FOR UPDATE SKIP LOCKED). Returns nil when nothing is runnable.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, staleRunning time.Duration) (*types.JobRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]any) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	repoLog := baseLog.With("repo", "JobRunRepo")
	return &jobRunRepo{db: db, log: repoLog}
}

func (jr *jobRunRepo) Enqueue(ctx context.Context, tx *gorm.DB, run *types.JobRun) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = jr.db
	}
	if run.RunAt.IsZero() {
		run.RunAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = types.JobStatusQueued
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (jr *jobRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, staleRunning time.Duration) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = jr.db
	}

	var claimed *types.JobRun
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		now := time.Now().UTC()
		var job types.JobRun
		err := inner.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(
				"(status = ? AND run_at <= ? AND attempts < ?) OR (status = ? AND started_at IS NOT NULL AND started_at < ?)",
				types.JobStatusQueued, now, maxAttempts,
				types.JobStatusRunning, now.Add(-staleRunning),
			).
			Order("run_at asc").
			First(&job).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := inner.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{
				"status":     types.JobStatusRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"started_at": now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		job.Status = types.JobStatusRunning
		job.Attempts++
		job.StartedAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (jr *jobRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = jr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}
