package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
)

const (
	maxAttempts  = 5
	retryDelay   = 30 * time.Second
	staleRunning = 2 * time.Minute
	jobTimeout   = 5 * time.Minute
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *Registry
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *Registry) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()
}

func (w *Worker) tick(ctx context.Context) {
	job, err := w.repo.ClaimNextRunnable(ctx, nil, maxAttempts, staleRunning)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "error", err)
		return
	}
	if job == nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	jc := NewContext(runCtx, w.db, job, w.repo, w.log, maxAttempts, retryDelay)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		jc.Fail(fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	// A panicking handler must not take the worker loop down.
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
				jc.Fail(fmt.Errorf("panic: %v", r))
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			jc.Fail(runErr)
			return
		}
		jc.Succeed()
	}()
}
