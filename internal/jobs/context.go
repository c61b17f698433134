package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// Context is the execution handle for a single claimed job run.
// Handlers never touch the job_run row directly; they finish through
// Succeed or Fail so retry accounting stays in one place.
type Context struct {
	Ctx  context.Context
	DB   *gorm.DB
	Job  *types.JobRun
	Repo repos.JobRunRepo

	log         *logger.Logger
	maxAttempts int
	retryDelay  time.Duration
}

func NewContext(
	ctx context.Context,
	db *gorm.DB,
	job *types.JobRun,
	repo repos.JobRunRepo,
	log *logger.Logger,
	maxAttempts int,
	retryDelay time.Duration,
) *Context {
	return &Context{
		Ctx:         ctx,
		DB:          db,
		Job:         job,
		Repo:        repo,
		log:         log,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.Job == nil || c.Job.Payload == nil {
		return map[string]any{}
	}
	return map[string]any(c.Job.Payload)
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) PayloadInt(key string) (int, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// Succeed marks the run terminally succeeded.
func (c *Context) Succeed() {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now().UTC()
	if err := c.Repo.UpdateFields(c.Ctx, nil, c.Job.ID, map[string]any{
		"status":      types.JobStatusSucceeded,
		"last_error":  "",
		"finished_at": now,
		"updated_at":  now,
	}); err != nil {
		c.log.Warn("Failed to mark job succeeded", "job_id", c.Job.ID, "error", err)
		return
	}
	c.Job.Status = types.JobStatusSucceeded
	c.Job.FinishedAt = &now
}

// Fail records the error. Runs with attempts left are requeued after
// the retry delay; exhausted runs are marked failed.
func (c *Context) Fail(err error) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	updates := map[string]any{
		"last_error": msg,
		"updated_at": now,
	}
	if c.Job.Attempts < c.maxAttempts {
		updates["status"] = types.JobStatusQueued
		updates["run_at"] = now.Add(c.retryDelay)
		updates["started_at"] = nil
	} else {
		updates["status"] = types.JobStatusFailed
		updates["finished_at"] = now
	}

	if uErr := c.Repo.UpdateFields(c.Ctx, nil, c.Job.ID, updates); uErr != nil {
		c.log.Warn("Failed to record job failure", "job_id", c.Job.ID, "error", uErr)
		return
	}
	c.log.Warn("Job run failed",
		"job_id", c.Job.ID,
		"job_type", c.Job.JobType,
		"attempts", c.Job.Attempts,
		"requeued", c.Job.Attempts < c.maxAttempts,
		"error", msg,
	)
}
