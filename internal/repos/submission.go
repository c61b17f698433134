package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

type SubmissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, submission *types.Submission) (*types.Submission, error)
	GetByID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.Submission, error)
	Exists(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (bool, error)
	ListRecentByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.Submission, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID, updates map[string]any) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	repoLog := baseLog.With("repo", "SubmissionRepo")
	return &submissionRepo{db: db, log: repoLog}
}

func (sr *submissionRepo) Create(ctx context.Context, tx *gorm.DB, submission *types.Submission) (*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(submission).Error; err != nil {
		return nil, err
	}
	return submission, nil
}

func (sr *submissionRepo) GetByID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result types.Submission
	if err := transaction.WithContext(ctx).
		Where("id = ?", submissionID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (sr *submissionRepo) Exists(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Submission{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *submissionRepo) ListRecentByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.Submission, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.Submission
	q := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *submissionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Submission{}).
		Where("id = ?", submissionID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
