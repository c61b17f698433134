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

type AssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *types.Assignment) (*types.Assignment, error)
	GetByID(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID) (*types.Assignment, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Assignment, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	repoLog := baseLog.With("repo", "AssignmentRepo")
	return &assignmentRepo{db: db, log: repoLog}
}

func (ar *assignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignment *types.Assignment) (*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if err := transaction.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (ar *assignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID) (*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Assignment
	if err := transaction.WithContext(ctx).
		Where("id = ?", assignmentID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (ar *assignmentRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Assignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.Assignment
	if err := transaction.WithContext(ctx).
		Order("created_at desc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
