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

type StudentProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *types.StudentProfile) (*types.StudentProfile, error)
	GetByID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.StudentProfile, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StudentProfile, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.StudentProfile, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, updates map[string]any) error
}

type studentProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentProfileRepo(db *gorm.DB, baseLog *logger.Logger) StudentProfileRepo {
	repoLog := baseLog.With("repo", "StudentProfileRepo")
	return &studentProfileRepo{db: db, log: repoLog}
}

func (sr *studentProfileRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.StudentProfile) (*types.StudentProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (sr *studentProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.StudentProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result types.StudentProfile
	if err := transaction.WithContext(ctx).
		Where("id = ?", profileID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (sr *studentProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StudentProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result types.StudentProfile
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (sr *studentProfileRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.StudentProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.StudentProfile
	if err := transaction.WithContext(ctx).
		Order("student_number asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *studentProfileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.StudentProfile{}).
		Where("id = ?", profileID).
		Updates(updates).Error
}
