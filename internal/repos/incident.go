package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

type SafetyIncidentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, incident *types.SafetyIncident) (*types.SafetyIncident, error)
	GetByID(ctx context.Context, tx *gorm.DB, incidentID uuid.UUID) (*types.SafetyIncident, error)
	// List returns incidents newest first, optionally filtered by status.
	List(ctx context.Context, tx *gorm.DB, status string) ([]*types.SafetyIncident, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, incidentID uuid.UUID, updates map[string]any) error
	ExistsForStudentSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) (bool, error)
}

type safetyIncidentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSafetyIncidentRepo(db *gorm.DB, baseLog *logger.Logger) SafetyIncidentRepo {
	repoLog := baseLog.With("repo", "SafetyIncidentRepo")
	return &safetyIncidentRepo{db: db, log: repoLog}
}

func (ir *safetyIncidentRepo) Create(ctx context.Context, tx *gorm.DB, incident *types.SafetyIncident) (*types.SafetyIncident, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).Create(incident).Error; err != nil {
		return nil, err
	}
	return incident, nil
}

func (ir *safetyIncidentRepo) GetByID(ctx context.Context, tx *gorm.DB, incidentID uuid.UUID) (*types.SafetyIncident, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var result types.SafetyIncident
	if err := transaction.WithContext(ctx).
		Where("id = ?", incidentID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (ir *safetyIncidentRepo) List(ctx context.Context, tx *gorm.DB, status string) ([]*types.SafetyIncident, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	q := transaction.WithContext(ctx).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var results []*types.SafetyIncident
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *safetyIncidentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, incidentID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.SafetyIncident{}).
		Where("id = ?", incidentID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (ir *safetyIncidentRepo) ExistsForStudentSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SafetyIncident{}).
		Where("student_id = ? AND created_at >= ?", studentID, since).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
