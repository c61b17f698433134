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

type RiskScoreRepo interface {
	Create(ctx context.Context, tx *gorm.DB, score *types.RiskScore) (*types.RiskScore, error)
	GetLatestForStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) (*types.RiskScore, error)
	// ListLatest returns the most recent snapshot per student, optionally
	// filtered by risk level. An empty level means no filter.
	ListLatest(ctx context.Context, tx *gorm.DB, level string) ([]*types.RiskScore, error)
}

type riskScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRiskScoreRepo(db *gorm.DB, baseLog *logger.Logger) RiskScoreRepo {
	repoLog := baseLog.With("repo", "RiskScoreRepo")
	return &riskScoreRepo{db: db, log: repoLog}
}

func (rr *riskScoreRepo) Create(ctx context.Context, tx *gorm.DB, score *types.RiskScore) (*types.RiskScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(score).Error; err != nil {
		return nil, err
	}
	return score, nil
}

func (rr *riskScoreRepo) GetLatestForStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) (*types.RiskScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result types.RiskScore
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("calculated_at desc").
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (rr *riskScoreRepo) ListLatest(ctx context.Context, tx *gorm.DB, level string) ([]*types.RiskScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	latest := transaction.WithContext(ctx).
		Model(&types.RiskScore{}).
		Select("student_id, MAX(calculated_at) AS max_calculated_at").
		Group("student_id")

	q := transaction.WithContext(ctx).
		Model(&types.RiskScore{}).
		Joins("JOIN (?) latest ON risk_score.student_id = latest.student_id AND risk_score.calculated_at = latest.max_calculated_at", latest)
	if level != "" {
		q = q.Where("risk_score.risk_level = ?", level)
	}

	var results []*types.RiskScore
	if err := q.Order("risk_score.overall_score desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
