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

// ChatStats is the trailing-window aggregate the risk engine reads.
type ChatStats struct {
	Total   int64
	Flagged int64
}

type ChatMessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) (*types.ChatMessage, error)
	GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.ChatMessage, error)
	ListBySender(ctx context.Context, tx *gorm.DB, senderID uuid.UUID, now time.Time) ([]*types.ChatMessage, error)
	ListPublic(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.ChatMessage, error)
	StatsSince(ctx context.Context, tx *gorm.DB, senderID uuid.UUID, since time.Time) (*ChatStats, error)
	DeleteExpiredUnflagged(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	repoLog := baseLog.With("repo", "ChatMessageRepo")
	return &chatMessageRepo{db: db, log: repoLog}
}

func (cr *chatMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) (*types.ChatMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (cr *chatMessageRepo) GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.ChatMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result types.ChatMessage
	if err := transaction.WithContext(ctx).
		Where("id = ?", messageID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (cr *chatMessageRepo) ListBySender(ctx context.Context, tx *gorm.DB, senderID uuid.UUID, now time.Time) ([]*types.ChatMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.ChatMessage
	if err := transaction.WithContext(ctx).
		Where("sender_id = ? AND expires_at > ?", senderID, now).
		Order("created_at desc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *chatMessageRepo) ListPublic(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.ChatMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.ChatMessage
	if err := transaction.WithContext(ctx).
		Where("is_private = ? AND expires_at > ?", false, now).
		Order("created_at desc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *chatMessageRepo) StatsSince(ctx context.Context, tx *gorm.DB, senderID uuid.UUID, since time.Time) (*ChatStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	stats := &ChatStats{}
	if err := transaction.WithContext(ctx).
		Model(&types.ChatMessage{}).
		Where("sender_id = ? AND created_at >= ?", senderID, since).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ChatMessage{}).
		Where("sender_id = ? AND created_at >= ? AND flagged_for_sos = ?", senderID, since, true).
		Count(&stats.Flagged).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteExpiredUnflagged removes expired rows. Flagged messages are kept
// regardless of expiry.
func (cr *chatMessageRepo) DeleteExpiredUnflagged(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	res := transaction.WithContext(ctx).
		Where("expires_at <= ? AND flagged_for_sos = ?", now, false).
		Delete(&types.ChatMessage{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
