package repositories

import (
	"context"
	"time"

	"brokebuy/internal/models"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	return wrapErr("create message", r.db.WithContext(ctx).Create(msg).Error)
}

func (r *messageRepository) SentSince(ctx context.Context, senderID string, since time.Time) (WindowCount, error) {
	var row struct {
		Count  int64
		Oldest *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("COUNT(*) AS count, MIN(created_at) AS oldest").
		Where("sender_id = ? AND created_at >= ?", senderID, since).
		Scan(&row).Error
	if err != nil {
		return WindowCount{}, wrapErr("count messages", err)
	}
	return WindowCount{Count: row.Count, Oldest: row.Oldest}, nil
}
