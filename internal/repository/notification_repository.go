package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dispatch-service/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

type NotificationFilter struct {
	RecipientID uuid.UUID
	UnreadOnly  bool
	Limit       int
	Offset      int
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, filter NotificationFilter) ([]model.Notification, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ?", filter.RecipientID)

	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	} else {
		query = query.Limit(100)
	}

	var notifications []model.Notification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead is idempotent: marking an already-read or missing notification
// simply affects zero rows.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("read", true).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error
}

func (r *NotificationRepository) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Delete(&model.Notification{}).Error
}

func (r *NotificationRepository) DeleteAll(ctx context.Context, recipientID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Delete(&model.Notification{}).Error
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
