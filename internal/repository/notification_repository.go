package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"safetysos/internal/model"
)

// NotificationRepository defines notification persistence operations.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListByUser returns the user's notifications in insertion order.
	ListByUser(ctx context.Context, userID string) ([]model.Notification, error)
	// MarkRead returns ErrNotFound unless the notification exists and belongs to userID.
	MarkRead(ctx context.Context, userID, id string, at time.Time) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	items := make([]model.Notification, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&n).Error; err != nil {
		return nil, translate(err)
	}

	if err := r.db.WithContext(ctx).Model(&n).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": at,
	}).Error; err != nil {
		return nil, err
	}
	n.Read = true
	n.ReadAt = &at
	return &n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}
