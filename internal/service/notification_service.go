package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "safetysos/internal/errors"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

// NotificationService manages per-user notifications.
type NotificationService interface {
	List(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Notify(ctx context.Context, userID, kind, message string) (*model.Notification, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

// NewNotificationService creates a new notification service.
func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo, now: time.Now}
}

func (s *notificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if items == nil {
		items = []model.Notification{}
	}
	return items, nil
}

// MarkRead is idempotent; marking again refreshes ReadAt.
func (s *notificationService) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.repo.MarkRead(ctx, userID, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (s *notificationService) Notify(ctx context.Context, userID, kind, message string) (*model.Notification, error) {
	n := &model.Notification{
		UserID:    userID,
		Type:      kind,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}
