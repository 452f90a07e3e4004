package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "safetysos/internal/errors"
	"safetysos/internal/events"
	"safetysos/internal/metrics"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

const (
	msgSOSStarted   = "SOS has been activated."
	msgSOSCancelled = "SOS has been cancelled."
	msgSOSResolved  = "Your SOS alert has been resolved."
)

// StartInput carries the optional position of the user raising the SOS.
// The location is recorded only when both coordinates are present.
type StartInput struct {
	Latitude  *float64
	Longitude *float64
	Address   *string
}

// SOSService drives the alert state machine: none -> active -> cancelled | resolved.
type SOSService interface {
	Start(ctx context.Context, userID string, in StartInput) (*model.SOSAlert, error)
	Cancel(ctx context.Context, userID string) (*model.SOSAlert, error)
	// GetActive returns nil without error when the user has no active alert.
	GetActive(ctx context.Context, userID string) (*model.SOSAlert, error)
	Resolve(ctx context.Context, alertID, resolvedBy string) (*model.SOSAlert, error)
	History(ctx context.Context, userID string, limit, offset int) ([]model.SOSAlert, error)
}

type sosService struct {
	alerts    repository.SOSRepository
	notifier  NotificationService
	publisher events.Publisher
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewSOSService creates a new SOS lifecycle service.
func NewSOSService(
	alerts repository.SOSRepository,
	notifier NotificationService,
	publisher events.Publisher,
	log *zap.Logger,
	m *metrics.Metrics,
) SOSService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &sosService{
		alerts:    alerts,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

func (s *sosService) Start(ctx context.Context, userID string, in StartInput) (*model.SOSAlert, error) {
	alert := &model.SOSAlert{
		UserID:    userID,
		Status:    model.AlertStatusActive,
		StartedAt: s.now().UTC(),
	}
	if in.Latitude != nil && in.Longitude != nil {
		loc := model.Location{Latitude: *in.Latitude, Longitude: *in.Longitude}
		if !loc.Valid() {
			return nil, apperrors.ErrInvalidLocation
		}
		alert.SetLocation(&loc)
	}
	if in.Address != nil {
		if addr := strings.TrimSpace(*in.Address); addr != "" {
			alert.Address = &addr
		}
	}

	if err := s.alerts.CreateIfNoActive(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrActiveAlertExists) {
			return nil, apperrors.ErrSOSAlreadyActive
		}
		if errors.Is(err, repository.ErrNotFound) {
			// Owner deleted after the token was authenticated.
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("create alert: %w", err)
	}

	s.afterTransition(ctx, alert, model.NotificationSOSStarted, msgSOSStarted, events.SOSStarted)
	return alert, nil
}

func (s *sosService) Cancel(ctx context.Context, userID string) (*model.SOSAlert, error) {
	active, err := s.alerts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrNoActiveSOS
		}
		return nil, fmt.Errorf("find active alert: %w", err)
	}

	alert, err := s.alerts.Transition(ctx, active.ID, model.AlertStatusActive, model.AlertStatusCancelled, s.now().UTC(), "")
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Resolved or cancelled between the lookup and the update.
			return nil, apperrors.ErrNoActiveSOS
		}
		return nil, fmt.Errorf("cancel alert: %w", err)
	}

	s.afterTransition(ctx, alert, model.NotificationSOSCancelled, msgSOSCancelled, events.SOSCancelled)
	return alert, nil
}

func (s *sosService) GetActive(ctx context.Context, userID string) (*model.SOSAlert, error) {
	alert, err := s.alerts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active alert: %w", err)
	}
	return alert, nil
}

// Resolve closes an active alert on behalf of an administrator.
// Cancelled and resolved alerts are final and yield ErrAlertNotActive.
func (s *sosService) Resolve(ctx context.Context, alertID, resolvedBy string) (*model.SOSAlert, error) {
	existing, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrAlertNotFound
		}
		return nil, fmt.Errorf("find alert: %w", err)
	}
	if existing.Status.Terminal() {
		return nil, apperrors.ErrAlertNotActive
	}

	alert, err := s.alerts.Transition(ctx, alertID, model.AlertStatusActive, model.AlertStatusResolved, s.now().UTC(), resolvedBy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrAlertNotActive
		}
		return nil, fmt.Errorf("resolve alert: %w", err)
	}

	s.afterTransition(ctx, alert, model.NotificationSOSResolved, msgSOSResolved, events.SOSResolved)
	return alert, nil
}

func (s *sosService) History(ctx context.Context, userID string, limit, offset int) ([]model.SOSAlert, error) {
	alerts, err := s.alerts.List(ctx, repository.AlertFilter{
		UserID: userID,
		Limit:  clampLimit(limit),
		Offset: clampOffset(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// afterTransition notifies the alert owner and publishes the event.
// The transition is already committed, so failures are only logged and counted.
func (s *sosService) afterTransition(ctx context.Context, alert *model.SOSAlert, kind, message, eventType string) {
	s.metrics.SOSTransition(string(alert.Status))
	log := s.log.With(zap.String("alert_id", alert.ID), zap.String("user_id", alert.UserID))

	if _, err := s.notifier.Notify(ctx, alert.UserID, kind, message); err != nil {
		s.metrics.SideEffectFailed("notification")
		log.Error("failed to create notification", zap.String("type", kind), zap.Error(err))
	}

	event := events.Event{
		Type:       eventType,
		UserID:     alert.UserID,
		OccurredAt: s.now().UTC(),
		Data:       alert,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.SideEffectFailed("event")
		log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
	log.Info("SOS alert transitioned", zap.String("status", string(alert.Status)))
}
