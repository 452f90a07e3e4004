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

const (
	recentWindow    = 7 * 24 * time.Hour
	maxExportAlerts = 10000
)

// Stats summarises the system for the admin dashboard.
type Stats struct {
	TotalUsers        int64 `json:"totalUsers"`
	ActiveSOS         int64 `json:"activeSOS"`
	TotalSOS          int64 `json:"totalSOS"`
	EmergencyContacts int64 `json:"emergencyContacts"`
	RecentSOS         int64 `json:"recentSOS"`
}

// AlertQuery filters the admin alert listing. Status is empty for all statuses.
type AlertQuery struct {
	Status string
	Limit  int
	Offset int
}

// AdminService answers administrator queries over all users' data.
type AdminService interface {
	Stats(ctx context.Context) (*Stats, error)
	// ListAlerts returns alerts most recent first, each with a summary of its owner.
	ListAlerts(ctx context.Context, q AlertQuery) ([]model.SOSAlert, error)
	ResolveAlert(ctx context.Context, alertID, adminID string) (*model.SOSAlert, error)
	// ExportAlerts renders the filtered alerts as an xlsx workbook.
	ExportAlerts(ctx context.Context, status string) ([]byte, error)
}

type adminService struct {
	repos *repository.Repositories
	sos   SOSService
	now   func() time.Time
}

// NewAdminService creates a new admin query service.
func NewAdminService(repos *repository.Repositories, sos SOSService) AdminService {
	return &adminService{repos: repos, sos: sos, now: time.Now}
}

func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.TotalUsers, err = s.repos.Users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if st.ActiveSOS, err = s.repos.Alerts.Count(ctx, repository.AlertFilter{Status: model.AlertStatusActive}); err != nil {
		return nil, fmt.Errorf("count active alerts: %w", err)
	}
	if st.TotalSOS, err = s.repos.Alerts.Count(ctx, repository.AlertFilter{}); err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	if st.EmergencyContacts, err = s.repos.Contacts.Count(ctx, repository.ContactFilter{}); err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}
	since := s.now().UTC().Add(-recentWindow)
	if st.RecentSOS, err = s.repos.Alerts.Count(ctx, repository.AlertFilter{Since: since}); err != nil {
		return nil, fmt.Errorf("count recent alerts: %w", err)
	}
	return &st, nil
}

func (s *adminService) ListAlerts(ctx context.Context, q AlertQuery) ([]model.SOSAlert, error) {
	status, err := parseStatus(q.Status)
	if err != nil {
		return nil, err
	}
	alerts, err := s.repos.Alerts.List(ctx, repository.AlertFilter{
		Status: status,
		Limit:  clampLimit(q.Limit),
		Offset: clampOffset(q.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if err := s.attachOwners(ctx, alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *adminService) ResolveAlert(ctx context.Context, alertID, adminID string) (*model.SOSAlert, error) {
	alert, err := s.sos.Resolve(ctx, alertID, adminID)
	if err != nil {
		return nil, err
	}
	out := []model.SOSAlert{*alert}
	if err := s.attachOwners(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *adminService) ExportAlerts(ctx context.Context, status string) ([]byte, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	alerts, err := s.repos.Alerts.List(ctx, repository.AlertFilter{Status: st, Limit: maxExportAlerts})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if err := s.attachOwners(ctx, alerts); err != nil {
		return nil, err
	}
	return renderAlertWorkbook(alerts, s.now().UTC())
}

// attachOwners fills alert.User for every alert whose owner still exists.
func (s *adminService) attachOwners(ctx context.Context, alerts []model.SOSAlert) error {
	owners := make(map[string]*model.UserSummary)
	for i := range alerts {
		id := alerts[i].UserID
		summary, seen := owners[id]
		if !seen {
			user, err := s.repos.Users.FindByID(ctx, id)
			switch {
			case err == nil:
				summary = user.Summary()
			case errors.Is(err, repository.ErrNotFound):
				summary = nil
			default:
				return fmt.Errorf("find alert owner: %w", err)
			}
			owners[id] = summary
		}
		alerts[i].User = summary
	}
	return nil
}

func parseStatus(raw string) (model.AlertStatus, error) {
	if raw == "" || raw == "all" {
		return "", nil
	}
	status := model.AlertStatus(raw)
	if !status.Valid() {
		return "", apperrors.ErrInvalidStatus
	}
	return status, nil
}
