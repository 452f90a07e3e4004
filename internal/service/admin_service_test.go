package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "safetysos/internal/errors"
	"safetysos/internal/model"
	"safetysos/internal/repository"
)

type adminFixture struct {
	repos    *repository.Repositories
	sos      SOSService
	admin    AdminService
	now      time.Time
	employee *model.User
	manager  *model.User
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	repos := repository.NewMemoryStore().Repositories()
	sos := NewSOSService(repos.Alerts, NewNotificationService(repos.Notifications), &recordingPublisher{}, nil, nil)
	now := time.Now().UTC()

	svc := NewAdminService(repos, sos).(*adminService)
	svc.now = func() time.Time { return now }

	employee := &model.User{Email: strPtr("eve@example.com"), EmployeeID: strPtr("E-1"), Name: "Eve", PasswordHash: "x", Role: model.RoleEmployee}
	require.NoError(t, repos.Users.Create(context.Background(), employee))
	manager := &model.User{Email: strPtr("max@example.com"), Name: "Max", PasswordHash: "x", Role: model.RoleAdmin}
	require.NoError(t, repos.Users.Create(context.Background(), manager))

	return &adminFixture{repos: repos, sos: sos, admin: svc, now: now, employee: employee, manager: manager}
}

// oldAlert stores a cancelled alert that started outside the recent window.
func (fx *adminFixture) oldAlert(t *testing.T, userID string) *model.SOSAlert {
	t.Helper()
	cancelledAt := fx.now.Add(-9 * 24 * time.Hour)
	alert := &model.SOSAlert{
		UserID:      userID,
		Status:      model.AlertStatusCancelled,
		StartedAt:   fx.now.Add(-10 * 24 * time.Hour),
		CancelledAt: &cancelledAt,
	}
	require.NoError(t, fx.repos.Alerts.CreateIfNoActive(context.Background(), alert))
	return alert
}

func TestAdminService_Stats(t *testing.T) {
	ctx := context.Background()
	fx := newAdminFixture(t)

	fx.oldAlert(t, fx.employee.ID)
	_, err := fx.sos.Start(ctx, fx.employee.ID, StartInput{})
	require.NoError(t, err)
	_, err = fx.sos.Start(ctx, fx.manager.ID, StartInput{})
	require.NoError(t, err)
	_, err = fx.sos.Cancel(ctx, fx.manager.ID)
	require.NoError(t, err)

	contacts := NewContactService(fx.repos.Contacts)
	_, err = contacts.Create(ctx, fx.employee.ID, ContactInput{Name: strPtr("Mum"), Phone: strPtr("1")})
	require.NoError(t, err)
	_, err = contacts.Create(ctx, "", ContactInput{Name: strPtr("Security"), Role: strPtr("security")})
	require.NoError(t, err)

	stats, err := fx.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		TotalUsers:        2,
		ActiveSOS:         1,
		TotalSOS:          3,
		EmergencyContacts: 2,
		RecentSOS:         2,
	}, stats)
}

func TestAdminService_ListAlerts(t *testing.T) {
	ctx := context.Background()
	fx := newAdminFixture(t)

	old := fx.oldAlert(t, fx.employee.ID)
	active, err := fx.sos.Start(ctx, fx.employee.ID, StartInput{Latitude: f64(51.5), Longitude: f64(-0.1)})
	require.NoError(t, err)
	orphan := fx.oldAlert(t, "deleted-user")

	t.Run("all statuses newest first with owners", func(t *testing.T) {
		alerts, err := fx.admin.ListAlerts(ctx, AlertQuery{})
		require.NoError(t, err)
		require.Len(t, alerts, 3)
		assert.Equal(t, active.ID, alerts[0].ID)
		require.NotNil(t, alerts[0].User)
		assert.Equal(t, "Eve", alerts[0].User.Name)
		assert.Equal(t, "E-1", *alerts[0].User.EmployeeID)

		for _, a := range alerts {
			if a.ID == orphan.ID {
				assert.Nil(t, a.User, "owner no longer exists")
			}
		}
	})

	t.Run("status filter", func(t *testing.T) {
		alerts, err := fx.admin.ListAlerts(ctx, AlertQuery{Status: "cancelled"})
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		for _, a := range alerts {
			assert.Equal(t, model.AlertStatusCancelled, a.Status)
		}

		all, err := fx.admin.ListAlerts(ctx, AlertQuery{Status: "all"})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := fx.admin.ListAlerts(ctx, AlertQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.NotEqual(t, active.ID, page[0].ID)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := fx.admin.ListAlerts(ctx, AlertQuery{Status: "pending"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	})

	t.Run("resolve attaches the owner", func(t *testing.T) {
		resolved, err := fx.admin.ResolveAlert(ctx, active.ID, fx.manager.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AlertStatusResolved, resolved.Status)
		require.NotNil(t, resolved.User)
		assert.Equal(t, fx.employee.ID, resolved.User.ID)

		_, err = fx.admin.ResolveAlert(ctx, old.ID, fx.manager.ID)
		assert.ErrorIs(t, err, apperrors.ErrAlertNotActive)
	})
}

func TestAdminService_ExportAlerts(t *testing.T) {
	ctx := context.Background()
	fx := newAdminFixture(t)

	fx.oldAlert(t, fx.manager.ID)
	active, err := fx.sos.Start(ctx, fx.employee.ID, StartInput{Latitude: f64(51.5), Longitude: f64(-0.1), Address: strPtr("1 Main St")})
	require.NoError(t, err)

	data, err := fx.admin.ExportAlerts(ctx, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{alertSheet}, f.GetSheetList())
	rows, err := f.GetRows(alertSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, alertExportHeader, rows[0])

	first := rows[1]
	assert.Equal(t, active.ID, first[0])
	assert.Equal(t, "active", first[1])
	assert.Equal(t, "Eve", first[2])
	assert.Equal(t, "eve@example.com", first[3])
	assert.Equal(t, "E-1", first[4])
	assert.Equal(t, "51.5", first[5])
	assert.Equal(t, "-0.1", first[6])
	assert.Equal(t, "1 Main St", first[7])
	assert.Equal(t, active.StartedAt.UTC().Format("2006-01-02 15:04:05"), first[8])

	second := rows[2]
	assert.Equal(t, "cancelled", second[1])
	assert.Equal(t, "Max", second[2])

	t.Run("filtered", func(t *testing.T) {
		data, err := fx.admin.ExportAlerts(ctx, "active")
		require.NoError(t, err)
		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(alertSheet)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := fx.admin.ExportAlerts(ctx, "bogus")
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	})
}
