package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safetysos/internal/auth"
	"safetysos/internal/cache"
	"safetysos/internal/config"
	"safetysos/internal/handler"
	"safetysos/internal/mailer"
	"safetysos/internal/metrics"
	"safetysos/internal/model"
	"safetysos/internal/repository"
	"safetysos/internal/router"
	"safetysos/internal/service"
)

type testServer struct {
	e     *echo.Echo
	repos *repository.Repositories
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0, log)
	t.Cleanup(func() { _ = cacheClient.Close() })

	repos := repository.NewMemoryStore().Repositories()
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}
	m := metrics.New("safetysos-test")

	authService := service.NewAuthService(repos.Users, auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry),
		auth.NewTokenStore(cacheClient), nopSender{}, service.AuthOptions{FrontendURL: "http://app.test"}, log, m)
	userService := service.NewUserService(repos.Users, repos.Contacts, cacheClient, log)
	notifications := service.NewNotificationService(repos.Notifications)
	sos := service.NewSOSService(repos.Alerts, notifications, nil, log, m)
	contacts := service.NewContactService(repos.Contacts)
	admin := service.NewAdminService(repos, sos)

	e := echo.New()
	router.Register(e, cfg, log, m, authService, userService, router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Profile:       handler.NewProfileHandler(userService, contacts),
		SOS:           handler.NewSOSHandler(sos),
		Notifications: handler.NewNotificationHandler(notifications),
		Admin:         handler.NewAdminHandler(userService, admin, contacts),
	})
	return &testServer{e: e, repos: repos}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, body map[string]string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp handler.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (s *testServer) createAdmin(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashPassword("Admin@123")
	require.NoError(t, err)
	email := "admin@example.com"
	require.NoError(t, s.repos.Users.Create(context.Background(), &model.User{
		Email:         &email,
		Name:          "Admin",
		PasswordHash:  hash,
		EmailVerified: true,
		Role:          model.RoleAdmin,
	}))
	return s.login(t, map[string]string{"email": email, "password": "Admin@123"})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type nopSender struct{}

func (nopSender) Send(context.Context, mailer.Message) error { return nil }

func TestEmployeeSOSFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@x.com", "password": "P@ss1", "name": "A",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode(t, rec)
	assert.Equal(t, true, reg["requiresVerification"])
	assert.NotContains(t, reg, "token")

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "P@ss1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", decode(t, rec)["code"])

	user, err := s.repos.Users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, user.VerificationToken)

	rec = s.do(t, http.MethodGet, "/api/auth/verify-email/"+*user.VerificationToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = s.do(t, http.MethodGet, "/api/auth/verify-email/"+*user.VerificationToken, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "verification tokens are single use")

	token := s.login(t, map[string]string{"email": "a@x.com", "password": "P@ss1"})

	rec = s.do(t, http.MethodGet, "/api/sos/active", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = s.do(t, http.MethodPost, "/api/sos/start", token, map[string]float64{"latitude": 1, "longitude": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode(t, rec)
	assert.Equal(t, "active", started["status"])
	assert.Equal(t, map[string]interface{}{"latitude": 1.0, "longitude": 2.0}, started["location"])

	rec = s.do(t, http.MethodPost, "/api/sos/start", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SOS_ALREADY_ACTIVE", decode(t, rec)["code"])

	rec = s.do(t, http.MethodGet, "/api/sos/active", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, started["id"], decode(t, rec)["id"])

	rec = s.do(t, http.MethodPost, "/api/sos/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/api/sos/active", token, nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = s.do(t, http.MethodPost, "/api/sos/cancel", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/sos/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 1)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked token is rejected")
}

func TestEmployeeIDRegistrationSkipsVerification(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"employeeId": "EMP-7", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode(t, rec)
	assert.Equal(t, false, reg["requiresVerification"])
	assert.NotEmpty(t, reg["token"])

	token := s.login(t, map[string]string{"employeeId": "EMP-7", "password": "secret"})
	rec = s.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EMP-7", decode(t, rec)["employeeId"])

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"employeeId": "EMP-7", "password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{name: "missing token", method: http.MethodGet, path: "/api/sos/active", wantCode: http.StatusUnauthorized, wantErr: "MISSING_TOKEN"},
		{name: "garbage token", method: http.MethodGet, path: "/api/sos/active", token: "not-a-jwt", wantCode: http.StatusUnauthorized, wantErr: "INVALID_TOKEN"},
		{name: "missing credentials", method: http.MethodPost, path: "/api/auth/register", body: map[string]string{"password": "x"}, wantCode: http.StatusBadRequest, wantErr: "MISSING_CREDENTIALS"},
		{name: "invalid email", method: http.MethodPost, path: "/api/auth/register", body: map[string]string{"email": "nope", "password": "x"}, wantCode: http.StatusBadRequest, wantErr: "VALIDATION_ERROR"},
		{name: "password over 72 bytes", method: http.MethodPost, path: "/api/auth/register", body: map[string]string{"email": "mb@x.com", "password": strings.Repeat("é", 40)}, wantCode: http.StatusBadRequest, wantErr: "PASSWORD_TOO_LONG"},
		{name: "unknown user", method: http.MethodPost, path: "/api/auth/login", body: map[string]string{"email": "ghost@x.com", "password": "x"}, wantCode: http.StatusUnauthorized, wantErr: "INVALID_CREDENTIALS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode(t, rec)["code"])
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.createAdmin(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"employeeId": "E1", "password": "pw", "name": "Emp"})
	require.Equal(t, http.StatusCreated, rec.Code)
	employeeToken := decode(t, rec)["token"].(string)

	rec = s.do(t, http.MethodGet, "/api/admin/stats", employeeToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ADMIN_REQUIRED", decode(t, rec)["code"])

	rec = s.do(t, http.MethodPost, "/api/sos/start", employeeToken, map[string]interface{}{
		"location": map[string]float64{"latitude": 10, "longitude": 20},
		"address":  "Dock 4",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alertID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 2, stats["totalUsers"])
	assert.EqualValues(t, 1, stats["activeSOS"])

	rec = s.do(t, http.MethodGet, "/api/admin/sos-alerts?status=active", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	owner := alerts[0]["user"].(map[string]interface{})
	assert.Equal(t, "Emp", owner["name"])

	rec = s.do(t, http.MethodGet, "/api/admin/sos-alerts?status=bogus", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/sos-alerts/export", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "sos-alerts-")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = s.do(t, http.MethodPost, "/api/admin/sos-alerts/"+alertID+"/resolve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "resolved", decode(t, rec)["status"])

	rec = s.do(t, http.MethodPost, "/api/admin/sos-alerts/"+alertID+"/resolve", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ALERT_NOT_ACTIVE", decode(t, rec)["code"])

	rec = s.do(t, http.MethodGet, "/api/notifications", employeeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, model.NotificationSOSResolved, items[1]["type"])

	t.Run("global contacts", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/admin/emergency-contacts", adminToken, map[string]string{"name": "Security", "role": "security", "phone": "999"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		id := decode(t, rec)["id"].(string)

		rec = s.do(t, http.MethodPut, "/api/profile/emergency-contacts/"+id, employeeToken, map[string]string{"name": "Mine now"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = s.do(t, http.MethodDelete, "/api/admin/emergency-contacts/"+id, adminToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("role change applies to existing tokens", func(t *testing.T) {
		employee, err := s.repos.Users.FindByEmployeeID(context.Background(), "E1")
		require.NoError(t, err)

		rec := s.do(t, http.MethodPut, "/api/admin/users/"+employee.ID+"/role", adminToken, map[string]string{"role": "admin"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodGet, "/api/admin/users", employeeToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(t, http.MethodPut, "/api/admin/users/"+employee.ID+"/role", adminToken, map[string]string{"role": "root"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deleted user loses access", func(t *testing.T) {
		employee, err := s.repos.Users.FindByEmployeeID(context.Background(), "E1")
		require.NoError(t, err)

		rec := s.do(t, http.MethodDelete, "/api/admin/users/"+employee.ID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do(t, http.MethodGet, "/api/profile", employeeToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/api/health", "", nil)
	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/health",service="safetysos-test",status="200"} 1`)
}
