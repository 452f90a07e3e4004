package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing credentials", ErrMissingCredentials, http.StatusBadRequest, "MISSING_CREDENTIALS"},
		{"password too long", ErrPasswordTooLong, http.StatusBadRequest, "PASSWORD_TOO_LONG"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"email not verified", ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED"},
		{"admin required", ErrAdminRequired, http.StatusForbidden, "ADMIN_REQUIRED"},
		{"email taken", ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
		{"sos already active", ErrSOSAlreadyActive, http.StatusConflict, "SOS_ALREADY_ACTIVE"},
		{"no active sos", ErrNoActiveSOS, http.StatusNotFound, "NO_ACTIVE_SOS"},
		{"alert not active", ErrAlertNotActive, http.StatusNotFound, "ALERT_NOT_ACTIVE"},
		{"wrapped sentinel", fmt.Errorf("start: %w", ErrSOSAlreadyActive), http.StatusConflict, "SOS_ALREADY_ACTIVE"},
		{"unknown error", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestMapErrorToHTTP_HidesInternalDetails(t *testing.T) {
	got := MapErrorToHTTP(errors.New("dial tcp 10.0.0.1:5432: refused"))
	assert.Equal(t, "Internal server error", got.Message)
	assert.False(t, IsDomain(errors.New("x")))
	assert.True(t, IsDomain(ErrUserNotFound))
}

func TestMapErrorToHTTP_PassesHTTPErrorThrough(t *testing.T) {
	in := Validation("email must be a valid email address")
	got := MapErrorToHTTP(fmt.Errorf("bind: %w", in))
	assert.Same(t, in, got)
	assert.Equal(t, ErrorResponse{Error: "email must be a valid email address", Code: "VALIDATION_ERROR"}, got.ToErrorResponse())
}

func TestMapErrorToHTTP_UsesClientMessage(t *testing.T) {
	got := MapErrorToHTTP(fmt.Errorf("login: %w", ErrEmailNotVerified))
	assert.Equal(t, "Email not verified. Please check your email for the verification link.", got.Message)
	assert.Equal(t, "email not verified", ErrEmailNotVerified.Error())

	got = MapErrorToHTTP(ErrPasswordTooLong)
	assert.Equal(t, "Password must be at most 72 bytes", got.Message)
}

func TestMappingsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range mappings {
		assert.False(t, seen[m.code], "duplicate code %s", m.code)
		seen[m.code] = true
	}
}

func TestSentinelsAreLowercase(t *testing.T) {
	for _, m := range mappings {
		msg := m.err.Error()
		assert.NotEmpty(t, m.message, m.code)
		assert.Equal(t, strings.ToLower(msg[:1]), msg[:1], "%s starts with a capital", m.code)
		assert.False(t, strings.HasSuffix(msg, "."), "%s ends with punctuation", m.code)
	}
}
