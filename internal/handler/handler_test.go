package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "safetysos/internal/errors"
	"safetysos/internal/logger"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   apperrors.ErrorResponse
		wantLogged bool
	}{
		{
			name:       "domain error is not logged",
			err:        apperrors.ErrPasswordTooLong,
			wantStatus: http.StatusBadRequest,
			wantBody:   apperrors.ErrorResponse{Error: "Password must be at most 72 bytes", Code: "PASSWORD_TOO_LONG"},
		},
		{
			name:       "unexpected error is logged and hidden",
			err:        errors.New("create alert: record not found"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   apperrors.ErrorResponse{Error: "Internal server error", Code: "INTERNAL_ERROR"},
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			e := echo.New()
			e.Use(logger.Middleware(zap.New(core)))
			e.GET("/", func(c echo.Context) error { return respondError(c, tt.err) })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantBody.Error+`","code":"`+tt.wantBody.Code+`"}`, rec.Body.String())

			failed := logs.FilterMessage("request failed").All()
			if tt.wantLogged {
				require.Len(t, failed, 1)
				assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
			} else {
				assert.Empty(t, failed)
			}
		})
	}
}
