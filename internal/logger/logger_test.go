package logger

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
)

func TestInit(t *testing.T) {
	l, err := Init(Options{Level: "debug", Environment: "production", ServiceName: "safetysos"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.Same(t, l, L())

	l, err = Init(Options{Level: "loud", Environment: "development"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel), "unknown levels fall back to info")
}

func TestMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := echo.New()
	e.Use(Middleware(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error {
		assert.NotNil(t, FromEcho(c))
		return c.NoContent(http.StatusOK)
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	tests := []struct {
		path      string
		wantCode  int
		wantLevel zapcore.Level
		wantMsg   string
	}{
		{"/ok", http.StatusOK, zapcore.InfoLevel, "HTTP request completed"},
		{"/missing", http.StatusNotFound, zapcore.WarnLevel, "HTTP request rejected"},
		{"/boom", http.StatusInternalServerError, zapcore.ErrorLevel, "HTTP request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(echo.HeaderXRequestID, "req-1")
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)

			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)
			assert.Equal(t, tt.wantMsg, entries[0].Message)
			fields := entries[0].ContextMap()
			assert.Equal(t, "req-1", fields["request_id"])
			assert.Equal(t, tt.path, fields["path"])
			assert.EqualValues(t, tt.wantCode, fields["status"])
		})
	}
}

func TestFromEcho_OutsideRequest(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NotNil(t, FromEcho(c))
}
