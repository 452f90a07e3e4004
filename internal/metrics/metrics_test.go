package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsStatus(t *testing.T) {
	m := New("test")
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/gone", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) })

	for _, path := range []string{"/ok", "/ok", "/gone"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/ok", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/gone", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.statusCategory.WithLabelValues("2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusCategory.WithLabelValues("4xx")))
}

func TestDomainCounters(t *testing.T) {
	m := New("test")
	m.SOSTransition("active")
	m.SOSTransition("active")
	m.AuthEvent("login", "success")
	m.SideEffectFailed("notification")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sosTransitions.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sideEffectErrs.WithLabelValues("notification")))

	n, err := testutil.GatherAndCount(m.Registry(), "sos_transitions_total", "auth_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SOSTransition("active")
	m.AuthEvent("login", "success")
	m.SideEffectFailed("email")

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", statusCategory(201))
	assert.Equal(t, "4xx", statusCategory(409))
	assert.Equal(t, "5xx", statusCategory(503))
	assert.Empty(t, statusCategory(302))
}
