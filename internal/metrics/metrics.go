package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and domain collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	statusCategory  *prometheus.CounterVec

	sosTransitions *prometheus.CounterVec
	authEvents     *prometheus.CounterVec
	sideEffectErrs *prometheus.CounterVec
}

// New creates and registers every collector.
func New(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		statusCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_status_category_total",
			Help:        "Total number of responses by status category (2xx, 4xx, 5xx)",
			ConstLabels: labels,
		}, []string{"category"}),
		sosTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sos_transitions_total",
			Help:        "SOS alert state transitions",
			ConstLabels: labels,
		}, []string{"to"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "auth_events_total",
			Help:        "Authentication outcomes",
			ConstLabels: labels,
		}, []string{"event", "outcome"}),
		sideEffectErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "side_effect_failures_total",
			Help:        "Notification, event and email dispatches that failed after the primary write succeeded",
			ConstLabels: labels,
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.statusCategory,
		m.sosTransitions,
		m.authEvents,
		m.sideEffectErrs,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts, durations and status categories.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			method := c.Request().Method
			path := c.Path()
			statusStr := strconv.Itoa(status)

			m.requests.WithLabelValues(method, path, statusStr).Inc()
			m.requestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())
			if category := statusCategory(status); category != "" {
				m.statusCategory.WithLabelValues(category).Inc()
			}
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SOSTransition counts an alert entering state to.
func (m *Metrics) SOSTransition(to string) {
	if m == nil {
		return
	}
	m.sosTransitions.WithLabelValues(to).Inc()
}

// AuthEvent counts an authentication outcome, e.g. ("login", "success").
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// SideEffectFailed counts a failed notification, event or email dispatch.
func (m *Metrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.sideEffectErrs.WithLabelValues(kind).Inc()
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}
