// Package metrics exports Prometheus counters for the identity flows.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "formini"

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RegistrationsTotal       *prometheus.CounterVec
	LoginsTotal              *prometheus.CounterVec
	MFAVerificationsTotal    *prometheus.CounterVec
	NotificationsTotal       *prometheus.CounterVec
	InstructorDecisionsTotal *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		RegistrationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Accounts registered, by role",
			},
			[]string{"role"},
		),
		LoginsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts, by method and result",
			},
			[]string{"method", "result"},
		),
		MFAVerificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mfa_verifications_total",
				Help:      "Verification code submissions, by result",
			},
			[]string{"result"},
		),
		NotificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifier deliveries, by kind and result",
			},
			[]string{"kind", "result"},
		),
		InstructorDecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instructor_decisions_total",
				Help:      "Instructor applications decided, by decision",
			},
			[]string{"decision"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// Registration counts a new account.
func (m *Metrics) Registration(role string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(role).Inc()
}

// Login counts a login attempt.
func (m *Metrics) Login(method string, err error) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(method, result(err)).Inc()
}

// MFAVerification counts a verification code submission.
func (m *Metrics) MFAVerification(err error) {
	if m == nil {
		return
	}
	m.MFAVerificationsTotal.WithLabelValues(result(err)).Inc()
}

// Notification counts a notifier delivery.
func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, result(err)).Inc()
}

// InstructorDecision counts an approval or rejection.
func (m *Metrics) InstructorDecision(decision string) {
	if m == nil {
		return
	}
	m.InstructorDecisionsTotal.WithLabelValues(decision).Inc()
}

// Middleware records request counts and durations by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
