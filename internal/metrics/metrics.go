// Package metrics defines the Prometheus metrics exported by the API.
//
// Metric naming follows Prometheus conventions:
//   - acquisitions_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	// AuthAttemptsTotal counts sign-up and sign-in attempts by operation and outcome.
	AuthAttemptsTotal *prometheus.CounterVec

	// AccessDeniedTotal counts requests rejected by the access gates by reason.
	AccessDeniedTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests rejected by the rate limiter by role.
	RateLimitedTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts served requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDurationSeconds is a histogram of request latency by method and route.
	HTTPRequestDurationSeconds *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, including Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acquisitions_auth_attempts_total",
				Help: "Total sign-up and sign-in attempts by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acquisitions_access_denied_total",
				Help: "Total requests rejected by authentication or role checks.",
			},
			[]string{"reason"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acquisitions_rate_limited_total",
				Help: "Total requests rejected by the rate limiter.",
			},
			[]string{"role"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acquisitions_http_requests_total",
				Help: "Total HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acquisitions_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AuthAttemptsTotal,
		m.AccessDeniedTotal,
		m.RateLimitedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordAuthAttempt implements service.AttemptRecorder.
func (m *Metrics) RecordAuthAttempt(operation, outcome string) {
	m.AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAccessDenied counts a request rejected by an access gate.
func (m *Metrics) RecordAccessDenied(reason string) {
	m.AccessDeniedTotal.WithLabelValues(reason).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(role string) {
	m.RateLimitedTotal.WithLabelValues(role).Inc()
}

// ObserveRequest records a completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
