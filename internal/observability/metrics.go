// Package observability provides the metrics sinks for the HTTP server, the
// hazard description service and email delivery. Prometheus backs /metrics;
// CloudWatch serves deployments without a scraper.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "verdant"

// Metrics holds the Prometheus collectors.
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration       *prometheus.HistogramVec // labels: method, route
	CompletionRequests *prometheus.CounterVec   // labels: model, outcome
	CompletionDuration *prometheus.HistogramVec // labels: model
	EmailsSent         *prometheus.CounterVec   // labels: path, outcome
	ViewSessions       prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		CompletionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Hazard description completion calls by model and outcome.",
		}, []string{"model", "outcome"}),
		CompletionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Completion API latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"model"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_emails_total",
			Help:      "Verification emails by delivery path (inline, queued, worker) and outcome.",
		}, []string{"path", "outcome"}),
		ViewSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_sessions",
			Help:      "Dashboard view sessions currently held in memory.",
		}),
	}
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.CompletionRequests,
		m.CompletionDuration,
		m.EmailsSent,
		m.ViewSessions,
	)
	return m
}

// NewMetricsForTesting returns unregistered collectors so tests can create
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// RecordRequest implements core.MetricsCollector.
func (m *Metrics) RecordRequest(method, route, status string, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordCompletion implements hazardinfo.Metrics.
func (m *Metrics) RecordCompletion(model, outcome string, d time.Duration) {
	m.CompletionRequests.WithLabelValues(model, outcome).Inc()
	m.CompletionDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordEmail implements email.Metrics.
func (m *Metrics) RecordEmail(path, outcome string) {
	m.EmailsSent.WithLabelValues(path, outcome).Inc()
}

// SetViewSessions implements dashboard.StoreMetrics.
func (m *Metrics) SetViewSessions(n int) {
	m.ViewSessions.Set(float64(n))
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRequest(string, string, string, time.Duration) {}
func (Nop) RecordCompletion(string, string, time.Duration)      {}
func (Nop) RecordEmail(string, string)                          {}
func (Nop) SetViewSessions(int)                                 {}
