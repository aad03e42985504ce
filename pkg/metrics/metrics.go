package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	LookupsTotal        *prometheus.CounterVec
	LookupDuration      *prometheus.HistogramVec
	SessionLaunches     *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer to
// expose them through promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lookups_total",
				Help: "Total number of registry lookups.",
			},
			[]string{"outcome", "reason"}, // outcome: found, absent, error
		),
		LookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lookup_duration_seconds",
				Help:    "Duration of registry lookups.",
				Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		SessionLaunches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browser_session_launches_total",
				Help: "Total number of browser session launch attempts.",
			},
			[]string{"backend", "result"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "browser_sessions_active",
				Help: "Number of live browser sessions.",
			},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

func (m *Metrics) ObserveLookup(outcome, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome, reason).Inc()
	m.LookupDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) SessionLaunched(backend string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	} else {
		m.ActiveSessions.Inc()
	}
	m.SessionLaunches.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}
