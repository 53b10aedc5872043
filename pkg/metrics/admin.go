package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
)

// AdminCallMetrics records outbound calls made to the admin service.
type AdminCallMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewAdminCallMetrics registers the admin call metrics on the provided registerer.
func NewAdminCallMetrics(reg prometheus.Registerer) *AdminCallMetrics {
	if reg == nil {
		return &AdminCallMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "admin_request_duration_seconds",
		Help:    "Duration of calls to the admin service in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_requests_total",
		Help: "Calls to the admin service by outcome.",
	}, []string{"endpoint", "outcome"})
	reg.MustRegister(duration, requests)
	return &AdminCallMetrics{
		duration: duration,
		requests: requests,
	}
}

// Observe records one completed call.
func (m *AdminCallMetrics) Observe(endpoint, outcome string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	endpoint = normalizeLabel(endpoint)
	m.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
	m.requests.WithLabelValues(endpoint, normalizeLabel(outcome)).Inc()
}

// OutcomeForStatus maps an HTTP status to an outcome label.
func OutcomeForStatus(status int) string {
	if status >= 200 && status < 300 {
		return OutcomeSuccess
	}
	return OutcomeRejected
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
