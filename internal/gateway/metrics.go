package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records gateway call latency and failures. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "connector",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound gateway requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"gateway", "operation", "account_type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connector",
			Subsystem: "gateway",
			Name:      "request_failures_total",
			Help:      "Outbound gateway requests that failed, by failure kind.",
		}, []string{"gateway", "operation", "kind"}),
	}
	reg.MustRegister(m.duration, m.failures)
	return m
}

func (m *Metrics) observe(gateway, operation, accountType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(gateway, operation, accountType).Observe(elapsed.Seconds())
}

func (m *Metrics) failed(gateway, operation string, kind ErrorKind) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(gateway, operation, string(kind)).Inc()
}
