package services

import "github.com/prometheus/client_golang/prometheus"

// Notification outcomes recorded per notification item.
const (
	outcomeApplied           = "applied"
	outcomeRejected          = "rejected"
	outcomeMalformed         = "malformed"
	outcomeUnknownCharge     = "unknown_charge"
	outcomeUnverified        = "unverified"
	outcomeUnconfirmed       = "unconfirmed"
	outcomeUnmapped          = "unmapped"
	outcomeIgnored           = "ignored"
	outcomeIllegalTransition = "illegal_transition"
	outcomeConflict          = "conflict"
	outcomeFailed            = "failed"
)

// NotificationMetrics counts notification outcomes. A nil *NotificationMetrics
// records nothing.
type NotificationMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connector",
			Subsystem: "notifications",
			Name:      "processed_total",
			Help:      "Inbound gateway notifications by outcome.",
		}, []string{"gateway", "outcome"}),
	}
	reg.MustRegister(m.outcomes)
	return m
}

func (m *NotificationMetrics) record(gateway, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(gateway, outcome).Inc()
}
