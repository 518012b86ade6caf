package worker

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeSucceeded    = "succeeded"
	OutcomeSkipped      = "skipped"
	OutcomeUnsupported  = "unsupported"
	OutcomeGatewayError = "gateway_error"
	OutcomeFailed       = "failed"
)

// Metrics records sweep activity. A nil *Metrics records nothing.
type Metrics struct {
	charges  *prometheus.CounterVec
	selected *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connector",
			Subsystem: "sweep",
			Name:      "charges_total",
			Help:      "Charges processed by background sweeps, by outcome.",
		}, []string{"sweep", "outcome"}),
		selected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "connector",
			Subsystem: "sweep",
			Name:      "last_selected",
			Help:      "Charges selected by the most recent run of each sweep.",
		}, []string{"sweep"}),
	}
	reg.MustRegister(m.charges, m.selected)
	return m
}

func (m *Metrics) charge(sweep, outcome string) {
	if m == nil {
		return
	}
	m.charges.WithLabelValues(sweep, outcome).Inc()
}

func (m *Metrics) ran(sweep string, selected int) {
	if m == nil {
		return
	}
	m.selected.WithLabelValues(sweep).Set(float64(selected))
}
