package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts guard outcomes.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the guard counters with reg.
// A nil reg falls back to prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeeper",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Guard evaluations by guard and outcome",
		}, []string{"guard", "outcome"}),
	}
}

func (m *Metrics) observe(guard string, d Decision) {
	if m == nil {
		return
	}
	outcome := "render"
	if !d.Renders() {
		outcome = "redirect"
	}
	m.decisions.WithLabelValues(guard, outcome).Inc()
}
