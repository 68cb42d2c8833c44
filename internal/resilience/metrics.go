package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker metrics are package-level so every breaker in the process reports
// through the same vectors, keyed by the guarded target.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "promo",
		Subsystem: "resilience",
		Name:      "breaker_state",
		Help:      "Breaker position per target: 0=closed, 1=open, 2=half-open.",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promo",
		Subsystem: "resilience",
		Name:      "breaker_transitions_total",
		Help:      "State transitions per target, labelled by from and to state.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promo",
		Subsystem: "resilience",
		Name:      "breaker_opened_total",
		Help:      "Times a breaker tripped open, per target.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
