package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	// BreakerState is 0 while closed, 1 while open and 2 while probing.
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "upstream",
		Name:      "breaker_state",
		Help:      "Breaker position per upstream: 0=closed, 1=open, 2=half-open.",
	}, []string{"upstream"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "upstream",
		Name:      "breaker_transitions_total",
		Help:      "Breaker transitions per upstream.",
	}, []string{"upstream", "from", "to"})
	BreakerTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "upstream",
		Name:      "breaker_trips_total",
		Help:      "Times an upstream breaker opened.",
	}, []string{"upstream"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerTrips)
}

func setStateGauge(upstream string, s State) {
	v := -1.0
	switch s {
	case Closed:
		v = 0
	case Open:
		v = 1
	case HalfOpen:
		v = 2
	}
	BreakerState.WithLabelValues(upstream).Set(v)
}

func countTransition(upstream string, from, to State) {
	BreakerTransitions.WithLabelValues(upstream, from.String(), to.String()).Inc()
	if to == Open {
		BreakerTrips.WithLabelValues(upstream).Inc()
	}
}
