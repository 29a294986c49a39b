package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutations by operation and selection mode.
	CartMutationsTotal *prometheus.CounterVec
	// PriceFallbackTotal counts substitutions of the fallback base price by reason.
	PriceFallbackTotal *prometheus.CounterVec
	// GeocodeRequestsTotal tracks address suggestion lookups by outcome.
	GeocodeRequestsTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts order submissions by outcome.
	OrdersPlacedTotal *prometheus.CounterVec
	// BackendRequestsTotal counts backend calls by operation and status class.
	BackendRequestsTotal *prometheus.CounterVec
	// CartSubscribers reports the number of live cart count subscribers.
	CartSubscribers prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation and selection mode.",
		}, []string{"op", "mode"})
		PriceFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_price_fallback_total",
			Help:      "Count of product prices replaced by the fallback base price.",
		}, []string{"reason"})
		GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Count of address suggestion lookups by outcome.",
		}, []string{"result"})
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order submissions by outcome.",
		}, []string{"result"})
		BackendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Count of backend API calls by operation and result.",
		}, []string{"op", "result"})
		CartSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_count_subscribers",
			Help:      "Number of connected cart count subscribers.",
		})

		CartMutationsTotal = registerOrReuse(reg, CartMutationsTotal)
		PriceFallbackTotal = registerOrReuse(reg, PriceFallbackTotal)
		GeocodeRequestsTotal = registerOrReuse(reg, GeocodeRequestsTotal)
		OrdersPlacedTotal = registerOrReuse(reg, OrdersPlacedTotal)
		BackendRequestsTotal = registerOrReuse(reg, BackendRequestsTotal)
		CartSubscribers = registerOrReuse(reg, CartSubscribers)
	})
}

// CountCartMutation increments the cart mutation counter when metrics are registered.
func CountCartMutation(op, mode string) {
	if CartMutationsTotal != nil {
		CartMutationsTotal.WithLabelValues(op, mode).Inc()
	}
}

// CountPriceFallback increments the fallback price counter when metrics are registered.
func CountPriceFallback(reason string) {
	if PriceFallbackTotal != nil {
		PriceFallbackTotal.WithLabelValues(reason).Inc()
	}
}

// CountGeocode increments the geocode counter when metrics are registered.
func CountGeocode(result string) {
	if GeocodeRequestsTotal != nil {
		GeocodeRequestsTotal.WithLabelValues(result).Inc()
	}
}

// CountOrder increments the order counter when metrics are registered.
func CountOrder(result string) {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.WithLabelValues(result).Inc()
	}
}

// CountBackend records one backend call. result is a status class such as
// "2xx" or "error" for transport failures.
func CountBackend(op, result string) {
	if BackendRequestsTotal != nil {
		BackendRequestsTotal.WithLabelValues(op, result).Inc()
	}
}
