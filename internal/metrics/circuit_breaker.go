// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker states as exported in the state label.
const (
	BreakerClosed   = "closed"
	BreakerHalfOpen = "half-open"
	BreakerOpen     = "open"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vidresolve_circuit_breaker_state",
		Help: "One-hot breaker state per provider",
	}, []string{"component", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidresolve_circuit_breaker_trips_total",
		Help: "Breaker transitions into the open state",
	}, []string{"component", "reason"})

	breakerRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidresolve_circuit_breaker_rejected_total",
		Help: "Provider calls skipped because the breaker was open",
	}, []string{"component"})
)

// SetCircuitBreakerState sets the gauge for state to 1 and every other
// state of the component to 0.
func SetCircuitBreakerState(component, state string) {
	for _, s := range [...]string{BreakerClosed, BreakerHalfOpen, BreakerOpen} {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(component, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts one trip of component's breaker.
func RecordCircuitBreakerTrip(component, reason string) {
	breakerTrips.WithLabelValues(component, reason).Inc()
}

// RecordCircuitBreakerRejection counts a call refused without I/O.
func RecordCircuitBreakerRejection(component string) {
	breakerRejected.WithLabelValues(component).Inc()
}
