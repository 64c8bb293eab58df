// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "edgecam_circuit_breaker_state",
		Help: "Circuit breaker state by component (active state=1; others 0)",
	}, []string{"component", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_circuit_breaker_trips_total",
		Help: "Circuit breaker transitions to open by component and reason",
	}, []string{"component", "reason"})

	circuitBreakerFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "edgecam_circuit_breaker_consecutive_failures",
		Help: "Consecutive failures counted by a circuit breaker since its last success",
	}, []string{"component"})
)

var circuitStates = []string{"closed", "half-open", "open"}

// SetCircuitBreakerState records the active circuit breaker state for a component.
func SetCircuitBreakerState(component, state string) {
	for _, s := range circuitStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(component, s).Set(value)
	}
}

// RecordCircuitBreakerTrip counts a transition to open.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}

// SetCircuitBreakerFailures publishes the consecutive failure count.
func SetCircuitBreakerFailures(component string, failures int) {
	circuitBreakerFailures.WithLabelValues(component).Set(float64(failures))
}
