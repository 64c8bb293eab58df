// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "edgecam_relay_state",
		Help: "Relay controller state (active state=1; others 0)",
	}, []string{"state"})

	relayStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_relay_starts_total",
		Help: "Relay launch attempts by result",
	}, []string{"result"}) // result=ok|error|suppressed

	relayExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_relay_exits_total",
		Help: "Relay process exits by reason",
	}, []string{"reason"}) // reason=stopped|crashed|shutdown

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_proc_terminate_total",
		Help: "Signals sent to supervised process groups by result",
	}, []string{"signal", "result"})

	procWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_proc_wait_total",
		Help: "Supervised process wait outcomes after termination",
	}, []string{"outcome"})
)

var relayStates = []string{"idle", "starting", "live", "stopping"}

// SetRelayState records the active relay controller state.
func SetRelayState(state string) {
	for _, s := range relayStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		relayState.WithLabelValues(s).Set(value)
	}
}

// RecordRelayStart counts a relay launch attempt.
func RecordRelayStart(result string) {
	relayStarts.WithLabelValues(result).Inc()
}

// RecordRelayExit counts a relay process exit.
func RecordRelayExit(reason string) {
	relayExits.WithLabelValues(reason).Inc()
}

// IncProcTerminate counts a signal delivery attempt to a process group.
func IncProcTerminate(signal, result string) {
	procTerminate.WithLabelValues(signal, result).Inc()
}

// IncProcWait counts how a terminated process finally exited.
func IncProcWait(outcome string) {
	procWait.WithLabelValues(outcome).Inc()
}
