// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectivityUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgecam_connectivity_up",
		Help: "1 if the last connectivity probe succeeded, 0 otherwise",
	})

	connectivityProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_connectivity_probes_total",
		Help: "Connectivity probes by result",
	}, []string{"result"}) // result=connected|disconnected

	connectivityProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgecam_connectivity_probe_duration_seconds",
		Help:    "Duration of connectivity probes",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})
)

// RecordProbe records the outcome and latency of one connectivity probe.
func RecordProbe(connected bool, seconds float64) {
	result := "disconnected"
	value := 0.0
	if connected {
		result = "connected"
		value = 1.0
	}
	connectivityUp.Set(value)
	connectivityProbes.WithLabelValues(result).Inc()
	connectivityProbeDuration.Observe(seconds)
}
