// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgecam_ticks_total",
		Help: "Total number of orchestrator ticks executed",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgecam_tick_duration_seconds",
		Help:    "Duration of orchestrator ticks",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	})

	batteryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgecam_battery_percent",
		Help: "Last observed battery level (-1 when unavailable)",
	})
)

// RecordTick records one orchestrator tick.
func RecordTick(seconds float64) {
	ticksTotal.Inc()
	tickDuration.Observe(seconds)
}

// SetBatteryPercent records the last battery reading; ok=false marks it unavailable.
func SetBatteryPercent(percent float64, ok bool) {
	if !ok {
		batteryPercent.Set(-1)
		return
	}
	batteryPercent.Set(percent)
}
