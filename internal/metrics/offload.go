// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_uploads_total",
		Help: "Segment uploads by result",
	}, []string{"result"}) // result=success|transient|rejected|canceled

	uploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgecam_upload_bytes_total",
		Help: "Total bytes of successfully uploaded segments",
	})

	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgecam_upload_duration_seconds",
		Help:    "Duration of individual segment uploads",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27m
	})

	offloadPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_offload_passes_total",
		Help: "Offload passes by outcome",
	}, []string{"outcome"}) // outcome=complete|stopped_early|empty

	offloadPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgecam_offload_batch_size",
		Help: "Number of pending segments observed at the start of the last pass",
	})
)

// RecordUpload records one upload attempt.
func RecordUpload(result string, sizeBytes int64, seconds float64) {
	uploadsTotal.WithLabelValues(result).Inc()
	uploadDuration.Observe(seconds)
	if result == "success" {
		uploadBytes.Add(float64(sizeBytes))
	}
}

// RecordPass records the outcome of one offload pass and the batch it observed.
func RecordPass(outcome string, batchSize int) {
	offloadPasses.WithLabelValues(outcome).Inc()
	offloadPending.Set(float64(batchSize))
}
