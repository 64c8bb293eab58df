// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgecam_store_bytes",
		Help: "Aggregate size of finalized segments (pending + uploading) on disk",
	})

	storeSegments = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "edgecam_store_segments",
		Help: "Number of finalized segments by status",
	}, []string{"status"})

	storeQuotaBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgecam_store_quota_bytes",
		Help: "Configured storage quota in bytes",
	})

	storeEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgecam_store_evictions_total",
		Help: "Total number of segments evicted to respect the storage quota",
	})

	storeEvictedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgecam_store_evicted_bytes_total",
		Help: "Total bytes freed by quota eviction",
	})

	storeQuotaWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgecam_store_quota_warnings_total",
		Help: "Quota checks that ended over budget with nothing left to evict",
	})

	storeFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgecam_store_finalized_total",
		Help: "Segment finalize operations by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	storeDiskBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "edgecam_store_disk_bytes",
		Help: "Filesystem capacity holding the segment directory",
	}, []string{"kind"}) // kind=total|used|free
)

// SetStoreUsage records the aggregate on-disk size and per-status segment counts.
func SetStoreUsage(bytes int64, pending, uploading int) {
	storeBytes.Set(float64(bytes))
	storeSegments.WithLabelValues("pending").Set(float64(pending))
	storeSegments.WithLabelValues("uploading").Set(float64(uploading))
}

// SetStoreQuota records the configured quota.
func SetStoreQuota(bytes int64) {
	storeQuotaBytes.Set(float64(bytes))
}

// RecordEviction counts one evicted segment and the bytes it freed.
func RecordEviction(sizeBytes int64) {
	storeEvictions.Inc()
	storeEvictedBytes.Add(float64(sizeBytes))
}

// RecordQuotaWarning counts a quota check that could not get under budget.
func RecordQuotaWarning() {
	storeQuotaWarnings.Inc()
}

// RecordFinalize counts a finalize attempt by outcome.
func RecordFinalize(outcome string) {
	storeFinalized.WithLabelValues(outcome).Inc()
}

// SetDiskStats records filesystem capacity figures for the segment directory.
func SetDiskStats(total, used, free uint64) {
	storeDiskBytes.WithLabelValues("total").Set(float64(total))
	storeDiskBytes.WithLabelValues("used").Set(float64(used))
	storeDiskBytes.WithLabelValues("free").Set(float64(free))
}
