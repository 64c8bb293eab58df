// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "edgecam.offload"

	PassOutcomeKey = "offload.outcome"
)

// RecordPassOutcome emits offload pass counters on the global meter provider.
// The provider is looked up per call so tests can install a reader at runtime.
func RecordPassOutcome(ctx context.Context, outcome string, uploaded int, uploadedBytes int64) {
	meter := otel.GetMeterProvider().Meter(meterName)
	attrs := metric.WithAttributes(attribute.String(PassOutcomeKey, outcome))

	if passes, err := meter.Int64Counter("edgecam_offload_passes",
		metric.WithDescription("Offload passes by outcome")); err == nil {
		passes.Add(ctx, 1, attrs)
	}
	if uploaded <= 0 {
		return
	}
	if segs, err := meter.Int64Counter("edgecam_offload_pass_segments",
		metric.WithDescription("Segments uploaded by offload passes")); err == nil {
		segs.Add(ctx, int64(uploaded), attrs)
	}
	if bytes, err := meter.Int64Counter("edgecam_offload_pass_bytes",
		metric.WithDescription("Bytes uploaded by offload passes"),
		metric.WithUnit("By")); err == nil {
		bytes.Add(ctx, uploadedBytes, attrs)
	}
}
