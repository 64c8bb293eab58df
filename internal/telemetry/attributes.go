// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the pipeline.
const (
	// Segment attributes
	SegmentIDKey        = "segment.id"
	SegmentSizeBytesKey = "segment.size_bytes"
	SegmentCreatedAtKey = "segment.created_at"

	// Offload attributes
	PassIDKey       = "offload.pass_id"
	PassBatchKey    = "offload.batch_size"
	PassUploadedKey = "offload.uploaded"
	PassStoppedKey  = "offload.stopped_early"
	PassAttemptKey  = "offload.attempt"
	UploadResultKey = "upload.result"

	// Connectivity attributes
	ProbeTargetKey    = "probe.target"
	ProbeConnectedKey = "probe.connected"

	// Relay attributes
	RelayStateKey  = "relay.state"
	RelayActionKey = "relay.action"
	RelayPIDKey    = "relay.pid"

	// Orchestrator attributes
	TickIDKey = "tick.id"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SegmentAttributes creates segment-related span attributes.
func SegmentAttributes(id string, sizeBytes int64, createdAtUnix int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SegmentIDKey, id),
		attribute.Int64(SegmentSizeBytesKey, sizeBytes),
		attribute.Int64(SegmentCreatedAtKey, createdAtUnix),
	}
}

// PassAttributes creates offload pass span attributes.
func PassAttributes(passID string, batch, uploaded int, stoppedEarly bool) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if passID != "" {
		attrs = append(attrs, attribute.String(PassIDKey, passID))
	}
	return append(attrs,
		attribute.Int(PassBatchKey, batch),
		attribute.Int(PassUploadedKey, uploaded),
		attribute.Bool(PassStoppedKey, stoppedEarly),
	)
}

// RelayAttributes creates relay supervision span attributes.
func RelayAttributes(state, action string, pid int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(RelayStateKey, state),
		attribute.String(RelayActionKey, action),
	}
	if pid > 0 {
		attrs = append(attrs, attribute.Int(RelayPIDKey, pid))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
