// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldPassID   = "pass_id"
	FieldTickID   = "tick_id"
	FieldDeviceID = "device_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"

	// Segment fields
	FieldSegmentID = "segment_id"
	FieldSizeBytes = "size_bytes"
	FieldCreatedAt = "created_at"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath     = "path"
	FieldEndpoint = "endpoint"
	FieldTarget   = "target"

	// Storage fields
	FieldUsedBytes  = "used_bytes"
	FieldLimitBytes = "limit_bytes"
)
