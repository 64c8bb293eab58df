// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"context"
	"time"

	"github.com/ManuGH/edgecam/internal/segment"
	"github.com/ManuGH/edgecam/internal/sensors"
)

// Metadata accompanies every uploaded segment.
type Metadata struct {
	Filename       string       `json:"filename"`
	Timestamp      time.Time    `json:"timestamp"`
	DeviceID       string       `json:"device_id"`
	GPSCoordinates *sensors.Fix `json:"gps_coordinates"`
	BatteryPercent *float64     `json:"battery_percent,omitempty"`
	SizeBytes      int64        `json:"size_bytes"`
}

// MetadataProvider builds metadata for a segment at upload time.
// It must not fail: missing readings are left empty.
type MetadataProvider interface {
	Metadata(ctx context.Context, seg segment.Segment) Metadata
}

// SensorMetadata fills metadata from the device identity and live sensors.
type SensorMetadata struct {
	DeviceID string
	GPS      sensors.GPSSource
	Battery  sensors.BatterySource
	// Timeout bounds each sensor read.
	Timeout time.Duration
}

const defaultSensorTimeout = 500 * time.Millisecond

// Metadata implements MetadataProvider.
func (p SensorMetadata) Metadata(ctx context.Context, seg segment.Segment) Metadata {
	md := Metadata{
		Filename:  seg.Filename(),
		Timestamp: seg.CreatedAt.UTC(),
		DeviceID:  p.DeviceID,
		SizeBytes: seg.SizeBytes,
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultSensorTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if p.GPS != nil {
		if fix, ok := p.GPS.CurrentFix(sctx); ok {
			md.GPSCoordinates = &fix
		}
	}
	if p.Battery != nil {
		if level, ok := p.Battery.CurrentLevel(sctx); ok {
			md.BatteryPercent = &level
		}
	}
	return md
}
