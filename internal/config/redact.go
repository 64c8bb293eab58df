// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/rs/zerolog"

	xnet "github.com/ManuGH/edgecam/internal/platform/net"
)

const masked = "***"

// MaskSecret hides a credential while keeping its presence visible.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	return masked
}

// Redacted returns a copy safe to log: credentials masked, URLs sanitized.
func (c AppConfig) Redacted() AppConfig {
	out := c
	out.UploadEndpoint = redactURL(c.UploadEndpoint)
	out.RelayTargetURL = redactURL(c.RelayTargetURL)
	out.ConnectivityProbeURL = redactURL(c.ConnectivityProbeURL)
	out.Upload.S3.AccessKey = MaskSecret(c.Upload.S3.AccessKey)
	out.Upload.S3.SecretKey = MaskSecret(c.Upload.S3.SecretKey)
	out.Relay.ExtraArgs = append([]string(nil), c.Relay.ExtraArgs...)
	return out
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	return xnet.SanitizeURL(raw)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler with redaction applied.
func (c AppConfig) MarshalZerologObject(e *zerolog.Event) {
	r := c.Redacted()
	e.Str("version", r.Version).
		Str("device_id", r.DeviceID).
		Str("segment_dir", r.SegmentDir).
		Str("storage_quota", r.StorageQuota.String()).
		Dur("tick_interval", r.TickInterval).
		Dur("quota_interval", r.QuotaInterval).
		Str("probe_url", r.ConnectivityProbeURL).
		Int("max_retries_per_tick", r.MaxRetriesPerTick).
		Str("upload_endpoint", r.UploadEndpoint).
		Str("relay_target", r.RelayTargetURL).
		Str("listen_addr", r.ListenAddr).
		Bool("telemetry", r.Telemetry.Enabled)
}
