// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"
)

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// mergeFileConfig copies every key present in the file over cfg.
func mergeFileConfig(cfg *AppConfig, f *FileConfig) {
	if f == nil {
		return
	}
	setString(&cfg.DeviceID, f.DeviceID)
	setString(&cfg.LogLevel, f.LogLevel)
	setPtr(&cfg.ListenAddr, f.ListenAddr)

	setString(&cfg.SegmentDir, f.SegmentDir)
	setString(&cfg.SegmentExtension, f.SegmentExtension)
	setPtr(&cfg.StorageQuota, f.StorageQuotaBytes)
	setSeconds(&cfg.QuotaInterval, f.QuotaIntervalSeconds)

	setSeconds(&cfg.TickInterval, f.TickIntervalSeconds)
	setString(&cfg.ConnectivityProbeURL, f.ConnectivityProbeURL)
	setSeconds(&cfg.ConnectivityTimeout, f.ConnectivityTimeoutSeconds)
	setPtr(&cfg.MaxRetriesPerTick, f.MaxRetriesPerTick)

	setString(&cfg.UploadEndpoint, f.UploadEndpoint)
	if u := f.Upload; u != nil {
		setSeconds(&cfg.Upload.Timeout, u.TimeoutSeconds)
		setPtr(&cfg.Upload.MaxBytesPerSecond, u.MaxBytesPerSecond)
		setSeconds(&cfg.Upload.RetryBackoff, u.RetryBackoffSeconds)
		if s3 := u.S3; s3 != nil {
			setString(&cfg.Upload.S3.Endpoint, s3.Endpoint)
			setString(&cfg.Upload.S3.AccessKey, s3.AccessKey)
			setString(&cfg.Upload.S3.SecretKey, s3.SecretKey)
			setPtr(&cfg.Upload.S3.UseSSL, s3.UseSSL)
			setString(&cfg.Upload.S3.Region, s3.Region)
		}
	}

	setString(&cfg.RelayTargetURL, f.RelayTargetURL)
	if r := f.Relay; r != nil {
		setString(&cfg.Relay.Bin, r.Bin)
		setString(&cfg.Relay.InputURL, r.InputURL)
		if r.ExtraArgs != nil {
			cfg.Relay.ExtraArgs = append([]string(nil), r.ExtraArgs...)
		}
		setSeconds(&cfg.Relay.GracePeriod, r.GracePeriodSeconds)
	}

	if g := f.GPS; g != nil {
		if g.Latitude != nil {
			lat := *g.Latitude
			cfg.GPS.Latitude = &lat
		}
		if g.Longitude != nil {
			lon := *g.Longitude
			cfg.GPS.Longitude = &lon
		}
	}

	if b := f.Battery; b != nil {
		setString(&cfg.Battery.Path, b.Path)
		setPtr(&cfg.Battery.LowThresholdPercent, b.LowThresholdPercent)
	}

	if t := f.Telemetry; t != nil {
		setPtr(&cfg.Telemetry.Enabled, t.Enabled)
		setString(&cfg.Telemetry.Exporter, t.Exporter)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setPtr(&cfg.Telemetry.Insecure, t.Insecure)
		setPtr(&cfg.Telemetry.SamplingRate, t.SamplingRate)
	}
}

// mergeEnvConfig applies EDGECAM_* overrides.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DeviceID = l.envString("EDGECAM_DEVICE_ID", cfg.DeviceID)
	cfg.LogLevel = l.envString("EDGECAM_LOG_LEVEL", cfg.LogLevel)
	// An explicitly empty listen address disables the status server.
	if v, ok := l.envLookupRaw("EDGECAM_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	cfg.SegmentDir = l.envString("EDGECAM_SEGMENT_DIR", cfg.SegmentDir)
	cfg.SegmentExtension = l.envString("EDGECAM_SEGMENT_EXTENSION", cfg.SegmentExtension)
	cfg.StorageQuota = l.envBytes("EDGECAM_STORAGE_QUOTA_BYTES", cfg.StorageQuota)
	cfg.QuotaInterval = l.envSeconds("EDGECAM_QUOTA_INTERVAL_SECONDS", cfg.QuotaInterval)

	cfg.TickInterval = l.envSeconds("EDGECAM_TICK_INTERVAL_SECONDS", cfg.TickInterval)
	cfg.ConnectivityProbeURL = l.envString("EDGECAM_CONNECTIVITY_PROBE_URL", cfg.ConnectivityProbeURL)
	cfg.ConnectivityTimeout = l.envSeconds("EDGECAM_CONNECTIVITY_TIMEOUT_SECONDS", cfg.ConnectivityTimeout)
	cfg.MaxRetriesPerTick = l.envInt("EDGECAM_MAX_RETRIES_PER_TICK", cfg.MaxRetriesPerTick)

	cfg.UploadEndpoint = l.envString("EDGECAM_UPLOAD_ENDPOINT", cfg.UploadEndpoint)
	cfg.Upload.Timeout = l.envSeconds("EDGECAM_UPLOAD_TIMEOUT_SECONDS", cfg.Upload.Timeout)
	cfg.Upload.MaxBytesPerSecond = l.envBytes("EDGECAM_UPLOAD_MAX_BYTES_PER_SECOND", cfg.Upload.MaxBytesPerSecond)
	cfg.Upload.RetryBackoff = l.envSeconds("EDGECAM_UPLOAD_RETRY_BACKOFF_SECONDS", cfg.Upload.RetryBackoff)
	cfg.Upload.S3.Endpoint = l.envString("EDGECAM_S3_ENDPOINT", cfg.Upload.S3.Endpoint)
	cfg.Upload.S3.AccessKey = l.envString("EDGECAM_S3_ACCESS_KEY", cfg.Upload.S3.AccessKey)
	cfg.Upload.S3.SecretKey = l.envString("EDGECAM_S3_SECRET_KEY", cfg.Upload.S3.SecretKey)
	cfg.Upload.S3.UseSSL = l.envBool("EDGECAM_S3_USE_SSL", cfg.Upload.S3.UseSSL)
	cfg.Upload.S3.Region = l.envString("EDGECAM_S3_REGION", cfg.Upload.S3.Region)

	cfg.RelayTargetURL = l.envString("EDGECAM_RELAY_TARGET_URL", cfg.RelayTargetURL)
	cfg.Relay.Bin = l.envString("EDGECAM_RELAY_BIN", cfg.Relay.Bin)
	cfg.Relay.InputURL = l.envString("EDGECAM_RELAY_INPUT_URL", cfg.Relay.InputURL)
	if v, ok := l.envLookup("EDGECAM_RELAY_EXTRA_ARGS"); ok {
		cfg.Relay.ExtraArgs = strings.Fields(v)
	}
	cfg.Relay.GracePeriod = l.envSeconds("EDGECAM_RELAY_GRACE_PERIOD_SECONDS", cfg.Relay.GracePeriod)

	if _, ok := l.envLookup("EDGECAM_GPS_LATITUDE"); ok {
		lat := l.envFloat("EDGECAM_GPS_LATITUDE", 0)
		cfg.GPS.Latitude = &lat
	}
	if _, ok := l.envLookup("EDGECAM_GPS_LONGITUDE"); ok {
		lon := l.envFloat("EDGECAM_GPS_LONGITUDE", 0)
		cfg.GPS.Longitude = &lon
	}

	cfg.Battery.Path = l.envString("EDGECAM_BATTERY_PATH", cfg.Battery.Path)
	cfg.Battery.LowThresholdPercent = l.envFloat("EDGECAM_BATTERY_LOW_THRESHOLD_PERCENT", cfg.Battery.LowThresholdPercent)

	cfg.Telemetry.Enabled = l.envBool("EDGECAM_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("EDGECAM_OTEL_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("EDGECAM_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Insecure = l.envBool("EDGECAM_OTEL_INSECURE", cfg.Telemetry.Insecure)
	cfg.Telemetry.SamplingRate = l.envFloat("EDGECAM_OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
