// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/edgecam/internal/validate"
)

// Validate checks the resolved configuration and prepares the segment directory.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", validate.ErrInvalidLogLevel.Message, cfg.LogLevel)
	}
	v.NotEmpty("deviceID", cfg.DeviceID)
	if cfg.ListenAddr != "" {
		v.ListenAddr("listenAddr", cfg.ListenAddr)
	}

	v.WritableDirectory("segmentDir", cfg.SegmentDir, false)
	v.Custom("segmentExtension", cfg.SegmentExtension, segmentExtension)
	v.NonNegative("storageQuotaBytes", cfg.StorageQuota.Int64())
	v.PositiveDuration("quotaIntervalSeconds", cfg.QuotaInterval)

	v.PositiveDuration("tickIntervalSeconds", cfg.TickInterval)
	v.PositiveDuration("connectivityTimeoutSeconds", cfg.ConnectivityTimeout)
	if cfg.ConnectivityTimeout >= cfg.TickInterval && cfg.TickInterval > 0 {
		v.AddError("connectivityTimeoutSeconds", "must be shorter than tickIntervalSeconds", cfg.ConnectivityTimeout.String())
	}
	v.URL("connectivityProbeURL", cfg.ConnectivityProbeURL, []string{"http", "https"})
	v.Range("maxRetriesPerTick", cfg.MaxRetriesPerTick, 0, 10)

	validateUpload(v, cfg)

	if cfg.RelayTargetURL != "" {
		v.URL("relayTargetURL", cfg.RelayTargetURL, []string{"rtmp", "rtmps", "srt"})
		v.NotEmpty("relay.bin", cfg.Relay.Bin)
		v.NotEmpty("relay.inputURL", cfg.Relay.InputURL)
		v.PositiveDuration("relay.gracePeriodSeconds", cfg.Relay.GracePeriod)
	}

	switch {
	case cfg.GPS.Latitude == nil && cfg.GPS.Longitude == nil:
	case cfg.GPS.Latitude == nil || cfg.GPS.Longitude == nil:
		v.AddError("gps", "latitude and longitude must be set together", nil)
	default:
		v.FloatRange("gps.latitude", *cfg.GPS.Latitude, -90, 90)
		v.FloatRange("gps.longitude", *cfg.GPS.Longitude, -180, 180)
	}

	v.FloatRange("battery.lowThresholdPercent", cfg.Battery.LowThresholdPercent, 0, 100)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}

func segmentExtension(value any) error {
	ext, _ := value.(string)
	if strings.ContainsAny(ext, `/\`) || ext == "." {
		return errors.New("must be a file extension such as .mp4")
	}
	return nil
}

func validateUpload(v *validate.Validator, cfg AppConfig) {
	if cfg.UploadEndpoint == "" {
		return
	}
	v.URL("uploadEndpoint", cfg.UploadEndpoint, []string{"http", "https", "s3"})
	v.PositiveDuration("upload.timeoutSeconds", cfg.Upload.Timeout)
	v.NonNegative("upload.maxBytesPerSecond", cfg.Upload.MaxBytesPerSecond.Int64())
	if cfg.Upload.RetryBackoff < 0 {
		v.AddError("upload.retryBackoffSeconds", "cannot be negative", cfg.Upload.RetryBackoff.String())
	}
	if cfg.Upload.RetryBackoff*time.Duration(cfg.MaxRetriesPerTick) >= cfg.TickInterval && cfg.TickInterval > 0 && cfg.MaxRetriesPerTick > 0 {
		v.AddError("upload.retryBackoffSeconds", "retries would outlast the tick interval", cfg.Upload.RetryBackoff.String())
	}

	u, err := url.Parse(cfg.UploadEndpoint)
	if err != nil || !strings.EqualFold(u.Scheme, "s3") {
		return
	}
	v.NotEmpty("upload.s3.endpoint", cfg.Upload.S3.Endpoint)
	v.NotEmpty("upload.s3.accessKey", cfg.Upload.S3.AccessKey)
	v.NotEmpty("upload.s3.secretKey", cfg.Upload.S3.SecretKey)
}
