// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) AppConfig {
	t.Helper()
	cfg := Defaults()
	cfg.SegmentDir = t.TempDir()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults", func(*AppConfig) {}, ""},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "verbose" }, "logLevel"},
		{"zero tick", func(c *AppConfig) { c.TickInterval = 0 }, "tickIntervalSeconds"},
		{"timeout not below tick", func(c *AppConfig) { c.ConnectivityTimeout = c.TickInterval }, "connectivityTimeoutSeconds"},
		{"probe scheme", func(c *AppConfig) { c.ConnectivityProbeURL = "ftp://example.com" }, "connectivityProbeURL"},
		{"too many retries", func(c *AppConfig) { c.MaxRetriesPerTick = 50 }, "maxRetriesPerTick"},
		{"negative quota", func(c *AppConfig) { c.StorageQuota = -1 }, "storageQuotaBytes"},
		{"upload scheme", func(c *AppConfig) { c.UploadEndpoint = "ftp://archive.example.com" }, "uploadEndpoint"},
		{"s3 without credentials", func(c *AppConfig) { c.UploadEndpoint = "s3://bucket/cams" }, "upload.s3.endpoint"},
		{"s3 complete", func(c *AppConfig) {
			c.UploadEndpoint = "s3://bucket/cams"
			c.Upload.S3 = S3Config{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"}
		}, ""},
		{"retries outlast tick", func(c *AppConfig) {
			c.UploadEndpoint = "https://archive.example.com"
			c.Upload.RetryBackoff = 20 * time.Second
		}, "retries would outlast"},
		{"relay scheme", func(c *AppConfig) { c.RelayTargetURL = "http://live.example.com/app" }, "relayTargetURL"},
		{"relay ok", func(c *AppConfig) { c.RelayTargetURL = "srt://live.example.com:9000/stream" }, ""},
		{"gps half set", func(c *AppConfig) { c.GPS.Latitude = ptr(10.0) }, "gps"},
		{"gps out of range", func(c *AppConfig) { c.GPS = GPSConfig{Latitude: ptr(91.0), Longitude: ptr(0.0)} }, "gps.latitude"},
		{"battery threshold", func(c *AppConfig) { c.Battery.LowThresholdPercent = 120 }, "battery.lowThresholdPercent"},
		{"telemetry exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "telemetry.exporter"},
		{"listen addr", func(c *AppConfig) { c.ListenAddr = "9470" }, "listenAddr"},
		{"listen addr disabled", func(c *AppConfig) { c.ListenAddr = "" }, ""},
		{"extension with slash", func(c *AppConfig) { c.SegmentExtension = "../x" }, "segmentExtension"},
		{"extension bare dot", func(c *AppConfig) { c.SegmentExtension = "." }, "must be a file extension"},
		{"extension uppercase", func(c *AppConfig) { c.SegmentExtension = ".MKV" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.UploadEndpoint = "https://user:pw@archive.example.com/upload?token=abc"
	cfg.RelayTargetURL = "rtmp://live.example.com/app/stream-key"
	cfg.Upload.S3.AccessKey = "AKIA"
	cfg.Upload.S3.SecretKey = "secret"
	cfg.Relay.ExtraArgs = []string{"-x"}

	r := cfg.Redacted()
	assert.Equal(t, "https://archive.example.com/upload", r.UploadEndpoint)
	assert.Equal(t, "rtmp://live.example.com/app/REDACTED", r.RelayTargetURL)
	assert.Equal(t, "***", r.Upload.S3.AccessKey)
	assert.Equal(t, "***", r.Upload.S3.SecretKey)
	assert.Equal(t, "", MaskSecret(""))

	r.Relay.ExtraArgs[0] = "-y"
	assert.Equal(t, "-x", cfg.Relay.ExtraArgs[0], "redacted copy must not alias the original")
}
