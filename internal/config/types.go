// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version    string
	DeviceID   string
	LogLevel   string
	ListenAddr string

	SegmentDir       string
	SegmentExtension string
	StorageQuota     ByteSize
	QuotaInterval    time.Duration

	TickInterval         time.Duration
	ConnectivityProbeURL string
	ConnectivityTimeout  time.Duration
	MaxRetriesPerTick    int

	// UploadEndpoint is http(s)://... or s3://bucket/prefix; empty disables offload.
	UploadEndpoint string
	Upload         UploadConfig

	// RelayTargetURL is the live stream destination; empty disables the relay.
	RelayTargetURL string
	Relay          RelayConfig

	GPS       GPSConfig
	Battery   BatteryConfig
	Telemetry TelemetryConfig
}

// UploadConfig tunes the offload uploader.
type UploadConfig struct {
	Timeout           time.Duration
	MaxBytesPerSecond ByteSize
	RetryBackoff      time.Duration
	S3                S3Config
}

// S3Config holds credentials for s3:// upload endpoints.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// RelayConfig configures the relay subprocess.
type RelayConfig struct {
	Bin         string
	InputURL    string
	ExtraArgs   []string
	GracePeriod time.Duration
}

// GPSConfig is an optional fixed position reported with uploads.
type GPSConfig struct {
	Latitude  *float64
	Longitude *float64
}

// BatteryConfig locates the battery and sets the low-battery threshold.
type BatteryConfig struct {
	Path                string
	LowThresholdPercent float64
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	Insecure     bool
	SamplingRate float64
}

// FileConfig is the YAML file shape. Pointers distinguish unset keys from zero values.
type FileConfig struct {
	DeviceID   string  `yaml:"deviceID,omitempty"`
	LogLevel   string  `yaml:"logLevel,omitempty"`
	ListenAddr *string `yaml:"listenAddr,omitempty"`

	SegmentDir           string    `yaml:"segmentDir,omitempty"`
	SegmentExtension     string    `yaml:"segmentExtension,omitempty"`
	StorageQuotaBytes    *ByteSize `yaml:"storageQuotaBytes,omitempty"`
	QuotaIntervalSeconds *int      `yaml:"quotaIntervalSeconds,omitempty"`

	TickIntervalSeconds        *int   `yaml:"tickIntervalSeconds,omitempty"`
	ConnectivityProbeURL       string `yaml:"connectivityProbeURL,omitempty"`
	ConnectivityTimeoutSeconds *int   `yaml:"connectivityTimeoutSeconds,omitempty"`
	MaxRetriesPerTick          *int   `yaml:"maxRetriesPerTick,omitempty"`

	UploadEndpoint string         `yaml:"uploadEndpoint,omitempty"`
	Upload         *FileUpload    `yaml:"upload,omitempty"`
	RelayTargetURL string         `yaml:"relayTargetURL,omitempty"`
	Relay          *FileRelay     `yaml:"relay,omitempty"`
	GPS            *FileGPS       `yaml:"gps,omitempty"`
	Battery        *FileBattery   `yaml:"battery,omitempty"`
	Telemetry      *FileTelemetry `yaml:"telemetry,omitempty"`
}

// FileUpload is the `upload:` section.
type FileUpload struct {
	TimeoutSeconds      *int      `yaml:"timeoutSeconds,omitempty"`
	MaxBytesPerSecond   *ByteSize `yaml:"maxBytesPerSecond,omitempty"`
	RetryBackoffSeconds *int      `yaml:"retryBackoffSeconds,omitempty"`
	S3                  *FileS3   `yaml:"s3,omitempty"`
}

// FileS3 is the `upload.s3:` section.
type FileS3 struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	UseSSL    *bool  `yaml:"useSSL,omitempty"`
	Region    string `yaml:"region,omitempty"`
}

// FileRelay is the `relay:` section.
type FileRelay struct {
	Bin                string   `yaml:"bin,omitempty"`
	InputURL           string   `yaml:"inputURL,omitempty"`
	ExtraArgs          []string `yaml:"extraArgs,omitempty"`
	GracePeriodSeconds *int     `yaml:"gracePeriodSeconds,omitempty"`
}

// FileGPS is the `gps:` section.
type FileGPS struct {
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
}

// FileBattery is the `battery:` section.
type FileBattery struct {
	Path                string   `yaml:"path,omitempty"`
	LowThresholdPercent *float64 `yaml:"lowThresholdPercent,omitempty"`
}

// FileTelemetry is the `telemetry:` section.
type FileTelemetry struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	Insecure     *bool    `yaml:"insecure,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
