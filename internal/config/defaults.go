// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"time"
)

const (
	DefaultSegmentDir           = "/var/lib/edgecam/segments"
	DefaultSegmentExtension     = ".mp4"
	DefaultStorageQuota         = ByteSize(8_000_000_000)
	DefaultQuotaInterval        = 10 * time.Second
	DefaultTickInterval         = 30 * time.Second
	DefaultConnectivityProbeURL = "http://connectivitycheck.gstatic.com/generate_204"
	DefaultConnectivityTimeout  = 5 * time.Second
	DefaultMaxRetriesPerTick    = 2
	DefaultListenAddr           = ":9470"
	DefaultLogLevel             = "info"

	DefaultUploadTimeout      = 120 * time.Second
	DefaultUploadRetryBackoff = 2 * time.Second

	DefaultRelayBin         = "ffmpeg"
	DefaultRelayInputURL    = "/dev/video0"
	DefaultRelayGracePeriod = 5 * time.Second

	DefaultBatteryPath         = "/sys/class/power_supply"
	DefaultLowBatteryThreshold = 20.0

	DefaultTelemetryExporter = "grpc"
	DefaultSamplingRate      = 1.0
)

// Defaults returns the configuration used when neither file nor environment set a value.
func Defaults() AppConfig {
	return AppConfig{
		DeviceID:             defaultDeviceID(),
		LogLevel:             DefaultLogLevel,
		ListenAddr:           DefaultListenAddr,
		SegmentDir:           DefaultSegmentDir,
		SegmentExtension:     DefaultSegmentExtension,
		StorageQuota:         DefaultStorageQuota,
		QuotaInterval:        DefaultQuotaInterval,
		TickInterval:         DefaultTickInterval,
		ConnectivityProbeURL: DefaultConnectivityProbeURL,
		ConnectivityTimeout:  DefaultConnectivityTimeout,
		MaxRetriesPerTick:    DefaultMaxRetriesPerTick,
		Upload: UploadConfig{
			Timeout:      DefaultUploadTimeout,
			RetryBackoff: DefaultUploadRetryBackoff,
		},
		Relay: RelayConfig{
			Bin:         DefaultRelayBin,
			InputURL:    DefaultRelayInputURL,
			GracePeriod: DefaultRelayGracePeriod,
		},
		Battery: BatteryConfig{
			Path:                DefaultBatteryPath,
			LowThresholdPercent: DefaultLowBatteryThreshold,
		},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultTelemetryExporter,
			SamplingRate: DefaultSamplingRate,
		},
	}
}

func defaultDeviceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "edgecam"
	}
	return host
}
