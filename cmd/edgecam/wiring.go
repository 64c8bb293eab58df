// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/edgecam/internal/config"
	"github.com/ManuGH/edgecam/internal/connectivity"
	"github.com/ManuGH/edgecam/internal/health"
	"github.com/ManuGH/edgecam/internal/offload"
	"github.com/ManuGH/edgecam/internal/orchestrator"
	"github.com/ManuGH/edgecam/internal/relay"
	"github.com/ManuGH/edgecam/internal/resilience"
	"github.com/ManuGH/edgecam/internal/segment"
	"github.com/ManuGH/edgecam/internal/sensors"
)

const (
	relayBreakerThreshold = 3
	relayBreakerReset     = time.Minute
	sensorReadTimeout     = 2 * time.Second
	tickStaleFactor       = 3
)

// components is the assembled recorder.
type components struct {
	store   *segment.Store
	monitor *connectivity.Monitor
	queue   *offload.Queue
	relay   *relay.Controller
	orch    *orchestrator.Orchestrator
}

func openStore(cfg config.AppConfig) (*segment.Store, error) {
	return segment.Open(segment.Options{
		Dir:        cfg.SegmentDir,
		Extension:  cfg.SegmentExtension,
		QuotaBytes: cfg.StorageQuota.Int64(),
	})
}

func newMonitor(cfg config.AppConfig) *connectivity.Monitor {
	return connectivity.NewMonitor(connectivity.Options{
		URL:     cfg.ConnectivityProbeURL,
		Timeout: cfg.ConnectivityTimeout,
	})
}

func gpsSource(cfg config.AppConfig) sensors.GPSSource {
	if cfg.GPS.Latitude != nil && cfg.GPS.Longitude != nil {
		return sensors.NewStaticGPS(*cfg.GPS.Latitude, *cfg.GPS.Longitude)
	}
	return sensors.NoGPS{}
}

func batterySource(cfg config.AppConfig) sensors.BatterySource {
	if cfg.Battery.Path == "" {
		return sensors.NoBattery{}
	}
	return sensors.NewSysfsBattery(cfg.Battery.Path)
}

func newQueue(cfg config.AppConfig, store *segment.Store, battery sensors.BatterySource) (*offload.Queue, error) {
	if cfg.UploadEndpoint == "" {
		return nil, nil
	}
	uploader, err := offload.NewUploader(offload.UploaderConfig{
		Endpoint:          cfg.UploadEndpoint,
		Timeout:           cfg.Upload.Timeout,
		MaxBytesPerSecond: cfg.Upload.MaxBytesPerSecond.Int64(),
		S3: offload.S3Config{
			Endpoint:  cfg.Upload.S3.Endpoint,
			AccessKey: cfg.Upload.S3.AccessKey,
			SecretKey: cfg.Upload.S3.SecretKey,
			UseSSL:    cfg.Upload.S3.UseSSL,
			Region:    cfg.Upload.S3.Region,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build uploader: %w", err)
	}
	return offload.NewQueue(offload.Options{
		Store:    store,
		Uploader: uploader,
		Metadata: offload.SensorMetadata{
			DeviceID: cfg.DeviceID,
			GPS:      gpsSource(cfg),
			Battery:  battery,
			Timeout:  sensorReadTimeout,
		},
		MaxRetries:   cfg.MaxRetriesPerTick,
		RetryBackoff: cfg.Upload.RetryBackoff,
	})
}

func newRelay(cfg config.AppConfig) (*relay.Controller, error) {
	if cfg.RelayTargetURL == "" {
		return nil, nil
	}
	launcher, err := relay.NewExecLauncher(relay.ExecConfig{
		Bin:         cfg.Relay.Bin,
		Input:       cfg.Relay.InputURL,
		Target:      cfg.RelayTargetURL,
		ExtraArgs:   cfg.Relay.ExtraArgs,
		GracePeriod: cfg.Relay.GracePeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("build relay launcher: %w", err)
	}
	return relay.NewController(relay.Options{
		Launcher: launcher,
		Breaker:  resilience.NewCircuitBreaker("relay", relayBreakerThreshold, relayBreakerReset),
		Target:   cfg.RelayTargetURL,
	})
}

// buildComponents assembles the recorder from cfg. Offload and relay stay
// nil when their endpoints are not configured.
func buildComponents(cfg config.AppConfig) (*components, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open segment store: %w", err)
	}
	c := &components{store: store, monitor: newMonitor(cfg)}

	battery := batterySource(cfg)
	if c.queue, err = newQueue(cfg, store, battery); err != nil {
		return nil, err
	}
	if c.relay, err = newRelay(cfg); err != nil {
		return nil, err
	}

	opts := orchestrator.Options{
		Store:         store,
		Prober:        c.monitor,
		Battery:       battery,
		LowBattery:    sensors.NewLowBatteryAlarm(cfg.Battery.LowThresholdPercent),
		TickInterval:  cfg.TickInterval,
		QuotaInterval: cfg.QuotaInterval,
	}
	// Typed nils must not reach the interfaces.
	if c.relay != nil {
		opts.Relay = c.relay
	}
	if c.queue != nil {
		opts.Offload = c.queue
	}
	if c.orch, err = orchestrator.New(opts); err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	return c, nil
}

// registerChecks wires component state into readiness.
func (c *components) registerChecks(hm *health.Manager, cfg config.AppConfig) {
	hm.RegisterChecker(health.NewDirChecker("segment_dir", cfg.SegmentDir))
	hm.RegisterChecker(health.NewTickChecker(func() time.Time {
		if last := c.orch.Snapshot().LastTick; last != nil {
			return last.StartedAt
		}
		return time.Time{}
	}, tickStaleFactor*cfg.TickInterval))
	hm.RegisterChecker(health.NewFuncChecker("connectivity", func(context.Context) health.CheckResult {
		last := c.monitor.Last()
		if last.State != connectivity.Connected {
			return health.CheckResult{Status: health.StatusDegraded, Message: "uplink unreachable", Error: last.LastError}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: "uplink reachable"}
	}))
	if c.relay != nil {
		hm.RegisterChecker(health.NewFuncChecker("relay", func(context.Context) health.CheckResult {
			st := c.relay.Status()
			if st.Breaker == string(resilience.StateOpen) {
				return health.CheckResult{Status: health.StatusDegraded, Message: "relay launches suppressed"}
			}
			return health.CheckResult{Status: health.StatusHealthy, Message: string(st.State)}
		}))
	}
}

var errUplinkDown = errors.New("uplink unreachable")
