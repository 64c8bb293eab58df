// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/edgecam/internal/config"
	"github.com/ManuGH/edgecam/internal/daemon"
	"github.com/ManuGH/edgecam/internal/health"
	xglog "github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/telemetry"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the recorder daemon",
		Long: `Run the control loop: probe the uplink every tick, start or stop the
live relay, offload pending segments while connected and keep the segment
directory under its quota. SIGHUP forces an immediate tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg)
		},
	}
}

func runDaemon(ctx context.Context, cfg config.AppConfig) error {
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Object("config", cfg).
		Msg("starting recorder")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("startup checks failed; verify configuration and permissions")
		return err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		DeviceID:       cfg.DeviceID,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	c, err := buildComponents(cfg)
	if err != nil {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	hm := health.NewManager(cfg.Version)
	c.registerChecks(hm, cfg)

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = serviceName
	}
	handler := daemon.NewRouter(daemon.RouterConfig{
		Health:         hm,
		Status:         func() any { return c.orch.Snapshot() },
		TracingService: tracingService,
	})

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.ListenAddr), daemon.Deps{
		Logger:  logger,
		Handler: handler,
	})
	if err != nil {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
		return err
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)

	return daemon.NewApp(logger, mgr, c.orch).Run(ctx)
}
