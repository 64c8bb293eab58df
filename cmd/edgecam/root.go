// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/edgecam/internal/config"
	xglog "github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/version"
)

const serviceName = "edgecam"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "edgecam",
		Short:         "Edge camera recorder with opportunistic offload and live relay",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `edgecam keeps finalized camera segments under a storage quota,
uploads them oldest-first whenever the uplink is reachable and relays a
live stream to a remote endpoint while connected.`,
	}

	defaultConfig := strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig,
		"path to config file (YAML); env "+config.EnvPrefix+"CONFIG")

	cmd.AddCommand(
		newRunCmd(opts),
		newProbeCmd(opts),
		newStoreCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig resolves defaults, file and environment, then configures logging.
// Logs go to stderr so command output on stdout stays parseable.
func (o *rootOptions) loadConfig(logOut io.Writer) (config.AppConfig, error) {
	cfg, err := config.NewLoader(o.configPath, version.Version).Load()
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  logOut,
		Service: serviceName,
		Version: cfg.Version,
	})
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
