// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/edgecam/internal/connectivity"
)

func newProbeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check uplink reachability once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			m := newMonitor(cfg)
			state := m.Probe(cmd.Context())
			last := m.Last()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%s\n", cfg.ConnectivityProbeURL, state)
			if state != connectivity.Connected {
				if last.LastError != "" {
					fmt.Fprintf(out, "error\t%s\n", last.LastError)
				}
				return errUplinkDown
			}
			return nil
		},
	}
}
