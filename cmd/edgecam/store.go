// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ManuGH/edgecam/internal/segment"
)

func newStoreCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and maintain the segment directory",
	}
	cmd.AddCommand(
		newStoreListCmd(root),
		newStoreEnforceCmd(root),
		newStoreAddCmd(root),
	)
	return cmd
}

func newStoreListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List finalized segments oldest-first with usage and disk stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			segs, err := store.All()
			if err != nil {
				return err
			}
			return printSegments(cmd.OutOrStdout(), store, segs)
		},
	}
}

func printSegments(out io.Writer, store *segment.Store, segs []segment.Segment) error {
	if len(segs) == 0 {
		fmt.Fprintln(out, "No segments")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSIZE\tCREATED")
		for _, seg := range segs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				seg.ID,
				seg.Status,
				humanize.Bytes(uint64(seg.SizeBytes)),
				humanize.Time(seg.CreatedAt),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	usage, err := store.Usage()
	if err != nil {
		return err
	}
	quota := "unlimited"
	if usage.QuotaBytes > 0 {
		quota = humanize.Bytes(uint64(usage.QuotaBytes))
	}
	fmt.Fprintf(out, "\nUsed %s of %s (%d pending)\n",
		humanize.Bytes(uint64(usage.UsedBytes)), quota, usage.PendingCount)

	if disk, err := store.DiskStats(); err == nil && disk.TotalBytes > 0 {
		fmt.Fprintf(out, "Disk %s free of %s\n", humanize.Bytes(disk.FreeBytes), humanize.Bytes(disk.TotalBytes))
	}
	return nil
}

func newStoreEnforceCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enforce",
		Short: "Evict the oldest pending segments until usage fits the quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			report, err := store.EnforceQuota(store.Quota())
			if err != nil {
				return err
			}
			printQuotaReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printQuotaReport(out io.Writer, report segment.QuotaReport) {
	for _, seg := range report.Evicted {
		fmt.Fprintf(out, "evicted\t%s\t%s\n", seg.ID, humanize.Bytes(uint64(seg.SizeBytes)))
	}
	fmt.Fprintf(out, "Used %s, limit %s", humanize.Bytes(uint64(report.UsedBytes)), humanize.Bytes(uint64(report.LimitBytes)))
	if report.OverBudget {
		fmt.Fprint(out, " (over budget: nothing left to evict)")
	}
	fmt.Fprintln(out)
}

func newStoreAddCmd(root *rootOptions) *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "add FILE...",
		Short: "Import capture files as finalized segments",
		Long: `Copy each file into the segment directory under a generated name and
finalize it atomically. Source files are removed unless --keep is set.
The quota is enforced after the import.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range args {
				seg, err := importFile(store, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "added\t%s\t%s\t%s\n", filepath.Base(path), seg.ID, humanize.Bytes(uint64(seg.SizeBytes)))
				if !keep {
					if err := os.Remove(path); err != nil {
						return fmt.Errorf("remove source %s: %w", path, err)
					}
				}
			}
			report, err := store.EnforceQuota(store.Quota())
			if err != nil {
				return err
			}
			printQuotaReport(out, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "keep source files after import")
	return cmd
}

// importFile streams path into a new segment stamped with its mtime.
func importFile(store *segment.Store, path string) (segment.Segment, error) {
	// #nosec G304 -- capture paths are given by the operator
	f, err := os.Open(path)
	if err != nil {
		return segment.Segment{}, err
	}
	defer func() { _ = f.Close() }()

	createdAt := time.Now()
	if info, err := f.Stat(); err == nil {
		createdAt = info.ModTime()
	}

	open, err := store.Create(createdAt)
	if err != nil {
		return segment.Segment{}, err
	}
	if _, err := io.Copy(open, f); err != nil {
		_ = open.Abort()
		return segment.Segment{}, fmt.Errorf("copy %s: %w", path, err)
	}
	return open.Finalize()
}
