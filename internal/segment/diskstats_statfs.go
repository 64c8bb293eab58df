// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux || darwin

package segment

import (
	"golang.org/x/sys/unix"

	"github.com/ManuGH/edgecam/internal/metrics"
)

// DiskStats is the capacity of the filesystem holding the segment directory.
type DiskStats struct {
	TotalBytes uint64 `json:"total_bytes"`
	UsedBytes  uint64 `json:"used_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// DiskStats reports filesystem capacity for the store directory.
func (s *Store) DiskStats() (DiskStats, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(s.dir, &st); err != nil {
		return DiskStats{}, &StorageError{Op: "statfs", Path: s.dir, Err: err}
	}
	bsize := uint64(st.Bsize) // #nosec G115 -- block size is positive
	total := st.Blocks * bsize
	free := st.Bavail * bsize
	used := total - st.Bfree*bsize

	metrics.SetDiskStats(total, used, free)
	return DiskStats{TotalBytes: total, UsedBytes: used, FreeBytes: free}, nil
}
