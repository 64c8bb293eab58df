// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !linux && !darwin

package segment

import "errors"

// DiskStats is the capacity of the filesystem holding the segment directory.
type DiskStats struct {
	TotalBytes uint64 `json:"total_bytes"`
	UsedBytes  uint64 `json:"used_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// DiskStats is not supported on this platform.
func (s *Store) DiskStats() (DiskStats, error) {
	return DiskStats{}, errors.ErrUnsupported
}
