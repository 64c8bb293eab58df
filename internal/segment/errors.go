// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrSegmentGone is returned when a segment disappeared from disk, usually
	// because quota eviction removed it first.
	ErrSegmentGone = errors.New("segment no longer on disk")

	// ErrSegmentBusy is returned when a segment is claimed by an in-flight upload.
	ErrSegmentBusy = errors.New("segment is being uploaded")
)

// StorageError reports a file-system failure (disk full, permission denied).
// It is fatal for the operation that produced it and must reach the operator.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
