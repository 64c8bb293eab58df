// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segment

import (
	"os"
	"time"

	"github.com/google/renameio/v2"
)

// OpenSegment is a segment being written in-process. Its bytes live in a
// hidden temp file in the store directory and only appear under the final
// name once Finalize atomically renames them into place.
type OpenSegment struct {
	store     *Store
	id        string
	path      string
	createdAt time.Time
	pf        *renameio.PendingFile
	size      int64
}

// Create starts a new Open segment stamped with createdAt.
func (s *Store) Create(createdAt time.Time) (*OpenSegment, error) {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	id, path := s.nextName(createdAt)

	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(s.dir),
		renameio.WithPermissions(0o640),
	)
	if err != nil {
		return nil, &StorageError{Op: "create", Path: path, Err: err}
	}
	return &OpenSegment{
		store:     s,
		id:        id,
		path:      path,
		createdAt: createdAt.UTC(),
		pf:        pf,
	}, nil
}

// ID returns the identifier the segment will have once finalized.
func (o *OpenSegment) ID() string { return o.id }

// Write appends capture bytes.
func (o *OpenSegment) Write(p []byte) (int, error) {
	n, err := o.pf.Write(p)
	o.size += int64(n)
	if err != nil {
		return n, &StorageError{Op: "write", Path: o.pf.Name(), Err: err}
	}
	return n, nil
}

// Finalize syncs and renames the segment into place, making it Pending.
func (o *OpenSegment) Finalize() (Segment, error) {
	if err := o.pf.CloseAtomicallyReplace(); err != nil {
		_ = o.pf.Cleanup()
		o.store.logFinalizeFailure(o.path, err)
		return Segment{}, &StorageError{Op: "finalize", Path: o.path, Err: err}
	}
	info, err := os.Stat(o.path)
	if err != nil {
		return Segment{}, &StorageError{Op: "stat", Path: o.path, Err: err}
	}
	seg := Segment{
		ID:        o.id,
		Path:      o.path,
		SizeBytes: info.Size(),
		CreatedAt: o.createdAt,
		Status:    StatusPending,
	}
	o.store.afterFinalize(seg)
	return seg, nil
}

// Abort discards an unfinished segment.
func (o *OpenSegment) Abort() error {
	return o.pf.Cleanup()
}
