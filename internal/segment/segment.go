// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package segment implements the on-disk segment store: finalized recordings,
// their upload status, and quota eviction.
package segment

import (
	"path/filepath"
	"sort"
	"time"
)

// Status is the lifecycle position of a segment.
type Status string

const (
	// StatusOpen segments are still being written by the capture producer.
	StatusOpen Status = "open"
	// StatusPending segments are finalized and eligible for eviction or upload.
	StatusPending Status = "pending"
	// StatusUploading segments are claimed by an in-flight upload.
	StatusUploading Status = "uploading"
	// StatusUploaded segments were accepted by the remote; the file is being removed.
	StatusUploaded Status = "uploaded"
	// StatusFailed is reserved for segments that can never be uploaded.
	StatusFailed Status = "failed"
)

// Segment is one recorded video file.
type Segment struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
}

// Filename returns the base name of the segment file.
func (s Segment) Filename() string {
	return filepath.Base(s.Path)
}

// Before reports whether s sorts before o: oldest createdAt first, ties broken by ID.
func (s Segment) Before(o Segment) bool {
	if !s.CreatedAt.Equal(o.CreatedAt) {
		return s.CreatedAt.Before(o.CreatedAt)
	}
	return s.ID < o.ID
}

// SortOldestFirst orders segments by createdAt then ID.
func SortOldestFirst(segs []Segment) {
	sort.Slice(segs, func(i, j int) bool { return segs[i].Before(segs[j]) })
}

// TotalBytes sums the sizes of segs.
func TotalBytes(segs []Segment) int64 {
	var total int64
	for _, s := range segs {
		total += s.SizeBytes
	}
	return total
}
