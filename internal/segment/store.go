// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/metrics"
)

// DefaultExtension is the container extension of finalized segments.
const DefaultExtension = ".mp4"

// Options configures a Store.
type Options struct {
	// Dir is the segment directory; it is created if missing.
	Dir string
	// Extension of finalized segment files (default ".mp4").
	Extension string
	// QuotaBytes is the aggregate byte budget; <= 0 disables quota enforcement.
	QuotaBytes int64
	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Usage summarizes what is on disk.
type Usage struct {
	UsedBytes      int64 `json:"used_bytes"`
	QuotaBytes     int64 `json:"quota_bytes"`
	PendingCount   int   `json:"pending_count"`
	PendingBytes   int64 `json:"pending_bytes"`
	UploadingCount int   `json:"uploading_count"`
	UploadingBytes int64 `json:"uploading_bytes"`
}

// Store is the durable directory of finalized segments.
//
// The directory is the only source of truth for which segments exist. Status
// beyond Pending (Uploading, Uploaded) lives in memory for the current process
// run; a crash leaves files on disk as Pending and they are retried on restart.
type Store struct {
	dir    string
	ext    string
	quota  atomic.Int64
	seq    atomic.Uint64
	logger zerolog.Logger

	mu      sync.Mutex
	overlay map[string]claim // segment ID -> Uploading | Uploaded
}

// claim is the in-memory status of a segment past Pending. path is the file
// as found on disk, whatever the case of its extension.
type claim struct {
	status Status
	path   string
}

// Open prepares the segment directory and returns a Store over it.
func Open(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("segment dir is required")
	}
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve segment dir: %w", err)
	}
	// #nosec G301 -- segment dir is shared with the capture producer
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	logger := log.WithComponent("store")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	s := &Store{
		dir:     dir,
		ext:     ext,
		logger:  logger,
		overlay: make(map[string]claim),
	}
	s.SetQuota(opts.QuotaBytes)

	segs, err := s.scan()
	if err != nil {
		return nil, err
	}
	var maxSeq uint64
	for _, seg := range segs {
		if _, seq, ok := ParseName(seg.Filename(), ext); ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	s.seq.Store(maxSeq)

	s.logger.Info().
		Str(log.FieldEvent, "store.opened").
		Str(log.FieldPath, dir).
		Int("segments", len(segs)).
		Int64(log.FieldUsedBytes, TotalBytes(segs)).
		Int64(log.FieldLimitBytes, opts.QuotaBytes).
		Msg("segment store opened")

	return s, nil
}

// Dir returns the absolute segment directory.
func (s *Store) Dir() string { return s.dir }

// Extension returns the finalized segment file extension.
func (s *Store) Extension() string { return s.ext }

// Quota returns the configured byte budget (<= 0 means unlimited).
func (s *Store) Quota() int64 { return s.quota.Load() }

// SetQuota replaces the byte budget.
func (s *Store) SetQuota(limit int64) {
	s.quota.Store(limit)
	metrics.SetStoreQuota(limit)
}

func (s *Store) nextName(createdAt time.Time) (string, string) {
	name := FormatName(createdAt, s.seq.Add(1), s.ext)
	return idFromName(name, s.ext), filepath.Join(s.dir, name)
}

// Finalize moves a fully written capture file into the store, making it Pending.
// The move is a rename, so the orchestrator never observes a partial file.
// sizeBytes is advisory; the size on disk after the rename is authoritative.
func (s *Store) Finalize(openPath string, sizeBytes int64, createdAt time.Time) (Segment, error) {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	id, finalPath := s.nextName(createdAt)

	if err := os.Rename(openPath, finalPath); err != nil {
		s.logFinalizeFailure(openPath, err)
		return Segment{}, &StorageError{Op: "finalize", Path: openPath, Err: err}
	}
	syncDir(s.dir)

	info, err := os.Stat(finalPath)
	if err != nil {
		metrics.RecordFinalize("failure")
		return Segment{}, &StorageError{Op: "stat", Path: finalPath, Err: err}
	}
	if sizeBytes > 0 && info.Size() != sizeBytes {
		s.logger.Debug().
			Str(log.FieldSegmentID, id).
			Int64("reported_bytes", sizeBytes).
			Int64(log.FieldSizeBytes, info.Size()).
			Msg("finalized size differs from producer report")
	}

	seg := Segment{
		ID:        id,
		Path:      finalPath,
		SizeBytes: info.Size(),
		CreatedAt: createdAt.UTC(),
		Status:    StatusPending,
	}
	s.afterFinalize(seg)
	return seg, nil
}

func (s *Store) logFinalizeFailure(path string, err error) {
	metrics.RecordFinalize("failure")
	s.logger.Error().
		Err(err).
		Str(log.FieldEvent, "store.finalize_failed").
		Str(log.FieldPath, path).
		Msg("segment finalize failed")
}

// afterFinalize logs the new segment and applies the quota so disk pressure is
// handled on every write regardless of orchestrator tick timing.
func (s *Store) afterFinalize(seg Segment) {
	metrics.RecordFinalize("success")
	s.logger.Info().
		Str(log.FieldEvent, "store.finalized").
		Str(log.FieldSegmentID, seg.ID).
		Str(log.FieldPath, seg.Path).
		Int64(log.FieldSizeBytes, seg.SizeBytes).
		Time(log.FieldCreatedAt, seg.CreatedAt).
		Msg("segment finalized")

	if limit := s.Quota(); limit > 0 {
		if _, err := s.EnforceQuota(limit); err != nil {
			s.logger.Error().
				Err(err).
				Str(log.FieldEvent, "store.quota_failed").
				Msg("quota enforcement after finalize failed")
		}
	}
}

// List returns Pending segments, oldest first.
func (s *Store) List() ([]Segment, error) {
	segs, err := s.All()
	if err != nil {
		return nil, err
	}
	pending := segs[:0]
	for _, seg := range segs {
		if seg.Status == StatusPending {
			pending = append(pending, seg)
		}
	}
	return pending, nil
}

// All returns every finalized segment with its current status, oldest first.
func (s *Store) All() ([]Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeUploadedLocked()
	segs, err := s.scan()
	if err != nil {
		return nil, err
	}
	s.applyOverlayLocked(segs)
	s.publishUsage(segs)
	return segs, nil
}

// Usage reports aggregate on-disk figures.
func (s *Store) Usage() (Usage, error) {
	segs, err := s.All()
	if err != nil {
		return Usage{}, err
	}
	u := Usage{QuotaBytes: s.Quota()}
	for _, seg := range segs {
		u.UsedBytes += seg.SizeBytes
		switch seg.Status {
		case StatusUploading, StatusUploaded:
			u.UploadingCount++
			u.UploadingBytes += seg.SizeBytes
		default:
			u.PendingCount++
			u.PendingBytes += seg.SizeBytes
		}
	}
	return u, nil
}

// Delete removes a segment file and its record. A file that is already gone
// counts as deleted. Segments claimed by an upload are refused.
func (s *Store) Delete(seg Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlay[seg.ID].status == StatusUploading {
		return ErrSegmentBusy
	}
	if err := s.removeLocked(seg); err != nil {
		return err
	}
	delete(s.overlay, seg.ID)
	return nil
}

// Claim marks a Pending segment Uploading so eviction leaves it alone.
// It returns ErrSegmentGone when the file was removed in the meantime.
func (s *Store) Claim(seg Segment) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.overlay[seg.ID]; ok {
		if c.status == StatusUploaded {
			return Segment{}, ErrSegmentGone
		}
		return Segment{}, ErrSegmentBusy
	}
	info, err := os.Stat(seg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Segment{}, ErrSegmentGone
		}
		return Segment{}, &StorageError{Op: "stat", Path: seg.Path, Err: err}
	}

	s.overlay[seg.ID] = claim{status: StatusUploading, path: seg.Path}
	seg.SizeBytes = info.Size()
	seg.Status = StatusUploading
	return seg, nil
}

// Release returns a claimed segment to Pending.
func (s *Store) Release(seg Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlay[seg.ID].status == StatusUploading {
		delete(s.overlay, seg.ID)
	}
}

// Complete records a confirmed upload and deletes the local file. If the
// delete fails the segment stays marked Uploaded, is hidden from List, and
// the delete is retried on the next listing.
func (s *Store) Complete(seg Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overlay[seg.ID] = claim{status: StatusUploaded, path: seg.Path}
	if err := s.removeLocked(seg); err != nil {
		return err
	}
	delete(s.overlay, seg.ID)
	return nil
}

// ReleaseAll reverts every Uploading claim to Pending and returns how many were reverted.
func (s *Store) ReleaseAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.overlay {
		if c.status == StatusUploading {
			delete(s.overlay, id)
			n++
		}
	}
	return n
}

// removeLocked deletes a segment file; a missing file is success.
func (s *Store) removeLocked(seg Segment) error {
	if err := os.Remove(seg.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "delete", Path: seg.Path, Err: err}
	}
	return nil
}

func (s *Store) purgeUploadedLocked() {
	for id, c := range s.overlay {
		if c.status != StatusUploaded {
			continue
		}
		if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().
				Err(err).
				Str(log.FieldEvent, "store.delete_retry_failed").
				Str(log.FieldSegmentID, id).
				Msg("uploaded segment still cannot be deleted")
			continue
		}
		delete(s.overlay, id)
	}
}

func (s *Store) applyOverlayLocked(segs []Segment) {
	present := make(map[string]struct{}, len(segs))
	for i := range segs {
		present[segs[i].ID] = struct{}{}
		if c, ok := s.overlay[segs[i].ID]; ok {
			segs[i].Status = c.status
		}
	}
	// Claims on files that vanished are dropped so they cannot leak.
	for id, c := range s.overlay {
		if _, ok := present[id]; !ok && c.status != StatusUploading {
			delete(s.overlay, id)
		}
	}
}

// scan lists finalized segment files, oldest first. Open files and renameio
// temp files are never returned.
func (s *Store) scan() ([]Segment, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StorageError{Op: "list", Path: s.dir, Err: err}
	}

	segs := make([]Segment, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !isFinalizedName(name, s.ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		createdAt, _, ok := ParseName(name, s.ext)
		if !ok {
			createdAt = info.ModTime().UTC()
		}
		segs = append(segs, Segment{
			ID:        idFromName(name, s.ext),
			Path:      filepath.Join(s.dir, name),
			SizeBytes: info.Size(),
			CreatedAt: createdAt,
			Status:    StatusPending,
		})
	}
	SortOldestFirst(segs)
	return segs, nil
}

func (s *Store) publishUsage(segs []Segment) {
	var used int64
	pending, uploading := 0, 0
	for _, seg := range segs {
		used += seg.SizeBytes
		if seg.Status == StatusPending {
			pending++
		} else {
			uploading++
		}
	}
	metrics.SetStoreUsage(used, pending, uploading)
}

func humanBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

// syncDir flushes the directory entry after a rename; failures are ignored
// because the rename itself already succeeded.
func syncDir(dir string) {
	d, err := os.Open(dir) // #nosec G304 -- store-owned directory
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
