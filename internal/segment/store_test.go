// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newStore(t *testing.T, quota int64) *Store {
	t.Helper()
	s, err := Open(Options{Dir: t.TempDir(), QuotaBytes: quota})
	require.NoError(t, err)
	return s
}

func writeSegment(t *testing.T, s *Store, createdAt time.Time, size int) Segment {
	t.Helper()
	open, err := s.Create(createdAt)
	require.NoError(t, err)
	_, err = open.Write(bytes.Repeat([]byte{0x42}, size))
	require.NoError(t, err)
	seg, err := open.Finalize()
	require.NoError(t, err)
	return seg
}

func ids(segs []Segment) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.ID)
	}
	return out
}

func TestEnforceQuota_EvictsOldestOnly(t *testing.T) {
	s := newStore(t, 0)
	a := writeSegment(t, s, epoch, 150)
	b := writeSegment(t, s, epoch.Add(time.Minute), 150)
	c := writeSegment(t, s, epoch.Add(2*time.Minute), 150)

	report, err := s.EnforceQuota(300)
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID}, ids(report.Evicted))
	assert.EqualValues(t, 300, report.UsedBytes)
	assert.False(t, report.OverBudget)
	assert.NoFileExists(t, a.Path)

	pending, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, ids(pending))
}

func TestEnforceQuota_RepeatsUntilWithinBudget(t *testing.T) {
	s := newStore(t, 0)
	var all []Segment
	for i := 0; i < 5; i++ {
		all = append(all, writeSegment(t, s, epoch.Add(time.Duration(i)*time.Second), 100))
	}

	report, err := s.EnforceQuota(250)
	require.NoError(t, err)
	assert.Equal(t, ids(all[:3]), ids(report.Evicted))
	assert.EqualValues(t, 200, report.UsedBytes)
}

func TestEnforceQuota_WithinBudgetIsNoop(t *testing.T) {
	s := newStore(t, 0)
	writeSegment(t, s, epoch, 100)
	writeSegment(t, s, epoch.Add(time.Second), 100)

	report, err := s.EnforceQuota(200)
	require.NoError(t, err)
	assert.Empty(t, report.Evicted)

	report, err = s.EnforceQuota(0)
	require.NoError(t, err)
	assert.Empty(t, report.Evicted, "zero limit disables enforcement")
}

func TestEnforceQuota_SingleOversizeSegmentIsReported(t *testing.T) {
	s := newStore(t, 0)
	seg := writeSegment(t, s, epoch, 500)

	report, err := s.EnforceQuota(100)
	require.NoError(t, err)
	assert.Empty(t, report.Evicted)
	assert.True(t, report.OverBudget)
	assert.FileExists(t, seg.Path)
}

func TestEnforceQuota_NeverTouchesOpenSegments(t *testing.T) {
	s := newStore(t, 0)
	writeSegment(t, s, epoch, 100)
	writeSegment(t, s, epoch.Add(time.Second), 100)

	// External producer file still being written.
	partPath := filepath.Join(s.Dir(), FormatName(epoch.Add(-time.Hour), 99, ".mp4")+OpenSuffix)
	require.NoError(t, os.WriteFile(partPath, bytes.Repeat([]byte{1}, 1000), 0o600))

	// In-process open segment.
	open, err := s.Create(epoch.Add(-2 * time.Hour))
	require.NoError(t, err)
	_, err = open.Write(bytes.Repeat([]byte{2}, 1000))
	require.NoError(t, err)
	t.Cleanup(func() { _ = open.Abort() })

	report, err := s.EnforceQuota(1)
	require.NoError(t, err)
	assert.Len(t, report.Evicted, 1)
	assert.True(t, report.OverBudget)
	assert.FileExists(t, partPath)

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnforceQuota_SkipsUploadingSegments(t *testing.T) {
	s := newStore(t, 0)
	a := writeSegment(t, s, epoch, 100)
	b := writeSegment(t, s, epoch.Add(time.Second), 100)
	c := writeSegment(t, s, epoch.Add(2*time.Second), 100)

	_, err := s.Claim(a)
	require.NoError(t, err)

	report, err := s.EnforceQuota(200)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(report.Evicted))
	assert.FileExists(t, a.Path)
	assert.FileExists(t, c.Path)
}

func TestFinalize_EnforcesQuotaOnWrite(t *testing.T) {
	s := newStore(t, 250)
	a := writeSegment(t, s, epoch, 100)
	writeSegment(t, s, epoch.Add(time.Second), 100)
	writeSegment(t, s, epoch.Add(2*time.Second), 100)

	assert.NoFileExists(t, a.Path)
	u, err := s.Usage()
	require.NoError(t, err)
	assert.EqualValues(t, 200, u.UsedBytes)
	assert.Equal(t, 2, u.PendingCount)
}

func TestFinalize_RenamesExternalCapture(t *testing.T) {
	s := newStore(t, 0)
	src := filepath.Join(s.Dir(), "capture"+OpenSuffix)
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0o600))

	seg, err := s.Finalize(src, 6, epoch)
	require.NoError(t, err)
	assert.NoFileExists(t, src)
	assert.FileExists(t, seg.Path)
	assert.Equal(t, StatusPending, seg.Status)
	assert.EqualValues(t, 6, seg.SizeBytes)

	created, seq, ok := ParseName(seg.Filename(), s.Extension())
	require.True(t, ok)
	assert.True(t, created.Equal(epoch))
	assert.EqualValues(t, 1, seq)
}

func TestFinalize_MissingSourceIsStorageError(t *testing.T) {
	s := newStore(t, 0)
	_, err := s.Finalize(filepath.Join(s.Dir(), "missing"+OpenSuffix), 0, epoch)
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
}

func TestList_OldestFirstTiesByID(t *testing.T) {
	s := newStore(t, 0)
	c := writeSegment(t, s, epoch.Add(time.Minute), 10)
	a := writeSegment(t, s, epoch, 10)
	b := writeSegment(t, s, epoch, 10)

	pending, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(pending))
}

func TestList_AdoptsForeignFilesByModTime(t *testing.T) {
	s := newStore(t, 0)
	seg := writeSegment(t, s, epoch, 10)

	foreign := filepath.Join(s.Dir(), "legacy.mp4")
	require.NoError(t, os.WriteFile(foreign, []byte("old"), 0o600))
	older := epoch.Add(-24 * time.Hour)
	require.NoError(t, os.Chtimes(foreign, older, older))

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o600))

	pending, err := s.List()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "legacy", pending[0].ID)
	assert.True(t, pending[0].CreatedAt.Equal(older))
	assert.Equal(t, seg.ID, pending[1].ID)
}

func TestDelete_IsIdempotent(t *testing.T) {
	s := newStore(t, 0)
	seg := writeSegment(t, s, epoch, 10)

	require.NoError(t, s.Delete(seg))
	require.NoError(t, s.Delete(seg))
	assert.NoFileExists(t, seg.Path)
}

func TestDelete_RefusesClaimedSegment(t *testing.T) {
	s := newStore(t, 0)
	seg := writeSegment(t, s, epoch, 10)
	_, err := s.Claim(seg)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(seg), ErrSegmentBusy)
	assert.FileExists(t, seg.Path)
}

func TestClaim_AfterEvictionReturnsGone(t *testing.T) {
	s := newStore(t, 0)
	a := writeSegment(t, s, epoch, 100)
	writeSegment(t, s, epoch.Add(time.Second), 100)

	snapshot, err := s.List()
	require.NoError(t, err)

	_, err = s.EnforceQuota(150)
	require.NoError(t, err)

	_, err = s.Claim(snapshot[0])
	assert.ErrorIs(t, err, ErrSegmentGone)
	assert.Equal(t, a.ID, snapshot[0].ID)
}

func TestClaim_TwiceIsBusy(t *testing.T) {
	s := newStore(t, 0)
	seg := writeSegment(t, s, epoch, 10)

	claimed, err := s.Claim(seg)
	require.NoError(t, err)
	assert.Equal(t, StatusUploading, claimed.Status)

	_, err = s.Claim(seg)
	assert.ErrorIs(t, err, ErrSegmentBusy)

	pending, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestComplete_RemovesFileAndRecord(t *testing.T) {
	s := newStore(t, 0)
	seg := writeSegment(t, s, epoch, 10)
	claimed, err := s.Claim(seg)
	require.NoError(t, err)

	require.NoError(t, s.Complete(claimed))
	assert.NoFileExists(t, seg.Path)

	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.Claim(seg)
	assert.ErrorIs(t, err, ErrSegmentGone)
}

func TestComplete_RetriesFailedDeleteOnRecordedPath(t *testing.T) {
	s := newStore(t, 0)
	path := filepath.Join(s.Dir(), "20250314T092653.000Z_000001.MP4")
	require.NoError(t, os.WriteFile(path, []byte("clip"), 0o600))

	pending, err := s.List()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	claimed, err := s.Claim(pending[0])
	require.NoError(t, err)

	// A non-empty directory in place of the file makes the delete fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "busy"), 0o750))

	var storageErr *StorageError
	require.ErrorAs(t, s.Complete(claimed), &storageErr)

	require.NoError(t, os.Remove(filepath.Join(path, "busy")))
	_, err = s.All()
	require.NoError(t, err)
	assert.NoDirExists(t, path, "retried delete uses the on-disk name")

	s.mu.Lock()
	assert.Empty(t, s.overlay)
	s.mu.Unlock()
}

func TestReleaseAll_RevertsUploadingToPending(t *testing.T) {
	s := newStore(t, 0)
	a := writeSegment(t, s, epoch, 10)
	b := writeSegment(t, s, epoch.Add(time.Second), 10)
	_, err := s.Claim(a)
	require.NoError(t, err)
	_, err = s.Claim(b)
	require.NoError(t, err)

	assert.Equal(t, 2, s.ReleaseAll())

	all, err := s.All()
	require.NoError(t, err)
	got := make(map[string]Status)
	for _, seg := range all {
		got[seg.ID] = seg.Status
	}
	want := map[string]Status{a.ID: StatusPending, b.ID: StatusPending}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_ContinuesSequence(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	writeSegment(t, s, epoch, 10)
	writeSegment(t, s, epoch, 10)

	reopened, err := Open(Options{Dir: dir, Extension: "mp4"})
	require.NoError(t, err)
	seg := writeSegment(t, reopened, epoch, 10)

	_, seq, ok := ParseName(seg.Filename(), ".mp4")
	require.True(t, ok)
	assert.EqualValues(t, 3, seq)
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := Open(Options{})
	require.Error(t, err)
}

func TestAbort_LeavesNothingBehind(t *testing.T) {
	s := newStore(t, 0)
	open, err := s.Create(epoch)
	require.NoError(t, err)
	_, err = open.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, open.Abort())

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatch_EnforcesQuotaOnExternalArrivals(t *testing.T) {
	s := newStore(t, 250)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 5*time.Millisecond) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	written := 0
	require.Eventually(t, func() bool {
		all, err := s.All()
		if err != nil {
			return false
		}
		if written >= 3 && len(all) <= 2 {
			return true
		}
		written++
		name := FormatName(epoch.Add(time.Duration(written)*time.Second), uint64(1000+written), ".mp4")
		tmp := filepath.Join(s.Dir(), name+OpenSuffix)
		if err := os.WriteFile(tmp, bytes.Repeat([]byte{3}, 100), 0o600); err != nil {
			return false
		}
		_ = os.Rename(tmp, filepath.Join(s.Dir(), name))
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestStorageError_Unwraps(t *testing.T) {
	err := &StorageError{Op: "delete", Path: "/x", Err: os.ErrPermission}
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Contains(t, err.Error(), "delete")
}

func TestParseName_RoundTrip(t *testing.T) {
	name := FormatName(epoch.Add(123*time.Millisecond), 42, ".mp4")
	assert.Equal(t, "20250314T092653.123Z_000042.mp4", name)

	created, seq, ok := ParseName(name, ".mp4")
	require.True(t, ok)
	assert.True(t, created.Equal(epoch.Add(123*time.Millisecond)))
	assert.EqualValues(t, 42, seq)

	_, _, ok = ParseName("random.mp4", ".mp4")
	assert.False(t, ok)
	assert.False(t, isFinalizedName(".hidden.mp4", ".mp4"))
	assert.False(t, isFinalizedName(name+OpenSuffix, ".mp4"))
}
