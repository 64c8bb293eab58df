// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/edgecam/internal/segment"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// scriptedUploader fails segments according to a per-ID script of errors,
// consumed one entry per attempt.
type scriptedUploader struct {
	mu       sync.Mutex
	script   map[string][]error
	calls    []string
	metadata []Metadata
}

func (u *scriptedUploader) Upload(_ context.Context, seg segment.Segment, md Metadata) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, seg.ID)
	u.metadata = append(u.metadata, md)
	if errs := u.script[seg.ID]; len(errs) > 0 {
		u.script[seg.ID] = errs[1:]
		return errs[0]
	}
	return nil
}

func (u *scriptedUploader) Calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

func newTestStore(t *testing.T) *segment.Store {
	t.Helper()
	s, err := segment.Open(segment.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func addSegments(t *testing.T, s *segment.Store, n int) []segment.Segment {
	t.Helper()
	out := make([]segment.Segment, 0, n)
	for i := 0; i < n; i++ {
		open, err := s.Create(epoch.Add(time.Duration(i) * time.Minute))
		require.NoError(t, err)
		_, err = open.Write(bytes.Repeat([]byte{byte(i)}, 64))
		require.NoError(t, err)
		seg, err := open.Finalize()
		require.NoError(t, err)
		out = append(out, seg)
	}
	return out
}

func segIDs(segs []segment.Segment) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.ID)
	}
	return out
}

func newTestQueue(t *testing.T, store Store, up Uploader, retries int) *Queue {
	t.Helper()
	q, err := NewQueue(Options{
		Store:      store,
		Uploader:   up,
		Metadata:   SensorMetadata{DeviceID: "cam-01"},
		MaxRetries: retries,
	})
	require.NoError(t, err)
	return q
}

func TestRunPass_StopsAtFirstFailure(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 3)
	up := &scriptedUploader{script: map[string][]error{
		segs[1].ID: {transient(context.DeadlineExceeded)},
	}}
	q := newTestQueue(t, store, up, 0)

	batch, err := store.List()
	require.NoError(t, err)
	res := q.RunPass(context.Background(), batch)

	assert.Equal(t, 1, res.Uploaded)
	assert.True(t, res.StoppedEarly)
	assert.Equal(t, segs[1].ID, res.FailedID)
	assert.ErrorIs(t, res.Err, ErrTransientNetwork)
	assert.Equal(t, []string{segs[0].ID, segs[1].ID}, up.Calls(), "later segments must not be attempted")

	assert.NoFileExists(t, segs[0].Path)
	assert.FileExists(t, segs[1].Path)
	assert.FileExists(t, segs[2].Path)

	pending, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{segs[1].ID, segs[2].ID}, segIDs(pending), "failed segment returns to pending")
}

func TestRunPass_KOfNFailures(t *testing.T) {
	for k := 0; k < 4; k++ {
		store := newTestStore(t)
		segs := addSegments(t, store, 4)
		up := &scriptedUploader{script: map[string][]error{
			segs[k].ID: {&RemoteRejectionError{StatusCode: 503, Status: "503 Service Unavailable"}},
		}}
		q := newTestQueue(t, store, up, 0)

		batch, err := store.List()
		require.NoError(t, err)
		res := q.RunPass(context.Background(), batch)

		assert.Equal(t, k, res.Uploaded, "k=%d", k)
		assert.True(t, res.StoppedEarly, "k=%d", k)
		pending, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, segIDs(segs[k:]), segIDs(pending), "k=%d", k)
	}
}

func TestRunPass_AllSucceed(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 3)
	up := &scriptedUploader{script: map[string][]error{}}
	q := newTestQueue(t, store, up, 0)

	batch, err := store.List()
	require.NoError(t, err)
	res := q.RunPass(context.Background(), batch)

	assert.Equal(t, 3, res.Uploaded)
	assert.False(t, res.StoppedEarly)
	assert.Equal(t, segIDs(segs), up.Calls())

	all, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, all)

	last, ok := q.LastResult()
	require.True(t, ok)
	assert.Equal(t, res.PassID, last.PassID)
}

func TestRunPass_SkipsEvictedSegments(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 3)
	up := &scriptedUploader{script: map[string][]error{}}
	q := newTestQueue(t, store, up, 0)

	batch, err := store.List()
	require.NoError(t, err)
	require.NoError(t, store.Delete(segs[0]))

	res := q.RunPass(context.Background(), batch)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Uploaded)
	assert.False(t, res.StoppedEarly)
	assert.Equal(t, []string{segs[1].ID, segs[2].ID}, up.Calls())
}

func TestRunPass_NeverUploadsTwice(t *testing.T) {
	store := newTestStore(t)
	addSegments(t, store, 2)
	up := &scriptedUploader{script: map[string][]error{}}
	q := newTestQueue(t, store, up, 0)

	batch, err := store.List()
	require.NoError(t, err)
	q.RunPass(context.Background(), batch)
	// Stale snapshot replayed: everything is gone already.
	res := q.RunPass(context.Background(), batch)

	assert.Equal(t, 0, res.Uploaded)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, up.Calls(), 2)
}

func TestRunPass_CanceledContextLeavesBatchUntouched(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 2)
	up := &scriptedUploader{script: map[string][]error{}}
	q := newTestQueue(t, store, up, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch, err := store.List()
	require.NoError(t, err)
	res := q.RunPass(ctx, batch)

	assert.True(t, res.StoppedEarly)
	assert.Equal(t, ClassCanceled, Classify(res.Err))
	assert.Empty(t, up.Calls())
	assert.FileExists(t, segs[0].Path)
}

func TestRunPass_MetadataPerSegment(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 1)
	up := &scriptedUploader{script: map[string][]error{}}
	q := newTestQueue(t, store, up, 0)

	batch, err := store.List()
	require.NoError(t, err)
	q.RunPass(context.Background(), batch)

	require.Len(t, up.metadata, 1)
	md := up.metadata[0]
	assert.Equal(t, segs[0].Filename(), md.Filename)
	assert.Equal(t, "cam-01", md.DeviceID)
	assert.True(t, md.Timestamp.Equal(epoch))
	assert.Nil(t, md.GPSCoordinates)
	assert.EqualValues(t, 64, md.SizeBytes)
}

func TestDrain_RetriesTransientFailureWithinTick(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 3)
	up := &scriptedUploader{script: map[string][]error{
		segs[1].ID: {transient(errors.New("connection reset by peer"))},
	}}
	q := newTestQueue(t, store, up, 2)

	res, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, 3, res.Uploaded)
	assert.False(t, res.StoppedEarly)
	assert.Equal(t, []string{segs[0].ID, segs[1].ID, segs[1].ID, segs[2].ID}, up.Calls())
}

func TestDrain_ExhaustsRetriesAndDefers(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 2)
	fail := transient(errors.New("no route to host"))
	up := &scriptedUploader{script: map[string][]error{
		segs[0].ID: {fail, fail, fail, fail, fail},
	}}
	q := newTestQueue(t, store, up, 2)

	res, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Passes, "one pass plus two retries")
	assert.Equal(t, 0, res.Uploaded)
	assert.True(t, res.StoppedEarly)
	assert.FileExists(t, segs[0].Path)
	assert.FileExists(t, segs[1].Path)
}

func TestDrain_DoesNotRetryCancellation(t *testing.T) {
	store := newTestStore(t)
	segs := addSegments(t, store, 2)
	up := &scriptedUploader{script: map[string][]error{
		segs[0].ID: {transient(context.Canceled)},
	}}
	q := newTestQueue(t, store, up, 5)

	res, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, ClassCanceled, Classify(res.Last.Err))
}

func TestDrain_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	up := &scriptedUploader{script: map[string][]error{}}
	q := newTestQueue(t, store, up, 2)

	res, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 0, res.Uploaded)
	assert.Empty(t, up.Calls())
}

func TestNewQueue_Validation(t *testing.T) {
	_, err := NewQueue(Options{})
	require.Error(t, err)
	_, err = NewQueue(Options{Store: newTestStore(t)})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassSuccess, Classify(nil))
	assert.Equal(t, ClassTransient, Classify(transient(errors.New("reset"))))
	assert.Equal(t, ClassRejected, Classify(&RemoteRejectionError{StatusCode: 500}))
	assert.Equal(t, ClassCanceled, Classify(transient(context.Canceled)))
	assert.Equal(t, ClassStorage, Classify(&segment.StorageError{Op: "open", Err: errors.New("eacces")}))

	assert.True(t, Retryable(&RemoteRejectionError{StatusCode: 413}))
	assert.False(t, Retryable(context.Canceled))
	assert.True(t, errors.Is(transient(errors.New("x")), ErrTransientNetwork))
}
