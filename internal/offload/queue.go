// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package offload uploads pending segments oldest-first and deletes them once
// the remote confirms receipt.
package offload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/metrics"
	"github.com/ManuGH/edgecam/internal/segment"
	"github.com/ManuGH/edgecam/internal/telemetry"
)

// Store is the part of the segment store the queue consumes.
type Store interface {
	List() ([]segment.Segment, error)
	Claim(seg segment.Segment) (segment.Segment, error)
	Release(seg segment.Segment)
	Complete(seg segment.Segment) error
}

// PassResult summarizes one pass over a batch.
type PassResult struct {
	PassID       string    `json:"pass_id"`
	BatchSize    int       `json:"batch_size"`
	Uploaded     int       `json:"uploaded"`
	Skipped      int       `json:"skipped"`
	StoppedEarly bool      `json:"stopped_early"`
	FailedID     string    `json:"failed_segment_id,omitempty"`
	Err          error     `json:"-"`
	Error        string    `json:"error,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}

// DrainResult summarizes the bounded retry loop run once per tick.
type DrainResult struct {
	Passes       int        `json:"passes"`
	Uploaded     int        `json:"uploaded"`
	StoppedEarly bool       `json:"stopped_early"`
	Last         PassResult `json:"last"`
}

// Options configures a Queue.
type Options struct {
	Store    Store
	Uploader Uploader
	Metadata MetadataProvider
	// MaxRetries is how many extra passes Drain may run after a retryable failure.
	MaxRetries int
	// RetryBackoff is the pause between those passes.
	RetryBackoff time.Duration
	Logger       *zerolog.Logger
}

// Queue is the offload queue.
type Queue struct {
	store      Store
	uploader   Uploader
	meta       MetadataProvider
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer

	// one pass at a time
	passMu sync.Mutex

	mu   sync.RWMutex
	last *PassResult
}

// NewQueue builds a Queue.
func NewQueue(opts Options) (*Queue, error) {
	if opts.Store == nil {
		return nil, errors.New("offload: store is required")
	}
	if opts.Uploader == nil {
		return nil, errors.New("offload: uploader is required")
	}
	meta := opts.Metadata
	if meta == nil {
		meta = SensorMetadata{}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	logger := log.WithComponent("offload")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Queue{
		store:      opts.Store,
		uploader:   opts.Uploader,
		meta:       meta,
		maxRetries: maxRetries,
		backoff:    opts.RetryBackoff,
		logger:     logger,
		tracer:     telemetry.Tracer("edgecam/offload"),
	}, nil
}

// RunPass uploads batch strictly in order. It stops at the first failed
// upload, returns that segment to Pending and leaves every later segment
// untouched. Segments that vanished before their turn (quota eviction) are
// skipped without failing the pass.
func (q *Queue) RunPass(ctx context.Context, batch []segment.Segment) PassResult {
	q.passMu.Lock()
	defer q.passMu.Unlock()

	res := PassResult{PassID: uuid.NewString(), BatchSize: len(batch)}
	ctx = log.ContextWithPassID(ctx, res.PassID)
	ctx, span := q.tracer.Start(ctx, "offload.pass")
	defer span.End()
	logger := log.WithContext(ctx, q.logger)

	if len(batch) > 0 {
		logger.Info().
			Str(log.FieldEvent, "offload.pass_started").
			Int("batch_size", len(batch)).
			Str("first_segment", batch[0].ID).
			Msg("offload pass started")
	}

	var uploadedBytes int64
	for i, seg := range batch {
		if err := ctx.Err(); err != nil {
			res.stop(seg, err)
			break
		}

		claimed, err := q.store.Claim(seg)
		if errors.Is(err, segment.ErrSegmentGone) {
			res.Skipped++
			logger.Info().
				Str(log.FieldEvent, "offload.segment_gone").
				Str(log.FieldSegmentID, seg.ID).
				Msg("segment evicted before upload; skipping")
			continue
		}
		if err != nil {
			res.stop(seg, err)
			break
		}

		err = q.upload(ctx, claimed)
		if errors.Is(err, segment.ErrSegmentGone) {
			q.store.Release(claimed)
			res.Skipped++
			continue
		}
		if err != nil {
			q.store.Release(claimed)
			res.stop(seg, err)
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "offload.stopped_early").
				Str(log.FieldSegmentID, seg.ID).
				Str("class", Classify(err)).
				Int("uploaded", res.Uploaded).
				Int("untouched", len(batch)-i-1).
				Msg("upload failed; segment returned to pending and pass stopped")
			break
		}

		res.Uploaded++
		uploadedBytes += claimed.SizeBytes
		if err := q.store.Complete(claimed); err != nil {
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "offload.delete_failed").
				Str(log.FieldSegmentID, seg.ID).
				Str(log.FieldPath, seg.Path).
				Msg("uploaded segment could not be deleted; will retry removal")
			continue
		}
		logger.Info().
			Str(log.FieldEvent, "offload.uploaded").
			Str(log.FieldSegmentID, seg.ID).
			Int64(log.FieldSizeBytes, claimed.SizeBytes).
			Msg("segment uploaded and deleted")
	}

	res.FinishedAt = time.Now().UTC()
	outcome := "complete"
	switch {
	case len(batch) == 0:
		outcome = "empty"
	case res.StoppedEarly:
		outcome = "stopped_early"
		span.SetStatus(codes.Error, res.Error)
	}
	metrics.RecordPass(outcome, len(batch))
	telemetry.RecordPassOutcome(ctx, outcome, res.Uploaded, uploadedBytes)
	span.SetAttributes(telemetry.PassAttributes(res.PassID, len(batch), res.Uploaded, res.StoppedEarly)...)

	q.mu.Lock()
	last := res
	q.last = &last
	q.mu.Unlock()
	return res
}

func (r *PassResult) stop(seg segment.Segment, err error) {
	r.StoppedEarly = true
	r.FailedID = seg.ID
	r.Err = err
	r.Error = err.Error()
}

func (q *Queue) upload(ctx context.Context, seg segment.Segment) error {
	ctx, span := q.tracer.Start(ctx, "offload.upload",
		trace.WithAttributes(telemetry.SegmentAttributes(seg.ID, seg.SizeBytes, seg.CreatedAt.Unix())...))
	defer span.End()

	md := q.meta.Metadata(ctx, seg)
	start := time.Now()
	err := q.uploader.Upload(ctx, seg, md)
	class := Classify(err)
	if !errors.Is(err, segment.ErrSegmentGone) {
		metrics.RecordUpload(class, seg.SizeBytes, time.Since(start).Seconds())
	}
	if err != nil {
		span.SetAttributes(telemetry.ErrorAttributes(err, class)...)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Drain lists pending segments and runs passes until one completes, a
// non-retryable failure occurs, or MaxRetries extra passes were spent.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	var out DrainResult
	for {
		batch, err := q.store.List()
		if err != nil {
			return out, err
		}
		if len(batch) == 0 && out.Passes > 0 {
			return out, nil
		}

		res := q.RunPass(ctx, batch)
		out.Passes++
		out.Uploaded += res.Uploaded
		out.StoppedEarly = res.StoppedEarly
		out.Last = res

		if !res.StoppedEarly || !Retryable(res.Err) || out.Passes > q.maxRetries {
			return out, nil
		}

		logger := log.WithContext(ctx, q.logger)
		logger.Info().
			Str(log.FieldEvent, "offload.retry").
			Int("attempt", out.Passes).
			Int("max_retries", q.maxRetries).
			Dur("backoff", q.backoff).
			Msg("retrying offload pass within tick")

		if q.backoff > 0 {
			t := time.NewTimer(q.backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return out, nil
			case <-t.C:
			}
		}
	}
}

// LastResult returns the most recent pass result, if any.
func (q *Queue) LastResult() (PassResult, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.last == nil {
		return PassResult{}, false
	}
	return *q.last, true
}
