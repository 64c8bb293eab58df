// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const maxRateChunk = 32 << 10

// newBandwidthLimiter returns nil (unlimited) when bytesPerSecond <= 0.
// The limiter is shared across uploads so the budget covers the whole uplink.
func newBandwidthLimiter(bytesPerSecond int64) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := int(bytesPerSecond)
	if bytesPerSecond > maxRateChunk {
		burst = maxRateChunk
	}
	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}

// limitedReader throttles reads through a token bucket measured in bytes.
type limitedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func throttle(ctx context.Context, r io.Reader, limiter *rate.Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &limitedReader{ctx: ctx, r: r, limiter: limiter}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if burst := l.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := l.r.Read(p)
	if n > 0 {
		if werr := l.limiter.WaitN(l.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
