// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package connectivity probes uplink reachability.
package connectivity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/metrics"
	"github.com/ManuGH/edgecam/internal/platform/httpx"
	xnet "github.com/ManuGH/edgecam/internal/platform/net"
	"github.com/ManuGH/edgecam/internal/telemetry"
)

// State is the result of one reachability check.
type State string

const (
	Connected    State = "connected"
	Disconnected State = "disconnected"
)

// DefaultProbeURL answers 204 on any working uplink.
const DefaultProbeURL = "http://connectivitycheck.gstatic.com/generate_204"

const defaultTimeout = 5 * time.Second

// Prober performs one reachability check.
type Prober interface {
	Probe(ctx context.Context) State
}

// Options configures a Monitor.
type Options struct {
	URL     string
	Timeout time.Duration
	// Client overrides the probe HTTP client (tests).
	Client *http.Client
	Logger *zerolog.Logger
}

// Monitor checks reachability of a reference URL. Any HTTP response counts as
// reachable; transport errors and timeouts count as unreachable. A probe never
// retries and never returns an error: the caller's cadence is the retry.
type Monitor struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  zerolog.Logger

	mu        sync.RWMutex
	last      State
	lastAt    time.Time
	lastError string
}

// NewMonitor builds a Monitor.
func NewMonitor(opts Options) *Monitor {
	url := opts.URL
	if url == "" {
		url = DefaultProbeURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = httpx.NewClient(timeout, httpx.WithoutKeepAlives(), httpx.WithTracing("connectivity.probe.http"))
	}
	logger := log.WithComponent("connectivity")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Monitor{
		url:     url,
		timeout: timeout,
		client:  client,
		logger:  logger,
		last:    Disconnected,
	}
}

// Probe runs a single bounded check against the reference URL.
func (m *Monitor) Probe(ctx context.Context) State {
	ctx, span := telemetry.Tracer("edgecam/connectivity").Start(ctx, "connectivity.probe")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.ProbeTargetKey, xnet.SanitizeURL(m.url)))

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.check(ctx)
	elapsed := time.Since(start)

	state := Connected
	if err != nil {
		state = Disconnected
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Bool(telemetry.ProbeConnectedKey, state == Connected))
	metrics.RecordProbe(state == Connected, elapsed.Seconds())

	m.record(ctx, state, err, elapsed)
	return state
}

func (m *Monitor) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return nil
}

func (m *Monitor) record(ctx context.Context, state State, err error, elapsed time.Duration) {
	m.mu.Lock()
	prev := m.last
	m.last = state
	m.lastAt = time.Now()
	m.lastError = ""
	if err != nil {
		m.lastError = err.Error()
	}
	m.mu.Unlock()

	logger := log.WithContext(ctx, m.logger)
	if prev != state {
		ev := logger.Info()
		if state == Disconnected {
			ev = logger.Warn().Err(err)
		}
		ev.Str(log.FieldEvent, "connectivity.changed").
			Str(log.FieldOldState, string(prev)).
			Str(log.FieldNewState, string(state)).
			Str(log.FieldTarget, xnet.SanitizeURL(m.url)).
			Dur("elapsed", elapsed).
			Msg("connectivity state changed")
		return
	}
	logger.Debug().
		Str(log.FieldEvent, "connectivity.probed").
		Str("state", string(state)).
		Dur("elapsed", elapsed).
		Msg("connectivity probed")
}

// Status is the last observed probe outcome.
type Status struct {
	State     State     `json:"state"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Last returns the most recent probe outcome without probing.
func (m *Monitor) Last() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{State: m.last, CheckedAt: m.lastAt, LastError: m.lastError}
}
