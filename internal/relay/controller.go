// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package relay supervises the live-stream relay subprocess and starts or
// stops it as uplink connectivity comes and goes.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/edgecam/internal/connectivity"
	"github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/metrics"
	xnet "github.com/ManuGH/edgecam/internal/platform/net"
	"github.com/ManuGH/edgecam/internal/resilience"
)

// State is the controller's view of the relay.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateLive     State = "live"
	StateStopping State = "stopping"
)

// DefaultStartupWindow is how long a relay must stay up before a launch counts
// as healthy. Exits inside the window count as launch failures.
const DefaultStartupWindow = 10 * time.Second

// ErrShutdown is returned by Reconcile after Shutdown.
var ErrShutdown = errors.New("relay controller shut down")

// Options configures a Controller.
type Options struct {
	Launcher Launcher
	// Breaker suppresses launches after repeated failures. Optional.
	Breaker       *resilience.CircuitBreaker
	StartupWindow time.Duration
	// Target is logged (sanitized) with lifecycle events.
	Target string
	Logger *zerolog.Logger
}

// Status is a point-in-time view for status reporting.
type Status struct {
	State     State     `json:"state"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Starts    uint64    `json:"starts"`
	Crashes   uint64    `json:"crashes"`
	Breaker   string    `json:"breaker,omitempty"`
}

// Controller owns at most one relay process. Reconcile is driven once per
// orchestrator tick; Shutdown guarantees the process does not outlive it.
type Controller struct {
	launcher      Launcher
	breaker       *resilience.CircuitBreaker
	startupWindow time.Duration
	target        string
	logger        zerolog.Logger

	// opMu serializes Reconcile and Shutdown.
	opMu      sync.Mutex
	proc      Process
	confirmed bool
	closed    bool

	mu        sync.RWMutex
	state     State
	pid       int
	startedAt time.Time
	starts    uint64
	crashes   uint64
}

// NewController creates an idle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Launcher == nil {
		return nil, errors.New("relay: launcher is required")
	}
	if opts.StartupWindow <= 0 {
		opts.StartupWindow = DefaultStartupWindow
	}
	logger := log.WithComponent("relay")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	c := &Controller{
		launcher:      opts.Launcher,
		breaker:       opts.Breaker,
		startupWindow: opts.StartupWindow,
		target:        xnet.SanitizeURL(opts.Target),
		logger:        logger,
		state:         StateIdle,
	}
	metrics.SetRelayState(string(StateIdle))
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns a snapshot of the relay.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := Status{
		State:     c.state,
		PID:       c.pid,
		StartedAt: c.startedAt,
		Starts:    c.starts,
		Crashes:   c.crashes,
	}
	c.mu.RUnlock()
	if c.breaker != nil {
		st.Breaker = string(c.breaker.State())
	}
	return st
}

// Reconcile applies one tick's connectivity to the relay:
//
//	idle + connected       -> launch (failure stays idle, retried next tick)
//	live + disconnected    -> stop, escalating to kill after the grace period
//	live + process exited  -> idle, then the rules above apply
//	otherwise              -> no-op
//
// It returns the resulting state.
func (c *Controller) Reconcile(ctx context.Context, conn connectivity.State) (State, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.closed {
		return c.State(), ErrShutdown
	}
	logger := log.WithContext(ctx, c.logger)

	if c.proc != nil {
		c.checkProcessLocked(logger)
	}

	switch {
	case c.proc == nil && conn == connectivity.Connected:
		c.launchLocked(ctx, logger)
	case c.proc != nil && conn == connectivity.Disconnected:
		if err := c.stopLocked(ctx, logger, "stopped"); err != nil {
			return c.State(), err
		}
	}
	return c.State(), nil
}

// checkProcessLocked detects a relay that died while live and confirms a
// launch as healthy once it outlives the startup window.
func (c *Controller) checkProcessLocked(logger zerolog.Logger) {
	proc := c.proc
	uptime := time.Since(c.startedAtSnapshot())

	if !exited(proc) {
		if !c.confirmed && uptime >= c.startupWindow {
			c.confirmed = true
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
		}
		return
	}

	ev := logger.Warn().
		Str(log.FieldEvent, "relay.crashed").
		Int(log.FieldPID, proc.Pid()).
		Dur("uptime", uptime).
		Str(log.FieldTarget, c.target)
	if err := proc.Err(); err != nil {
		ev = ev.AnErr("exit_error", err)
	}
	if t, ok := proc.(stderrTailer); ok {
		ev = ev.Strs("stderr", t.StderrTail(16))
	}
	ev.Msg("relay process exited unexpectedly")

	metrics.RecordRelayExit("crashed")
	if !c.confirmed && c.breaker != nil {
		c.breaker.RecordFailure()
	}

	c.proc = nil
	c.mu.Lock()
	c.crashes++
	c.mu.Unlock()
	c.setState(logger, StateIdle, 0)
}

func (c *Controller) launchLocked(ctx context.Context, logger zerolog.Logger) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			metrics.RecordRelayStart("suppressed")
			ev := logger.Warn().
				Str(log.FieldEvent, "relay.launch_suppressed")
			if retryAt := c.breaker.RetryAt(); !retryAt.IsZero() {
				ev = ev.Time("retry_at", retryAt)
			}
			ev.Msg("relay launch suppressed after repeated failures")
			return
		}
	}

	c.setState(logger, StateStarting, 0)
	proc, err := c.launcher.Launch(ctx)
	if err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		metrics.RecordRelayStart("error")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "relay.launch_failed").
			Str(log.FieldTarget, c.target).
			Msg("relay launch failed, retrying next tick")
		c.setState(logger, StateIdle, 0)
		return
	}

	c.proc = proc
	c.confirmed = false
	c.mu.Lock()
	c.startedAt = time.Now()
	c.starts++
	c.mu.Unlock()
	metrics.RecordRelayStart("ok")
	c.setState(logger, StateLive, proc.Pid())
	logger.Info().
		Str(log.FieldEvent, "relay.started").
		Int(log.FieldPID, proc.Pid()).
		Str(log.FieldTarget, c.target).
		Msg("relay started")
}

func (c *Controller) stopLocked(ctx context.Context, logger zerolog.Logger, reason string) error {
	proc := c.proc
	c.setState(logger, StateStopping, proc.Pid())

	start := time.Now()
	err := proc.Stop(ctx)
	c.proc = nil
	// An unconfirmed launch stopped on purpose proves nothing either way.
	if !c.confirmed && c.breaker != nil {
		c.breaker.Cancel()
	}
	metrics.RecordRelayExit(reason)

	ev := logger.Info()
	if err != nil {
		ev = logger.Error().Err(err)
	}
	ev.Str(log.FieldEvent, "relay.stopped").
		Int(log.FieldPID, proc.Pid()).
		Str("reason", reason).
		Dur("duration", time.Since(start)).
		Msg("relay stopped")

	c.setState(logger, StateIdle, 0)
	return err
}

// Shutdown stops any live relay and disables further launches.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.closed = true
	if c.proc == nil {
		return nil
	}
	return c.stopLocked(ctx, log.WithContext(ctx, c.logger), "shutdown")
}

func (c *Controller) startedAtSnapshot() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startedAt
}

func (c *Controller) setState(logger zerolog.Logger, next State, pid int) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.pid = pid
	if next == StateIdle {
		c.startedAt = time.Time{}
	}
	c.mu.Unlock()

	if prev == next {
		return
	}
	metrics.SetRelayState(string(next))
	logger.Debug().
		Str(log.FieldEvent, "relay.transition").
		Str(log.FieldOldState, string(prev)).
		Str(log.FieldNewState, string(next)).
		Msg("relay state changed")
}
