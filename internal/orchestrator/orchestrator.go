// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package orchestrator drives the recorder's periodic control loop: probe the
// uplink, reconcile the relay, offload pending segments, and keep the segment
// directory within its quota.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/edgecam/internal/connectivity"
	"github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/metrics"
	"github.com/ManuGH/edgecam/internal/offload"
	"github.com/ManuGH/edgecam/internal/relay"
	"github.com/ManuGH/edgecam/internal/segment"
	"github.com/ManuGH/edgecam/internal/sensors"
	"github.com/ManuGH/edgecam/internal/telemetry"
)

const (
	DefaultTickInterval    = 30 * time.Second
	DefaultQuotaInterval   = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Store is the part of the segment store the orchestrator drives.
type Store interface {
	Quota() int64
	EnforceQuota(limitBytes int64) (segment.QuotaReport, error)
	ReleaseAll() int
	Usage() (segment.Usage, error)
	DiskStats() (segment.DiskStats, error)
	Watch(ctx context.Context, debounce time.Duration) error
}

// Relay is the stream controller as seen by the tick.
type Relay interface {
	Reconcile(ctx context.Context, conn connectivity.State) (relay.State, error)
	Shutdown(ctx context.Context) error
	Status() relay.Status
}

// Offloader runs the bounded offload retry loop.
type Offloader interface {
	Drain(ctx context.Context) (offload.DrainResult, error)
	LastResult() (offload.PassResult, bool)
}

// Options wires an Orchestrator. Relay and Offload are optional; a nil value
// disables that stage of the tick.
type Options struct {
	Store   Store
	Prober  connectivity.Prober
	Relay   Relay
	Offload Offloader
	Battery sensors.BatterySource
	// LowBattery is fed every battery reading. Optional.
	LowBattery *sensors.LowBatteryAlarm

	TickInterval    time.Duration
	QuotaInterval   time.Duration
	WatchDebounce   time.Duration
	DisableWatch    bool
	ShutdownTimeout time.Duration
	Logger          *zerolog.Logger
}

// TickResult describes one completed tick.
type TickResult struct {
	ID           uint64               `json:"id"`
	StartedAt    time.Time            `json:"started_at"`
	Duration     time.Duration        `json:"duration_ns"`
	Connectivity connectivity.State   `json:"connectivity"`
	Relay        relay.State          `json:"relay,omitempty"`
	Offload      *offload.DrainResult `json:"offload,omitempty"`
	Battery      *float64             `json:"battery_percent,omitempty"`
}

// Orchestrator owns the tick loop and the quota loop.
type Orchestrator struct {
	store           Store
	prober          connectivity.Prober
	relay           Relay
	offload         Offloader
	battery         sensors.BatterySource
	lowBattery      *sensors.LowBatteryAlarm
	tickInterval    time.Duration
	quotaInterval   time.Duration
	watchDebounce   time.Duration
	disableWatch    bool
	shutdownTimeout time.Duration
	logger          zerolog.Logger
	tracer          trace.Tracer

	seq      atomic.Uint64
	kick     chan struct{}
	stopping atomic.Bool
	// one tick at a time
	tickMu sync.Mutex

	mu   sync.RWMutex
	last *TickResult
}

// New validates opts and fills defaults.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("orchestrator: store is required")
	}
	if opts.Prober == nil {
		return nil, errors.New("orchestrator: prober is required")
	}
	battery := opts.Battery
	if battery == nil {
		battery = sensors.NoBattery{}
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	quota := opts.QuotaInterval
	if quota <= 0 {
		quota = DefaultQuotaInterval
	}
	shutdown := opts.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = DefaultShutdownTimeout
	}
	logger := log.WithComponent("orchestrator")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Orchestrator{
		store:           opts.Store,
		prober:          opts.Prober,
		relay:           opts.Relay,
		offload:         opts.Offload,
		battery:         battery,
		lowBattery:      opts.LowBattery,
		tickInterval:    tick,
		quotaInterval:   quota,
		watchDebounce:   opts.WatchDebounce,
		disableWatch:    opts.DisableWatch,
		shutdownTimeout: shutdown,
		logger:          logger,
		tracer:          telemetry.Tracer("edgecam/orchestrator"),
		kick:            make(chan struct{}, 1),
	}, nil
}

// Tick runs probe, relay reconcile and offload once, in that order. Offload
// is skipped while the uplink is down.
func (o *Orchestrator) Tick(ctx context.Context) TickResult {
	o.tickMu.Lock()
	defer o.tickMu.Unlock()

	start := time.Now()
	id := o.seq.Add(1)
	ctx = log.ContextWithTickID(ctx, id)
	ctx, span := o.tracer.Start(ctx, "orchestrator.tick",
		trace.WithAttributes(attribute.Int64(telemetry.TickIDKey, int64(id))))
	defer span.End()
	logger := log.WithContext(ctx, o.logger)

	res := TickResult{ID: id, StartedAt: start.UTC()}

	level, ok := o.battery.CurrentLevel(ctx)
	metrics.SetBatteryPercent(level, ok)
	if ok {
		res.Battery = &level
	}
	if o.lowBattery != nil {
		o.lowBattery.Observe(level, ok)
	}

	res.Connectivity = o.prober.Probe(ctx)

	if o.relay != nil {
		state, err := o.relay.Reconcile(ctx, res.Connectivity)
		res.Relay = state
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "tick.relay_failed").Msg("relay reconcile failed")
		}
	}

	if o.offload != nil {
		if res.Connectivity == connectivity.Connected {
			drain, err := o.offload.Drain(ctx)
			res.Offload = &drain
			if err != nil {
				logger.Error().Err(err).Str(log.FieldEvent, "tick.offload_failed").Msg("offload could not list segments")
			}
		} else {
			logger.Debug().Str(log.FieldEvent, "tick.offload_skipped").Msg("uplink down, offload deferred")
		}
	}

	res.Duration = time.Since(start)
	metrics.RecordTick(res.Duration.Seconds())

	ev := logger.Info()
	if res.Offload == nil || res.Offload.Uploaded == 0 {
		ev = logger.Debug()
	}
	ev.Str(log.FieldEvent, "tick.completed").
		Str("connectivity", string(res.Connectivity)).
		Str("relay", string(res.Relay)).
		Dur("duration", res.Duration).
		Func(func(e *zerolog.Event) {
			if res.Offload != nil {
				e.Int("uploaded", res.Offload.Uploaded).
					Int("passes", res.Offload.Passes).
					Bool("stopped_early", res.Offload.StoppedEarly)
			}
		}).
		Msg("tick completed")

	o.mu.Lock()
	o.last = &res
	o.mu.Unlock()
	return res
}

// Kick requests an immediate tick from Run. It never blocks.
func (o *Orchestrator) Kick() {
	if o.stopping.Load() {
		return
	}
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

// EnforceQuota runs one quota pass using the store's configured limit.
func (o *Orchestrator) EnforceQuota() (segment.QuotaReport, error) {
	limit := o.store.Quota()
	if limit <= 0 {
		return segment.QuotaReport{}, nil
	}
	return o.store.EnforceQuota(limit)
}

// Run blocks until ctx is canceled. The tick loop fires immediately and then
// every tick interval; quota enforcement runs on its own interval; the
// directory watcher enforces quota on external arrivals.
//
// On cancellation it stops ticking, shuts the relay down, waits for the
// canceled in-flight tick to unwind and returns every Uploading segment to
// Pending.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.stopping.Store(false)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.tickLoop(gctx)
		return nil
	})
	g.Go(func() error {
		o.quotaLoop(gctx)
		return nil
	})
	if !o.disableWatch {
		g.Go(func() error {
			if err := o.store.Watch(gctx, o.watchDebounce); err != nil {
				o.logger.Warn().
					Err(err).
					Str(log.FieldEvent, "orchestrator.watch_unavailable").
					Msg("segment watcher unavailable, relying on quota interval")
			}
			return nil
		})
	}

	o.logger.Info().
		Str(log.FieldEvent, "orchestrator.started").
		Dur("tick_interval", o.tickInterval).
		Dur("quota_interval", o.quotaInterval).
		Msg("orchestrator running")

	<-gctx.Done()
	o.stopping.Store(true)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.shutdownTimeout)
	defer cancel()

	var errs []error
	if o.relay != nil {
		if err := o.relay.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	released := o.store.ReleaseAll()

	o.logger.Info().
		Str(log.FieldEvent, "orchestrator.stopped").
		Int("released_segments", released).
		Msg("orchestrator stopped")
	return errors.Join(errs...)
}

func (o *Orchestrator) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	o.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-o.kick:
			o.logger.Info().Str(log.FieldEvent, "orchestrator.kicked").Msg("immediate tick requested")
			ticker.Reset(o.tickInterval)
		}
		if ctx.Err() != nil {
			return
		}
		o.Tick(ctx)
	}
}

func (o *Orchestrator) quotaLoop(ctx context.Context) {
	ticker := time.NewTicker(o.quotaInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.EnforceQuota(); err != nil {
				o.logger.Error().
					Err(err).
					Str(log.FieldEvent, "orchestrator.quota_failed").
					Msg("quota enforcement failed")
			}
			// refreshes the disk gauges
			_, _ = o.store.DiskStats()
		}
	}
}

// Snapshot is the operator-facing view served on /status.
type Snapshot struct {
	Connectivity connectivity.State  `json:"connectivity"`
	LastTick     *TickResult         `json:"last_tick,omitempty"`
	Relay        *relay.Status       `json:"relay,omitempty"`
	Usage        *segment.Usage      `json:"usage,omitempty"`
	Disk         *segment.DiskStats  `json:"disk,omitempty"`
	LastPass     *offload.PassResult `json:"last_pass,omitempty"`
}

// Snapshot gathers current state without probing or ticking.
func (o *Orchestrator) Snapshot() Snapshot {
	var snap Snapshot

	o.mu.RLock()
	if o.last != nil {
		last := *o.last
		snap.LastTick = &last
		snap.Connectivity = last.Connectivity
	}
	o.mu.RUnlock()

	if o.relay != nil {
		st := o.relay.Status()
		snap.Relay = &st
	}
	if u, err := o.store.Usage(); err == nil {
		snap.Usage = &u
	}
	if d, err := o.store.DiskStats(); err == nil {
		snap.Disk = &d
	}
	if o.offload != nil {
		if pass, ok := o.offload.LastResult(); ok {
			snap.LastPass = &pass
		}
	}
	return snap
}
