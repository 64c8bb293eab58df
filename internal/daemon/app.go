// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon runs the status server and the recorder control loop.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/edgecam/internal/log"
)

// Loop is the recorder control loop owned by the App.
type Loop interface {
	Run(ctx context.Context) error
	Kick()
}

// App owns the long-lived runtime: the control loop, the status server and
// the signal that forces an immediate tick.
type App struct {
	logger     zerolog.Logger
	manager    Manager
	loop       Loop
	kickSignal os.Signal
}

// NewApp creates a new App. SIGHUP triggers an immediate tick.
func NewApp(logger zerolog.Logger, manager Manager, loop Loop) *App {
	return &App{
		logger:     logger,
		manager:    manager,
		loop:       loop,
		kickSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or a fatal error occurs. The control loop
// finishes its own shutdown sequence before Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.loop == nil {
		return ErrMissingLoop
	}

	var sigCh chan os.Signal
	if a.kickSignal != nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, a.kickSignal)
		defer signal.Stop(sigCh)
	}

	g, ctx := errgroup.WithContext(ctx)

	if sigCh != nil {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-sigCh:
					a.logger.Info().
						Str(log.FieldEvent, "daemon.kick_signal").
						Str("signal", a.kickSignal.String()).
						Msg("received signal, running tick now")
					a.loop.Kick()
				}
			}
		})
	}

	g.Go(func() error {
		return a.loop.Run(ctx)
	})

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.WithoutCancel(ctx))
		}
		return err
	})

	return g.Wait()
}
