// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	passIDKey ctxKey = "pass_id"
	tickIDKey ctxKey = "tick_id"
)

// ContextWithPassID stores the offload pass ID in the context.
func ContextWithPassID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, passIDKey, id)
}

// ContextWithTickID stores the orchestrator tick sequence in the context.
func ContextWithTickID(ctx context.Context, id uint64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tickIDKey, id)
}

// PassIDFromContext extracts the pass ID from context if present.
func PassIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(passIDKey).(string); ok {
		return v
	}
	return ""
}

// TickIDFromContext extracts the tick sequence from context if present.
func TickIDFromContext(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	v, ok := ctx.Value(tickIDKey).(uint64)
	return v, ok
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if tick, ok := TickIDFromContext(ctx); ok {
		builder = builder.Uint64(FieldTickID, tick)
		added = true
	}
	if pid := PassIDFromContext(ctx); pid != "" {
		builder = builder.Str(FieldPassID, pid)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// WithComponentFromContext returns a logger that is annotated with the component
// name and enriched with correlation fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}

// FromContext returns a logger from the context, or the base logger if none is attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := Base()
		return &l
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		b := Base()
		return &b
	}
	return l
}
