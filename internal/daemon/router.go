// SPDX-License-Identifier: MIT

package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/edgecam/internal/health"
	"github.com/ManuGH/edgecam/internal/log"
)

const defaultRequestsPerMinute = 120

// RouterConfig wires the status endpoints.
type RouterConfig struct {
	Health *health.Manager

	// Status returns the JSON-encodable operator view for /status
	Status func() any

	// RequestsPerMinute bounds requests per client IP; <= 0 uses the default
	RequestsPerMinute int

	// TracingService names server spans; empty disables tracing
	TracingService string
}

// NewRouter builds the status surface: /healthz, /readyz, /metrics and /status.
func NewRouter(cfg RouterConfig) http.Handler {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = defaultRequestsPerMinute
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(httprate.Limit(
		limit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Minute.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	))

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.ServeHealth)
		r.Get("/readyz", cfg.Health.ServeReady)
	}
	r.Handle("/metrics", promhttp.Handler())
	if cfg.Status != nil {
		r.Get("/status", statusHandler(cfg.Status))
	}

	if cfg.TracingService == "" {
		return r
	}
	return otelhttp.NewHandler(r, cfg.TracingService,
		otelhttp.WithFilter(shouldTrace),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return operation + " " + r.URL.Path
		}),
	)
}

// shouldTrace skips probe and scrape traffic.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

func statusHandler(status func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status()); err != nil {
			logger := log.WithComponentFromContext(r.Context(), "status")
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "status.encode_error").
				Msg("failed to encode status response")
		}
	}
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger := log.WithComponentFromContext(r.Context(), "http")
		logger.Debug().
			Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}
