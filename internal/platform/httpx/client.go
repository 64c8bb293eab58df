// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpx builds the hardened HTTP clients used for probes and uploads.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

type options struct {
	responseHeaderTimeout time.Duration
	traced                bool
	operation             string
	keepAlives            bool
}

// Option customizes a client built by NewClient.
type Option func(*options)

// WithResponseHeaderTimeout overrides the capped wait for response headers.
// Uploads need this: the server may only answer once the whole body is stored.
func WithResponseHeaderTimeout(d time.Duration) Option {
	return func(o *options) { o.responseHeaderTimeout = d }
}

// WithTracing wraps the transport with otelhttp client spans named operation.
func WithTracing(operation string) Option {
	return func(o *options) {
		o.traced = true
		o.operation = operation
	}
}

// WithoutKeepAlives disables connection reuse; probes must observe a fresh
// dial every time or a dead uplink hides behind a pooled connection.
func WithoutKeepAlives() Option {
	return func(o *options) { o.keepAlives = false }
}

// NewClient returns a hardened HTTP client for runtime and ops probes.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	o := options{keepAlives: true}
	for _, opt := range opts {
		opt(&o)
	}

	responseHeaderTimeout := timeout
	if responseHeaderTimeout > defaultResponseHeaderTimeout {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}
	if o.responseHeaderTimeout > 0 {
		responseHeaderTimeout = o.responseHeaderTimeout
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		DisableKeepAlives:     !o.keepAlives,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
	if o.traced {
		operation := o.operation
		rt = otelhttp.NewTransport(rt, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if operation != "" {
				return operation
			}
			return "HTTP " + r.Method
		}))
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}
