// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net validates and redacts the endpoint URLs the recorder talks to.
package net

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const redacted = "REDACTED"

// SanitizeURL removes user info and query parameters for safe logging.
// Streaming URLs (rtmp, rtmps, srt) also lose their last path element,
// which carries the stream key.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	parsedURL.Fragment = ""
	if isStreamingScheme(parsedURL.Scheme) {
		trimmed := strings.TrimSuffix(parsedURL.Path, "/")
		if i := strings.LastIndex(trimmed, "/"); i >= 0 && i < len(trimmed)-1 {
			parsedURL.Path = trimmed[:i+1] + redacted
			parsedURL.RawPath = ""
		}
	}
	return parsedURL.String()
}

func isStreamingScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "rtmp", "rtmps", "srt":
		return true
	}
	return false
}

// ParseEndpoint validates a configured endpoint URL.
// It enforces:
//   - Scheme must be one of schemes (case-insensitive)
//   - Host must be non-empty and a valid hostname or IP
//   - No fragment
//
// The returned URL carries the normalized host.
func ParseEndpoint(raw string, schemes ...string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("missing url scheme")
	}
	allowed := len(schemes) == 0
	for _, s := range schemes {
		if strings.EqualFold(s, scheme) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("scheme %q not allowed (want one of %s)", scheme, strings.Join(schemes, ", "))
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing url host")
	}
	if u.Fragment != "" {
		return nil, fmt.Errorf("fragments not allowed")
	}

	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return nil, err
	}
	u.Scheme = scheme
	u.Host = joinHostPort(host, u.Port())
	return u, nil
}

// NormalizeHost validates and normalizes a host for comparison.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if strings.Contains(host, "://") {
		return "", fmt.Errorf("host must not include scheme: %s", raw)
	}
	if strings.Contains(host, "/") {
		return "", fmt.Errorf("host must not include path: %s", raw)
	}
	if strings.Contains(host, "@") {
		return "", fmt.Errorf("host must not include userinfo: %s", raw)
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	if strings.Contains(host, "%") {
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

func joinHostPort(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}
