// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/edgecam/internal/segment"
)

// Uploader sends one segment and its metadata to the remote archive.
// A nil error means the remote confirmed receipt and the local copy may go.
type Uploader interface {
	Upload(ctx context.Context, seg segment.Segment, md Metadata) error
}

// UploaderConfig selects and configures an Uploader.
type UploaderConfig struct {
	// Endpoint is an http(s) URL for multipart POSTs or s3://bucket/prefix.
	Endpoint          string
	Timeout           time.Duration
	MaxBytesPerSecond int64
	S3                S3Config
}

// NewUploader builds the uploader matching the endpoint scheme.
func NewUploader(cfg UploaderConfig) (Uploader, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("parse upload endpoint: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPUploader(HTTPConfig{
			Endpoint:          u.String(),
			Timeout:           cfg.Timeout,
			MaxBytesPerSecond: cfg.MaxBytesPerSecond,
		})
	case "s3":
		s3cfg := cfg.S3
		s3cfg.Bucket = u.Host
		s3cfg.Prefix = strings.Trim(u.Path, "/")
		if s3cfg.Timeout <= 0 {
			s3cfg.Timeout = cfg.Timeout
		}
		if s3cfg.MaxBytesPerSecond <= 0 {
			s3cfg.MaxBytesPerSecond = cfg.MaxBytesPerSecond
		}
		return NewS3Uploader(s3cfg)
	default:
		return nil, fmt.Errorf("unsupported upload endpoint scheme %q (want http, https or s3)", u.Scheme)
	}
}
