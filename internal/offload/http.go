// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ManuGH/edgecam/internal/platform/httpx"
	"github.com/ManuGH/edgecam/internal/segment"
)

const (
	defaultUploadTimeout = 120 * time.Second
	maxRejectionBody     = 512

	// Form field names of the upload request.
	FieldFile     = "file"
	FieldMetadata = "metadata"

	// HeaderRequestID carries a per-attempt ID for server-side correlation.
	HeaderRequestID = "X-Request-ID"
)

// HTTPConfig configures an HTTPUploader.
type HTTPConfig struct {
	Endpoint          string
	Timeout           time.Duration
	MaxBytesPerSecond int64
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// HTTPUploader POSTs each segment as multipart/form-data: a "file" part with
// the video bytes and a "metadata" field with the JSON metadata.
type HTTPUploader struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPUploader builds an HTTPUploader.
func NewHTTPUploader(cfg HTTPConfig) (*HTTPUploader, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("upload endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	client := cfg.Client
	if client == nil {
		client = httpx.NewClient(timeout,
			httpx.WithResponseHeaderTimeout(timeout),
			httpx.WithTracing("offload.upload.http"),
		)
	}
	return &HTTPUploader{
		endpoint: cfg.Endpoint,
		timeout:  timeout,
		client:   client,
		limiter:  newBandwidthLimiter(cfg.MaxBytesPerSecond),
	}, nil
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, seg segment.Segment, md Metadata) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	f, err := os.Open(seg.Path) // #nosec G304 -- path comes from the segment store
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return segment.ErrSegmentGone
		}
		return &segment.StorageError{Op: "open", Path: seg.Path, Err: err}
	}
	defer func() { _ = f.Close() }()

	mdJSON, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	written := make(chan struct{})
	go func() {
		defer close(written)
		pw.CloseWithError(writeForm(mw, md.Filename, mdJSON, throttle(ctx, f, u.limiter)))
	}()
	// The form writer reads f; it must be done before f is closed.
	defer func() {
		_ = pr.Close()
		<-written
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(HeaderRequestID, uuid.NewString())

	resp, err := u.client.Do(req)
	if err != nil {
		return transient(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxRejectionBody))
		return &RemoteRejectionError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}

func writeForm(mw *multipart.Writer, filename string, mdJSON []byte, body io.Reader) error {
	if err := mw.WriteField(FieldMetadata, string(mdJSON)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile(FieldFile, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, body); err != nil {
		return err
	}
	return mw.Close()
}
