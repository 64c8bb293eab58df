// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"

	"github.com/ManuGH/edgecam/internal/segment"
)

// S3Config configures an S3Uploader.
type S3Config struct {
	// Endpoint is the S3 API host (host:port or URL).
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string

	// Bucket and Prefix come from the s3://bucket/prefix upload endpoint.
	Bucket string
	Prefix string

	Timeout           time.Duration
	MaxBytesPerSecond int64
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// S3Uploader stores each segment as an object under bucket/prefix/device/filename
// with the metadata attached as object user metadata.
type S3Uploader struct {
	client  *minio.Client
	bucket  string
	prefix  string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewS3Uploader builds an S3Uploader.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("s3 credentials are required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
		}
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    useSSL,
		Region:    cfg.Region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		timeout: timeout,
		limiter: newBandwidthLimiter(cfg.MaxBytesPerSecond),
	}, nil
}

// ObjectKey returns the object key for a segment.
func (u *S3Uploader) ObjectKey(md Metadata) string {
	device := md.DeviceID
	if device == "" {
		device = "unknown"
	}
	return path.Join(u.prefix, device, md.Filename)
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, seg segment.Segment, md Metadata) error {
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

	info, err := f.Stat()
	if err != nil {
		return &segment.StorageError{Op: "stat", Path: seg.Path, Err: err}
	}

	_, err = u.client.PutObject(ctx, u.bucket, u.ObjectKey(md), throttle(ctx, f, u.limiter), info.Size(),
		minio.PutObjectOptions{
			ContentType:  contentType(md.Filename),
			UserMetadata: objectMetadata(md),
		})
	if err != nil {
		return classifyS3Error(err)
	}
	return nil
}

// segmentContentTypes covers container formats the system MIME table often lacks.
var segmentContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4s":  "video/iso.segment",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".ts":   "video/mp2t",
	".webm": "video/webm",
}

func contentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := segmentContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func objectMetadata(md Metadata) map[string]string {
	m := map[string]string{
		"device-id":  md.DeviceID,
		"timestamp":  md.Timestamp.UTC().Format(time.RFC3339Nano),
		"size-bytes": strconv.FormatInt(md.SizeBytes, 10),
	}
	if md.GPSCoordinates != nil {
		m["gps-latitude"] = strconv.FormatFloat(md.GPSCoordinates.Latitude, 'f', 6, 64)
		m["gps-longitude"] = strconv.FormatFloat(md.GPSCoordinates.Longitude, 'f', 6, 64)
	}
	if md.BatteryPercent != nil {
		m["battery-percent"] = strconv.FormatFloat(*md.BatteryPercent, 'f', 1, 64)
	}
	return m
}

// classifyS3Error maps server answers to RemoteRejectionError and everything
// else to a transient network error.
func classifyS3Error(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode != 0 {
		return &RemoteRejectionError{
			StatusCode: resp.StatusCode,
			Status:     strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode),
			Body:       strings.TrimSpace(resp.Code + " " + resp.Message),
		}
	}
	return transient(err)
}
