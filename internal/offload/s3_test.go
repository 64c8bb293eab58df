// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package offload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/edgecam/internal/sensors"
)

type s3Request struct {
	method      string
	path        string
	deviceID    string
	latitude    string
	contentType string
}

func fakeS3(t *testing.T, status int) (*httptest.Server, <-chan s3Request) {
	t.Helper()
	reqs := make(chan s3Request, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case reqs <- s3Request{
			method:      r.Method,
			path:        r.URL.Path,
			deviceID:    r.Header.Get("X-Amz-Meta-Device-Id"),
			latitude:    r.Header.Get("X-Amz-Meta-Gps-Latitude"),
			contentType: r.Header.Get("Content-Type"),
		}:
		default:
		}
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>AccessDenied</Code><Message>Access Denied.</Message></Error>`)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func newTestS3Uploader(t *testing.T, srv *httptest.Server) *S3Uploader {
	t.Helper()
	up, err := NewS3Uploader(S3Config{
		Endpoint:  srv.URL,
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
		Bucket:    "edge-archive",
		Prefix:    "/cams/",
	})
	require.NoError(t, err)
	return up
}

func TestS3Uploader_PutsObjectUnderDevicePrefix(t *testing.T) {
	srv, reqs := fakeS3(t, http.StatusOK)
	up := newTestS3Uploader(t, srv)

	seg := fileSegment(t, "video-bytes")
	md := Metadata{
		Filename:       seg.Filename(),
		Timestamp:      epoch,
		DeviceID:       "cam-01",
		GPSCoordinates: &sensors.Fix{Latitude: 37.7749, Longitude: -122.4194},
		SizeBytes:      seg.SizeBytes,
	}
	require.NoError(t, up.Upload(context.Background(), seg, md))

	r := <-reqs
	assert.Equal(t, http.MethodPut, r.method)
	assert.Equal(t, "/edge-archive/cams/cam-01/"+seg.Filename(), r.path)
	assert.Equal(t, "cam-01", r.deviceID)
	assert.Equal(t, "37.774900", r.latitude)
	assert.Equal(t, "video/mp4", r.contentType)
}

func TestContentType_FollowsSegmentExtension(t *testing.T) {
	assert.Equal(t, "video/mp4", contentType("20250601T120000.000Z_000001.mp4"))
	assert.Equal(t, "video/x-matroska", contentType("20250601T120000.000Z_000001.MKV"))
	assert.Equal(t, "video/mp2t", contentType("seg.ts"))
	assert.Equal(t, "application/octet-stream", contentType("seg.zzqx"))
	assert.Equal(t, "application/octet-stream", contentType("noext"))
}

func TestS3Uploader_ErrorResponseIsRemoteRejection(t *testing.T) {
	srv, _ := fakeS3(t, http.StatusForbidden)
	up := newTestS3Uploader(t, srv)

	seg := fileSegment(t, "video-bytes")
	err := up.Upload(context.Background(), seg, Metadata{Filename: seg.Filename(), DeviceID: "cam-01"})

	var rej *RemoteRejectionError
	require.True(t, errors.As(err, &rej), "got %v", err)
	assert.Equal(t, http.StatusForbidden, rej.StatusCode)
	assert.True(t, strings.Contains(rej.Body, "AccessDenied"))
	assert.FileExists(t, seg.Path)
}

func TestS3Uploader_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	up, err := NewS3Uploader(S3Config{
		Endpoint:  endpoint,
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
		Bucket:    "edge-archive",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	seg := fileSegment(t, "x")
	err = up.Upload(ctx, seg, Metadata{Filename: seg.Filename()})
	require.Error(t, err)
	assert.NotEqual(t, ClassRejected, Classify(err))
}

func TestS3Uploader_ObjectKeyDefaultsDevice(t *testing.T) {
	up := &S3Uploader{prefix: "cams"}
	assert.Equal(t, "cams/unknown/a.mp4", up.ObjectKey(Metadata{Filename: "a.mp4"}))
	up.prefix = ""
	assert.Equal(t, "dev/a.mp4", up.ObjectKey(Metadata{Filename: "a.mp4", DeviceID: "dev"}))
}
