// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticChecker(name string, status Status) Checker {
	return NewFuncChecker(name, func(context.Context) CheckResult {
		return CheckResult{Status: status}
	})
}

func TestHealth_NonVerboseOmitsChecks(t *testing.T) {
	m := NewManager("1.2.3")
	m.RegisterChecker(staticChecker("broken", StatusUnhealthy))

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Nil(t, resp.Checks)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
}

func TestHealth_VerboseAggregates(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(staticChecker("a", StatusHealthy))
	m.RegisterChecker(staticChecker("b", StatusDegraded))

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	require.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["b"].Status)

	m.RegisterChecker(staticChecker("c", StatusUnhealthy))
	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestReady_DegradedStaysReady(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(staticChecker("connectivity", StatusDegraded))
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(staticChecker("segment_dir", StatusUnhealthy))
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("dev")
	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	m.RegisterChecker(staticChecker("segment_dir", StatusUnhealthy))
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Equal(t, StatusUnhealthy, body.Checks["segment_dir"].Status)
}

func TestServeHealth_AlwaysOK(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(staticChecker("segment_dir", StatusUnhealthy))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	assert.Contains(t, body.Checks, "segment_dir")
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusHealthy, NewDirChecker("segment_dir", dir).Check(context.Background()).Status)

	missing := NewDirChecker("segment_dir", filepath.Join(dir, "missing")).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, missing.Status)
	assert.Equal(t, "directory not found", missing.Error)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	assert.Equal(t, StatusUnhealthy, NewDirChecker("segment_dir", file).Check(context.Background()).Status)
}

func TestTickChecker(t *testing.T) {
	var last time.Time
	c := NewTickChecker(func() time.Time { return last }, time.Minute)
	assert.Equal(t, "tick_loop", c.Name())
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	last = time.Now()
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	last = time.Now().Add(-2 * time.Minute)
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}
