// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func ok() error   { return nil }

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test_threshold", 3, 30*time.Second, WithClock(clock))

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, clock.now.Add(30*time.Second), cb.RetryAt())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test_reset", 2, time.Minute)
	assert.Error(t, cb.Execute(fail))
	assert.NoError(t, cb.Execute(ok))
	assert.Error(t, cb.Execute(fail))
	assert.Equal(t, StateClosed, cb.State(), "failures are consecutive, not cumulative")
}

func TestCircuitBreaker_HalfOpenBehavior(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test_half_open", 1, 10*time.Second, WithClock(clock))

	require.Error(t, cb.Execute(fail))
	require.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(10 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen, "only one probe while half-open")

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, clock.now.Add(10*time.Second), cb.RetryAt())

	clock.now = clock.now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.RetryAt().IsZero())
}

func TestCircuitBreaker_LateFailureWhileOpenExtendsCooldown(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test_late", 1, 10*time.Second, WithClock(clock))
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(5 * time.Second)
	cb.RecordFailure()
	assert.Equal(t, clock.now.Add(10*time.Second), cb.RetryAt())
}

func TestCircuitBreaker_CancelReleasesHalfOpenProbe(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test_cancel", 1, 10*time.Second, WithClock(clock))
	cb.RecordFailure()

	clock.now = clock.now.Add(10 * time.Second)
	require.NoError(t, cb.Allow())
	require.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	cb.Cancel()
	assert.Equal(t, StateHalfOpen, cb.State(), "cancel records no outcome")
	assert.NoError(t, cb.Allow(), "next probe is admitted")
}
