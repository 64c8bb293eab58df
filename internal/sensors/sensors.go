// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sensors exposes best-effort GPS and battery readings.
// Readings are optional: a missing fix or battery yields ok=false, never an error.
package sensors

import (
	"context"
	"sync"
)

// Fix is a GPS position.
type Fix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GPSSource reports the current position if one is known.
type GPSSource interface {
	CurrentFix(ctx context.Context) (Fix, bool)
}

// BatterySource reports the battery charge in percent if one is present.
type BatterySource interface {
	CurrentLevel(ctx context.Context) (float64, bool)
}

// NoGPS never has a fix.
type NoGPS struct{}

func (NoGPS) CurrentFix(context.Context) (Fix, bool) { return Fix{}, false }

// NoBattery reports no battery (mains powered).
type NoBattery struct{}

func (NoBattery) CurrentLevel(context.Context) (float64, bool) { return 0, false }

// StaticGPS reports a fixed, configured position. It can be updated at runtime
// by an external fix feeder.
type StaticGPS struct {
	mu  sync.RWMutex
	fix Fix
	ok  bool
}

// NewStaticGPS returns a source with the given fix.
func NewStaticGPS(lat, lon float64) *StaticGPS {
	return &StaticGPS{fix: Fix{Latitude: lat, Longitude: lon}, ok: true}
}

// Set replaces the current fix.
func (s *StaticGPS) Set(fix Fix) {
	s.mu.Lock()
	s.fix, s.ok = fix, true
	s.mu.Unlock()
}

// Clear drops the fix (signal lost).
func (s *StaticGPS) Clear() {
	s.mu.Lock()
	s.ok = false
	s.mu.Unlock()
}

func (s *StaticGPS) CurrentFix(context.Context) (Fix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fix, s.ok
}
