// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sensors

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/edgecam/internal/log"
)

// DefaultPowerSupplyDir is the Linux power supply class directory.
const DefaultPowerSupplyDir = "/sys/class/power_supply"

// SysfsBattery reads the charge of the first battery under a power_supply directory.
type SysfsBattery struct {
	dir string
}

// NewSysfsBattery returns a reader rooted at dir (DefaultPowerSupplyDir when empty).
func NewSysfsBattery(dir string) *SysfsBattery {
	if dir == "" {
		dir = DefaultPowerSupplyDir
	}
	return &SysfsBattery{dir: dir}
}

// CurrentLevel returns the capacity of the first supply whose type is Battery.
func (b *SysfsBattery) CurrentLevel(context.Context) (float64, bool) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0, false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		supply := filepath.Join(b.dir, name)
		kind, err := readTrimmed(filepath.Join(supply, "type"))
		if err != nil || !strings.EqualFold(kind, "Battery") {
			continue
		}
		raw, err := readTrimmed(filepath.Join(supply, "capacity"))
		if err != nil {
			continue
		}
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil || pct < 0 {
			continue
		}
		if pct > 100 {
			pct = 100
		}
		return pct, true
	}
	return 0, false
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- sysfs path under configured root
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// DefaultLowBatteryPercent is the warning threshold when none is configured.
const DefaultLowBatteryPercent = 20

// LowBatteryAlarm logs once each time the battery crosses below the threshold
// and once when it recovers.
type LowBatteryAlarm struct {
	threshold float64
	logger    zerolog.Logger

	mu  sync.Mutex
	low bool
}

// NewLowBatteryAlarm builds an alarm for threshold percent (DefaultLowBatteryPercent when <= 0).
func NewLowBatteryAlarm(threshold float64) *LowBatteryAlarm {
	if threshold <= 0 {
		threshold = DefaultLowBatteryPercent
	}
	return &LowBatteryAlarm{threshold: threshold, logger: log.WithComponent("sensors")}
}

// Observe feeds one reading and reports whether the battery is currently low.
func (a *LowBatteryAlarm) Observe(level float64, ok bool) bool {
	if !ok {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	low := level < a.threshold
	if low == a.low {
		return low
	}
	a.low = low
	if low {
		a.logger.Warn().
			Str(log.FieldEvent, "battery.low").
			Float64("battery_percent", level).
			Float64("threshold_percent", a.threshold).
			Msg("battery below threshold; consider charging or external power")
	} else {
		a.logger.Info().
			Str(log.FieldEvent, "battery.recovered").
			Float64("battery_percent", level).
			Msg("battery level sufficient")
	}
	return low
}
