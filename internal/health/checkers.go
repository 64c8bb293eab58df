// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"time"
)

// DirChecker checks that the segment directory exists.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a checker for directory existence
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: "directory present"}
}

// TickChecker reports a stalled control loop.
type TickChecker struct {
	lastTick func() time.Time
	maxAge   time.Duration
}

// NewTickChecker flags the loop unhealthy when no tick completed within maxAge.
func NewTickChecker(lastTick func() time.Time, maxAge time.Duration) *TickChecker {
	return &TickChecker{lastTick: lastTick, maxAge: maxAge}
}

func (c *TickChecker) Name() string { return "tick_loop" }

func (c *TickChecker) Check(context.Context) CheckResult {
	last := c.lastTick()
	if last.IsZero() {
		return CheckResult{Status: StatusDegraded, Message: "no tick completed yet"}
	}
	age := time.Since(last)
	if age > c.maxAge {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("last tick %s ago (limit %s)", age.Round(time.Second), c.maxAge),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "ticking"}
}

// FuncChecker adapts a function to Checker.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewFuncChecker wraps fn under name.
func NewFuncChecker(name string, fn func(ctx context.Context) CheckResult) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult { return c.fn(ctx) }
