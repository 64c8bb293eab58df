// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"
	"errors"
	"fmt"
)

// ErrLaunchFailed marks a relay process that could not be started.
var ErrLaunchFailed = errors.New("relay launch failed")

// LaunchError describes a failed launch of the relay binary.
type LaunchError struct {
	Bin string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Bin, e.Err)
}

// Unwrap exposes both ErrLaunchFailed and the underlying cause.
func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunchFailed, e.Err}
}

// Process is a running relay owned by exactly one Controller.
type Process interface {
	Pid() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Err is the exit error; valid after Done is closed.
	Err() error
	// Stop terminates the process and waits for it to exit.
	Stop(ctx context.Context) error
}

// Launcher starts relay processes.
type Launcher interface {
	Launch(ctx context.Context) (Process, error)
}

// stderrTailer is implemented by processes that keep their last output lines.
type stderrTailer interface {
	StderrTail(n int) []string
}

func exited(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}
