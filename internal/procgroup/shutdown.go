// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/metrics"
)

// Terminate stops a process group gracefully.
// It sends SIGTERM, waits up to grace for done to close, then sends SIGKILL and
// waits up to timeout more. done must be closed by whoever owns cmd.Wait().
// It is safe to call on nil or already exited commands.
func Terminate(cmd *exec.Cmd, done <-chan struct{}, grace, timeout time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid

	// 1. SIGTERM to the group
	recordSignal("SIGTERM", Kill(cmd, syscall.SIGTERM))

	select {
	case <-done:
		metrics.IncProcWait("graceful")
		return nil
	case <-time.After(grace):
	}

	// 2. Grace exceeded -> SIGKILL
	log.L().Warn().
		Int(log.FieldPID, pid).
		Dur("grace", grace).
		Str(log.FieldEvent, "procgroup.sigkill").
		Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	recordSignal("SIGKILL", Kill(cmd, syscall.SIGKILL))

	select {
	case <-done:
		metrics.IncProcWait("forced")
		return nil
	case <-time.After(timeout):
		metrics.IncProcWait("stuck")
		return ErrKillFailed
	}
}

func recordSignal(sig string, err error) {
	switch {
	case err == nil:
		metrics.IncProcTerminate(sig, "sent")
	case errors.Is(err, syscall.ESRCH):
		metrics.IncProcTerminate(sig, "esrch")
	default:
		metrics.IncProcTerminate(sig, "error")
	}
}
