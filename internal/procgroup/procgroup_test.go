// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package procgroup

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWaited(t *testing.T, script string) (*exec.Cmd, chan struct{}) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	return cmd, done
}

func TestSet_MakesGroupLeader(t *testing.T) {
	cmd, done := startWaited(t, "sleep 5")
	defer func() {
		_ = Kill(cmd, syscall.SIGKILL)
		<-done
	}()

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid)
	assert.Equal(t, syscall.SIGKILL, cmd.SysProcAttr.Pdeathsig)
}

func TestTerminate_GracefulExit(t *testing.T) {
	cmd, done := startWaited(t, "sleep 30")

	start := time.Now()
	err := Terminate(cmd, done, 2*time.Second, time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "SIGTERM should stop sleep well before the grace period")
}

func TestTerminate_EscalatesToSIGKILL(t *testing.T) {
	cmd, done := startWaited(t, "trap '' TERM; while true; do sleep 1; done")
	// Give the shell a moment to install the trap.
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	err := Terminate(cmd, done, 200*time.Millisecond, 2*time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	select {
	case <-done:
	default:
		t.Fatal("process should have exited after SIGKILL")
	}
}

func TestTerminate_NilCommand(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Millisecond, time.Millisecond))
	assert.NoError(t, Kill(nil, syscall.SIGTERM))
}
