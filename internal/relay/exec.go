// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package relay

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/ManuGH/edgecam/internal/procgroup"
)

const (
	DefaultBin         = "ffmpeg"
	DefaultInput       = "/dev/video0"
	DefaultGracePeriod = 5 * time.Second
	defaultKillTimeout = 2 * time.Second
	stderrTailLines    = 64
)

// ExecConfig configures the relay command line.
type ExecConfig struct {
	Bin         string
	Input       string
	Target      string
	ExtraArgs   []string
	GracePeriod time.Duration
	KillTimeout time.Duration
}

// BuildArgs returns the ffmpeg arguments that push input to target as FLV.
// Extra args are placed before the output options.
func BuildArgs(input, target string, extra []string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "warning",
		"-i", input,
		"-c:v", "libx264",
		"-preset", "veryfast",
	}
	args = append(args, extra...)
	return append(args, "-f", "flv", target)
}

// ExecLauncher starts the relay binary in its own process group.
type ExecLauncher struct {
	cfg ExecConfig
}

// NewExecLauncher validates cfg and fills defaults.
func NewExecLauncher(cfg ExecConfig) (*ExecLauncher, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("relay target url is required")
	}
	if cfg.Bin == "" {
		cfg.Bin = DefaultBin
	}
	if cfg.Input == "" {
		cfg.Input = DefaultInput
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = defaultKillTimeout
	}
	return &ExecLauncher{cfg: cfg}, nil
}

// Args returns the argument vector passed to the binary.
func (l *ExecLauncher) Args() []string {
	return BuildArgs(l.cfg.Input, l.cfg.Target, l.cfg.ExtraArgs)
}

// Launch starts the relay. The process is not bound to ctx: it lives until
// Stop is called or it exits on its own.
func (l *ExecLauncher) Launch(ctx context.Context) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LaunchError{Bin: l.cfg.Bin, Err: err}
	}
	bin, err := exec.LookPath(l.cfg.Bin)
	if err != nil {
		return nil, &LaunchError{Bin: l.cfg.Bin, Err: err}
	}

	ring := NewLineRing(stderrTailLines)
	cmd := exec.Command(bin, l.Args()...) // #nosec G204 -- operator-configured relay binary
	cmd.Stderr = ring
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Bin: l.cfg.Bin, Err: err}
	}

	p := &execProcess{
		cmd:         cmd,
		stderr:      ring,
		done:        make(chan struct{}),
		grace:       l.cfg.GracePeriod,
		killTimeout: l.cfg.KillTimeout,
	}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd         *exec.Cmd
	stderr      *LineRing
	done        chan struct{}
	err         error
	grace       time.Duration
	killTimeout time.Duration
}

func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *execProcess) StderrTail(n int) []string { return p.stderr.LastN(n) }

// Stop sends SIGTERM to the process group and escalates to SIGKILL after the
// grace period. A canceled ctx skips the grace period.
func (p *execProcess) Stop(ctx context.Context) error {
	if exited(p) {
		return nil
	}
	grace := p.grace
	if ctx.Err() != nil {
		grace = 0
	} else if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < grace {
			grace = max(left, 0)
		}
	}
	return procgroup.Terminate(p.cmd, p.done, grace, p.killTimeout)
}
