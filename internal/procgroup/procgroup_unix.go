// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix && !linux

package procgroup

import "syscall"

// Pdeathsig is linux-only; other unixes rely on the shutdown path alone.
func setParentDeathSignal(_ *syscall.SysProcAttr) {}
