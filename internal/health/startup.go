// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/edgecam/internal/config"
	"github.com/ManuGH/edgecam/internal/log"
)

// PerformStartupChecks validates the environment before the daemon starts.
// A missing relay binary is only a warning: launches are retried every tick.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str("event", "startup.checks").Msg("running pre-flight startup checks")

	if err := checkSegmentDir(logger, cfg.SegmentDir); err != nil {
		return fmt.Errorf("segment directory check failed: %w", err)
	}

	if cfg.RelayTargetURL != "" {
		bin := strings.TrimSpace(cfg.Relay.Bin)
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn().
				Err(err).
				Str("event", "startup.relay_bin_missing").
				Str("bin", bin).
				Msg("relay binary not found; relay launches will fail until it is installed")
		}
	} else {
		logger.Info().Str("event", "startup.relay_disabled").Msg("relay target not configured; live relay disabled")
	}

	if cfg.UploadEndpoint == "" {
		logger.Warn().Str("event", "startup.offload_disabled").Msg("upload endpoint not configured; segments stay local until evicted")
	}

	tempDir := filepath.Clean(os.TempDir())
	segDir := filepath.Clean(cfg.SegmentDir)
	if tempDir != "." && (segDir == tempDir || strings.HasPrefix(segDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("segment_dir", cfg.SegmentDir).
			Msg("segment directory is under temp; recordings may be lost on reboot")
	}
	return nil
}

func checkSegmentDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("segment directory is writable")
	return nil
}
