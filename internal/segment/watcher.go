// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ManuGH/edgecam/internal/log"
)

const defaultWatchDebounce = 250 * time.Millisecond

// Watch enforces the quota whenever an external producer renames a finalized
// segment into the directory. Bursts of events are coalesced by debounce.
// It blocks until ctx is canceled.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch segment dir %s: %w", s.dir, err)
	}

	s.logger.Info().
		Str(log.FieldEvent, "store.watcher_started").
		Str(log.FieldPath, s.dir).
		Msg("watching segment directory")

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str(log.FieldEvent, "store.watcher_stopped").Msg("segment watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !isFinalizedName(filepath.Base(event.Name), s.ext) {
				continue
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			s.logger.Debug().
				Str(log.FieldEvent, "store.segments_arrived").
				Int("events", pending).
				Msg("finalized segments detected")
			pending = 0
			if limit := s.Quota(); limit > 0 {
				if _, err := s.EnforceQuota(limit); err != nil {
					s.logger.Error().
						Err(err).
						Str(log.FieldEvent, "store.quota_failed").
						Msg("quota enforcement after external finalize failed")
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().
				Err(err).
				Str(log.FieldEvent, "store.watcher_error").
				Msg("segment watcher error")
		}
	}
}
