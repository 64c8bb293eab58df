// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segment

import (
	"github.com/ManuGH/edgecam/internal/log"
	"github.com/ManuGH/edgecam/internal/metrics"
)

// QuotaReport describes one quota enforcement run.
type QuotaReport struct {
	Evicted    []Segment `json:"evicted,omitempty"`
	UsedBytes  int64     `json:"used_bytes"`
	LimitBytes int64     `json:"limit_bytes"`
	// OverBudget is set when the store is still above the limit with nothing
	// evictable left: a single segment larger than the limit, or only
	// segments claimed by uploads.
	OverBudget bool `json:"over_budget"`
}

// EnforceQuota deletes the oldest Pending segment until the aggregate size of
// on-disk segments fits limitBytes. A limit <= 0 disables enforcement.
//
// The last remaining segment is never evicted; if it alone exceeds the limit
// the run is reported OverBudget and logged as a configuration warning.
// Uploading segments count toward usage but are never evicted.
func (s *Store) EnforceQuota(limitBytes int64) (QuotaReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := QuotaReport{LimitBytes: limitBytes}

	s.purgeUploadedLocked()
	segs, err := s.scan()
	if err != nil {
		return report, err
	}
	s.applyOverlayLocked(segs)

	used := TotalBytes(segs)
	report.UsedBytes = used
	if limitBytes <= 0 || used <= limitBytes {
		s.publishUsage(segs)
		return report, nil
	}

	remaining := len(segs)
	kept := make([]Segment, 0, len(segs))
	for i, seg := range segs {
		if used <= limitBytes || remaining <= 1 || seg.Status != StatusPending {
			kept = append(kept, segs[i])
			continue
		}
		if err := s.removeLocked(seg); err != nil {
			report.UsedBytes = used
			s.publishUsage(append(kept, segs[i:]...))
			return report, err
		}
		used -= seg.SizeBytes
		remaining--
		report.Evicted = append(report.Evicted, seg)
		metrics.RecordEviction(seg.SizeBytes)

		s.logger.Warn().
			Str(log.FieldEvent, "store.evicted").
			Str(log.FieldSegmentID, seg.ID).
			Str(log.FieldPath, seg.Path).
			Int64(log.FieldSizeBytes, seg.SizeBytes).
			Time(log.FieldCreatedAt, seg.CreatedAt).
			Int64(log.FieldUsedBytes, used).
			Int64(log.FieldLimitBytes, limitBytes).
			Msg("segment evicted to respect storage quota")
	}

	report.UsedBytes = used
	s.publishUsage(kept)

	if used > limitBytes {
		report.OverBudget = true
		metrics.RecordQuotaWarning()
		s.logger.Warn().
			Str(log.FieldEvent, "store.quota_unreachable").
			Int("segments", len(kept)).
			Int64(log.FieldUsedBytes, used).
			Int64(log.FieldLimitBytes, limitBytes).
			Str("used", humanBytes(used)).
			Str("limit", humanBytes(limitBytes)).
			Msg("storage quota cannot be met; quota is smaller than the retained segments")
	}
	return report, nil
}
