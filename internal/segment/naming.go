// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// nameTimeLayout is the UTC capture time prefix of a finalized segment file.
	nameTimeLayout = "20060102T150405.000Z"

	// OpenSuffix marks files the capture producer is still writing.
	OpenSuffix = ".part"
)

// FormatName builds the finalized file name for a segment: <utc time>_<seq><ext>.
func FormatName(createdAt time.Time, seq uint64, ext string) string {
	return fmt.Sprintf("%s_%06d%s", createdAt.UTC().Format(nameTimeLayout), seq, ext)
}

// ParseName extracts the capture time and sequence from a finalized file name.
// ok is false for names that do not follow FormatName.
func ParseName(name, ext string) (createdAt time.Time, seq uint64, ok bool) {
	if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return time.Time{}, 0, false
	}
	stem := name[:len(name)-len(ext)]
	ts, rawSeq, found := strings.Cut(stem, "_")
	if !found {
		return time.Time{}, 0, false
	}
	t, err := time.Parse(nameTimeLayout, ts)
	if err != nil {
		return time.Time{}, 0, false
	}
	n, err := strconv.ParseUint(rawSeq, 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	return t, n, true
}

// isFinalizedName reports whether name can be a finalized segment in the store:
// matching extension, not hidden (renameio temp files), not an open capture file.
func isFinalizedName(name, ext string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, OpenSuffix) {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
}

func idFromName(name, ext string) string {
	return name[:len(name)-len(ext)]
}
