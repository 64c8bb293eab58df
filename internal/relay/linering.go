// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"strings"
	"sync"
)

// maxPartialLine bounds an unterminated line kept between writes.
const maxPartialLine = 4096

// LineRing is a thread-safe ring buffer holding the last N lines written to it.
// Writes may split lines arbitrarily; an unterminated tail is carried over to
// the next write.
type LineRing struct {
	mu      sync.RWMutex
	lines   []string
	head    int
	count   int
	partial strings.Builder
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 64
	}
	return &LineRing{lines: make([]string, capacity)}
}

// Write implements io.Writer.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := string(p)
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			break
		}
		r.partial.WriteString(s[:i])
		r.pushLocked(r.partial.String())
		r.partial.Reset()
		s = s[i+1:]
	}
	if s != "" && r.partial.Len() < maxPartialLine {
		r.partial.WriteString(s)
	}
	return len(p), nil
}

func (r *LineRing) pushLocked(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// LastN returns up to n of the most recent complete lines, oldest first.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	size := len(r.lines)
	start := (r.head - n + size) % size
	for i := 0; i < n; i++ {
		out = append(out, r.lines[(start+i)%size])
	}
	return out
}
