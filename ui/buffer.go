package ui

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// LogLine is one entry of the system pane.
type LogLine struct {
	At   time.Time
	Text string
}

// LogRingLimits bounds the system pane history.
type LogRingLimits struct {
	MaxLines     int
	MaxBytes     int64
	MaxLineBytes int
}

// logRing stores system pane lines in a ring bounded by count and bytes.
// Append may be called from any goroutine; the oldest lines are evicted.
type logRing struct {
	mu       sync.RWMutex
	lines    []LogLine
	head     int
	count    int
	curBytes int64
	limits   LogRingLimits
	seq      atomic.Uint64

	evicted   atomic.Uint64
	truncated atomic.Uint64
}

func newLogRing(limits LogRingLimits) *logRing {
	if limits.MaxLines <= 0 {
		limits.MaxLines = 500
	}
	if limits.MaxBytes < 0 {
		limits.MaxBytes = 0
	}
	return &logRing{
		lines:  make([]LogLine, limits.MaxLines),
		limits: limits,
	}
}

// Append inserts a line. Lines longer than MaxLineBytes are cut at a rune
// boundary rather than dropped.
func (r *logRing) Append(line LogLine) {
	if r == nil {
		return
	}
	if max := r.limits.MaxLineBytes; max > 0 && len(line.Text) > max {
		line.Text = truncateUTF8(line.Text, max)
		r.truncated.Add(1)
	}
	size := int64(len(line.Text))

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.count >= len(r.lines) && r.count > 0 {
		r.evictOldestLocked()
	}
	if r.limits.MaxBytes > 0 {
		for r.count > 0 && r.curBytes+size > r.limits.MaxBytes {
			r.evictOldestLocked()
		}
	}

	pos := (r.head + r.count) % len(r.lines)
	r.lines[pos] = line
	r.curBytes += size
	r.count++
	r.seq.Add(1)
}

// Snapshot copies the lines oldest first.
func (r *logRing) Snapshot() []LogLine {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LogLine, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.lines[(r.head+i)%len(r.lines)]
	}
	return out
}

// Text renders the ring as pane text.
func (r *logRing) Text() string {
	lines := r.Snapshot()
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = line.Text
	}
	return strings.Join(parts, "\n")
}

// Usage returns (lines, bytes, evicted, truncated).
func (r *logRing) Usage() (int, int64, uint64, uint64) {
	if r == nil {
		return 0, 0, 0, 0
	}
	r.mu.RLock()
	count, bytes := r.count, r.curBytes
	r.mu.RUnlock()
	return count, bytes, r.evicted.Load(), r.truncated.Load()
}

func (r *logRing) evictOldestLocked() {
	if r.count == 0 {
		return
	}
	old := r.lines[r.head]
	r.lines[r.head] = LogLine{}
	r.curBytes -= int64(len(old.Text))
	r.head = (r.head + 1) % len(r.lines)
	r.count--
	r.evicted.Add(1)
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
