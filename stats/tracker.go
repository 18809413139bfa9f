// Package stats tracks poller counters (read outcomes, ticks, renders) and the
// latest retained session values for the system pane, the admin endpoints and
// Prometheus.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aodash/session"
	"aodash/state"

	"github.com/dustin/go-humanize"
)

// Tracker tracks poller statistics. All methods are safe for concurrent use.
type Tracker struct {
	// counters live in sync.Map + atomic.Uint64 so per-tick increments don't fight over a mutex
	outcomes sync.Map // outcome label -> *atomic.Uint64
	start    atomic.Int64
	ticks    atomic.Uint64
	renders  atomic.Uint64
	dropped  atomic.Uint64
	lastOK   atomic.Int64 // unix nanos of the last successful read, 0 if none

	xp          atomic.Int64
	credits     atomic.Int64
	latestCrit  atomic.Int64
	biggestCrit atomic.Int64
}

// NewTracker creates a new stats tracker
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// ObserveRead counts one read attempt by outcome.
func (t *Tracker) ObserveRead(outcome state.Outcome, at time.Time) {
	t.ticks.Add(1)
	incrementCounter(&t.outcomes, outcome.String())
	if outcome == state.OutcomeOK {
		t.lastOK.Store(at.UnixNano())
	}
}

// ObserveModel records the counters shown in the latest frame.
func (t *Tracker) ObserveModel(model session.DisplayModel) {
	t.renders.Add(1)
	t.xp.Store(model.XP)
	t.credits.Store(model.Credits)
	t.latestCrit.Store(model.LatestCrit)
	t.biggestCrit.Store(model.BiggestCrit)
}

// IncrementRecorderDrops counts samples the recorder could not queue.
func (t *Tracker) IncrementRecorderDrops() {
	t.dropped.Add(1)
}

// GetOutcomeCounts returns a copy of read outcome counts.
func (t *Tracker) GetOutcomeCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	t.outcomes.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}

// Ticks returns the number of completed poll ticks.
func (t *Tracker) Ticks() uint64 { return t.ticks.Load() }

// Renders returns how many frames were handed to the surface.
func (t *Tracker) Renders() uint64 { return t.renders.Load() }

// RecorderDrops returns how many samples the recorder dropped.
func (t *Tracker) RecorderDrops() uint64 { return t.dropped.Load() }

// LastSuccess returns the time of the last successful read.
func (t *Tracker) LastSuccess() (time.Time, bool) {
	nanos := t.lastOK.Load()
	if nanos == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

// Retained returns the counters from the latest frame.
func (t *Tracker) Retained() session.Retained {
	return session.Retained{
		XP:          t.xp.Load(),
		Credits:     t.credits.Load(),
		LatestCrit:  t.latestCrit.Load(),
		BiggestCrit: t.biggestCrit.Load(),
	}
}

// GetUptime returns how long the tracker has been running
func (t *Tracker) GetUptime() time.Duration {
	start := t.start.Load()
	return time.Since(time.Unix(0, start))
}

// SnapshotLines returns human-readable stats ready for console display.
func (t *Tracker) SnapshotLines() []string {
	lines := make([]string, 0, 2)
	lines = append(lines, formatCounts("Reads", t.GetOutcomeCounts()))
	last := "never"
	if at, ok := t.LastSuccess(); ok {
		last = humanize.Time(at)
	}
	lines = append(lines, fmt.Sprintf("Ticks: %d  Renders: %d  Last read: %s  Uptime: %s",
		t.Ticks(), t.Renders(), last, t.GetUptime().Truncate(time.Second)))
	return lines
}

func formatCounts(label string, counts map[string]uint64) string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(label)
	builder.WriteString(": ")
	for i, key := range keys {
		if i > 0 {
			builder.WriteString(", ")
		}
		fmt.Fprintf(&builder, "%s=%d", key, counts[key])
	}
	if len(keys) == 0 {
		builder.WriteString("(none)")
	}
	return builder.String()
}

func incrementCounter(m *sync.Map, key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	if value, ok := m.Load(key); ok {
		value.(*atomic.Uint64).Add(1)
		return
	}
	counter := &atomic.Uint64{}
	actual, loaded := m.LoadOrStore(key, counter)
	if loaded {
		actual.(*atomic.Uint64).Add(1)
		return
	}
	counter.Add(1)
}
