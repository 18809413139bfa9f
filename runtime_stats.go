package main

import (
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
)

// gcWindow remembers where the previous stats line left off in the runtime's
// GC pause ring so each line reports only the pauses since the last one.
// Only the stats goroutine touches it.
type gcWindow struct {
	lastNumGC uint32
	primed    bool
}

// pauses returns the pauses recorded since the previous call, newest first.
// The first call only primes the window. truncated reports that more GCs
// happened than the ring retains.
func (w *gcWindow) pauses(mem *runtime.MemStats) (out []time.Duration, truncated bool) {
	if mem == nil {
		return nil, false
	}
	if !w.primed || mem.NumGC <= w.lastNumGC {
		w.primed = true
		w.lastNumGC = max(w.lastNumGC, mem.NumGC)
		return nil, false
	}
	n := int(mem.NumGC - w.lastNumGC)
	w.lastNumGC = mem.NumGC

	ring := len(mem.PauseNs)
	if n > ring {
		n = ring
		truncated = true
	}
	out = make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		idx := (int(mem.NumGC) - 1 - i) % ring
		if idx < 0 {
			idx += ring
		}
		if ns := mem.PauseNs[idx]; ns > 0 {
			out = append(out, time.Duration(ns))
		}
	}
	return out, truncated
}

func percentile99(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted[int(float64(len(sorted)-1)*0.99)]
}

// runtimeLine summarizes heap use and GC pauses for the periodic stats log.
func (w *gcWindow) runtimeLine(mem *runtime.MemStats) string {
	pauses, truncated := w.pauses(mem)
	gc := "gc idle"
	if len(pauses) > 0 {
		gc = fmt.Sprintf("gc p99=%s n=%d", percentile99(pauses), len(pauses))
		if truncated {
			gc += "+"
		}
	}
	return fmt.Sprintf("Runtime: heap=%s goroutines=%d %s",
		humanize.IBytes(mem.HeapAlloc), runtime.NumGoroutine(), gc)
}
