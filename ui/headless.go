package ui

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"aodash/chatfmt"
	"aodash/session"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/xxh3"
)

// Headless logs a one-line summary whenever the rendered model changes. It is
// used when stdout is not a terminal or ui.mode is headless.
type Headless struct {
	logf func(format string, args ...any)

	mu      sync.Mutex
	last    uint64
	seeded  bool
	printed uint64

	done     chan struct{}
	stopOnce sync.Once
}

// NewHeadless returns a headless surface. A nil logf logs through the
// standard logger.
func NewHeadless(logf func(format string, args ...any)) *Headless {
	if logf == nil {
		logf = log.Printf
	}
	return &Headless{logf: logf, done: make(chan struct{})}
}

func (h *Headless) Render(model session.DisplayModel) {
	if h == nil {
		return
	}
	sum := xxh3.HashString(summary(model, false))
	h.mu.Lock()
	if h.seeded && sum == h.last {
		h.mu.Unlock()
		return
	}
	h.last = sum
	h.seeded = true
	h.printed++
	h.mu.Unlock()
	h.logf("Dashboard: %s", Summary(model))
}

// Printed returns how many summaries were emitted.
func (h *Headless) Printed() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.printed
}

func (h *Headless) SystemWriter() io.Writer { return nil }

func (h *Headless) WaitReady() {}

func (h *Headless) Done() <-chan struct{} { return h.done }

func (h *Headless) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Summary renders model as a single plain-text line.
func Summary(m session.DisplayModel) string {
	return summary(m, true)
}

// summary without rates is the change fingerprint: elapsed time and the
// per-hour rates derived from it move every tick even when nothing happened.
func summary(m session.DisplayModel, withRates bool) string {
	xp := fmt.Sprintf("xp=%s (%d%%)", humanize.Comma(m.XP), m.XPPercent)
	credits := "credits=" + humanize.Comma(m.Credits)
	if withRates {
		xp = fmt.Sprintf("xp=%s (%d%%, %s)", humanize.Comma(m.XP), m.XPPercent, rateText(m.XPPerHour, m.RatesKnown))
		credits = fmt.Sprintf("credits=%s (%s)", humanize.Comma(m.Credits), rateText(m.CreditsPerHour, m.RatesKnown))
	}
	parts := []string{
		"zone=" + m.Zone,
		xp,
		credits,
		fmt.Sprintf("crit=%s/%s", humanize.Comma(m.LatestCrit), humanize.Comma(m.BiggestCrit)),
		fmt.Sprintf("dps=%s/%s", humanize.CommafWithDigits(m.DPS12s, 1), humanize.CommafWithDigits(m.DPSSession, 1)),
	}
	if m.LatencyKnown {
		parts = append(parts, fmt.Sprintf("ping=%dms", m.LatencyMS))
	}
	if last, ok := lastLine(m.Loot); ok {
		parts = append(parts, "loot="+last)
	}
	if last, ok := lastLine(m.Chat); ok {
		parts = append(parts, "chat="+last)
	}
	return strings.Join(parts, " ")
}

func lastLine(lines []chatfmt.Line) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}
	last := lines[len(lines)-1]
	if last.Count > 1 {
		return fmt.Sprintf("%q x%d", last.Raw, last.Count), true
	}
	return fmt.Sprintf("%q", last.Raw), true
}
