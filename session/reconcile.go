package session

import (
	"strings"
	"time"

	"aodash/chatfmt"
	"aodash/state"
)

const (
	DefaultChatLines = 50
	DefaultLootLines = 10
	unknownZone      = "Unknown"
)

// Options controls formatting of a DisplayModel.
type Options struct {
	SelfName     string
	ChatLines    int
	LootLines    int
	Progress     ProgressPolicy
	CollapseLoot bool
	CollapseChat bool
}

// DefaultOptions returns the window sizes the dashboard has always used.
func DefaultOptions() Options {
	return Options{
		ChatLines:    DefaultChatLines,
		LootLines:    DefaultLootLines,
		Progress:     ProgressThousands,
		CollapseLoot: true,
	}
}

// DisplayModel is everything the presenter needs for one frame.
type DisplayModel struct {
	GeneratedAt time.Time `json:"generated_at"`

	Zone          string `json:"zone"`
	LatencyMS     int64  `json:"latency_ms"`
	LatencyKnown  bool   `json:"latency_known"`
	Level         int64  `json:"level"`
	PlayersOnline int64  `json:"players_online"`

	XP          int64 `json:"xp"`
	XPPercent   int   `json:"xp_percent"`
	Credits     int64 `json:"credits"`
	LatestCrit  int64 `json:"latest_crit"`
	BiggestCrit int64 `json:"biggest_crit"`

	DPS12s     float64 `json:"dps_12s"`
	DPSSession float64 `json:"dps_session"`

	SessionStart   time.Time     `json:"session_start"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	RatesKnown     bool          `json:"rates_known"`
	XPPerHour      float64       `json:"xp_per_hour"`
	CreditsPerHour float64       `json:"credits_per_hour"`

	Loot []chatfmt.Line `json:"loot"`
	Chat []chatfmt.Line `json:"chat"`
}

// Reconcile merges snap into prev and derives the display model. It is a pure
// function of its arguments.
func Reconcile(prev Retained, snap state.Snapshot, now time.Time, opts Options) (Retained, DisplayModel) {
	next := prev.Merge(snap)

	progress := opts.Progress
	if progress == nil {
		progress = ProgressThousands
	}

	zone := strings.TrimSpace(snap.Zone)
	if zone == "" {
		zone = unknownZone
	}

	model := DisplayModel{
		GeneratedAt:   now,
		Zone:          zone,
		LatencyMS:     snap.LatencyMS,
		LatencyKnown:  snap.Has(state.FieldLatency),
		Level:         snap.Level,
		PlayersOnline: snap.PlayersOnline,
		XP:            next.XP,
		XPPercent:     progress.Percent(next.XP),
		Credits:       next.Credits,
		LatestCrit:    next.LatestCrit,
		BiggestCrit:   next.BiggestCrit,
		DPS12s:        snap.DPS12s,
		DPSSession:    snap.DPSSession,
	}

	if snap.StartTime > 0 {
		start := time.Unix(snap.StartTime, 0)
		model.SessionStart = start
		model.Elapsed = max(now.Sub(start), 0)
		model.RatesKnown = true
		model.XPPerHour = PerHour(next.XP, start, now)
		model.CreditsPerHour = PerHour(next.Credits, start, now)
	}

	model.Loot = chatfmt.Format(snap.RecentLoot, opts.LootLines, opts.SelfName)
	if opts.CollapseLoot {
		model.Loot = chatfmt.Collapse(model.Loot)
	}
	model.Chat = chatfmt.Format(snap.ChatHistory, opts.ChatLines, opts.SelfName)
	if opts.CollapseChat {
		model.Chat = chatfmt.Collapse(model.Chat)
	}
	return next, model
}

// PerHour projects value accumulated since start to an hourly rate. Elapsed
// time below one second (including a start in the future) counts as one
// second, so the result is always finite and non-negative.
func PerHour(value int64, start, now time.Time) float64 {
	if value <= 0 {
		return 0
	}
	elapsed := now.Sub(start).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	return float64(value) / elapsed * 3600
}
