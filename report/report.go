// Package report renders a one-shot, styled text summary of a display model
// for the snapshot command.
package report

import (
	"fmt"
	"strings"
	"time"

	"aodash/chatfmt"
	"aodash/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const barWidth = 24

// Options controls the report.
type Options struct {
	Source string
	// ChatLines limits the chat section; zero shows everything in the model.
	ChatLines int
}

// Render returns the report for m.
func Render(m session.DisplayModel, opts Options) string {
	s := newStyles()
	lines := []string{s.title.Render("Anarchy Online session")}
	if opts.Source != "" {
		lines = append(lines, s.header.Render("source: "+opts.Source))
	}
	if !m.GeneratedAt.IsZero() {
		lines = append(lines, s.header.Render("read at "+m.GeneratedAt.Format(time.DateTime)))
	}

	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left,
		row(s, "Zone", m.Zone, ""),
		row(s, "Level", countOrDash(m.Level), ""),
		row(s, "Ping", latency(m), ""),
		row(s, "Online", countOrDash(m.PlayersOnline), ""),
		row(s, "Session", sessionLength(m), sessionStart(m)),
	)))

	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.label.Render("XP"),
			s.value.Render(humanize.Comma(m.XP)),
			" ",
			progressBar(m.XPPercent, barWidth, s),
			" ",
			s.meta.Render(fmt.Sprintf("%d%%", m.XPPercent)),
		),
		row(s, "XP/hour", perHour(m.XPPerHour, m.RatesKnown), ""),
		row(s, "Credits", humanize.Comma(m.Credits), ""),
		row(s, "Credits/hour", perHour(m.CreditsPerHour, m.RatesKnown), ""),
		row(s, "Latest crit", humanize.Comma(m.LatestCrit), ""),
		row(s, "Biggest crit", humanize.Comma(m.BiggestCrit), ""),
		row(s, "DPS (12s)", humanize.CommafWithDigits(m.DPS12s, 1), ""),
		row(s, "DPS (session)", humanize.CommafWithDigits(m.DPSSession, 1), ""),
	)))

	lines = append(lines, s.section.Render(feed(s, "Loot", m.Loot, 0)))
	lines = append(lines, s.section.Render(feed(s, "Chat", m.Chat, opts.ChatLines)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func row(s styles, label, value, meta string) string {
	parts := []string{s.label.Render(label), s.value.Render(value)}
	if meta != "" {
		parts = append(parts, " ", s.meta.Render(meta))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func feed(s styles, title string, lines []chatfmt.Line, limit int) string {
	out := []string{s.value.Render(title)}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	if len(lines) == 0 {
		out = append(out, s.empty.Render("  (none)"))
		return lipgloss.JoinVertical(lipgloss.Left, out...)
	}
	for _, line := range lines {
		out = append(out, "  "+styledLine(s, line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func styledLine(s styles, line chatfmt.Line) string {
	var text string
	switch line.Kind {
	case chatfmt.KindCombat:
		text = s.combat.Render(line.Raw)
	case chatfmt.KindEconomy:
		text = s.economy.Render(line.Raw)
	case chatfmt.KindSpeaker:
		speaker := s.other
		if line.Self {
			speaker = s.self
		}
		text = speaker.Render(line.Speaker) + ": " + line.Body
	default:
		text = line.Raw
	}
	if line.Count > 1 {
		text += " " + s.repeat.Render(fmt.Sprintf("(x%d)", line.Count))
	}
	return text
}

func progressBar(percent, width int, s styles) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return s.bracket.Render("[") +
		s.barFill.Render(strings.Repeat("=", filled)) +
		s.barEmpty.Render(strings.Repeat("-", width-filled)) +
		s.bracket.Render("]")
}

func perHour(v float64, known bool) string {
	if !known {
		return "n/a"
	}
	return humanize.Comma(int64(v))
}

func countOrDash(v int64) string {
	if v <= 0 {
		return "-"
	}
	return humanize.Comma(v)
}

func latency(m session.DisplayModel) string {
	if !m.LatencyKnown {
		return "-"
	}
	return fmt.Sprintf("%d ms", m.LatencyMS)
}

func sessionLength(m session.DisplayModel) string {
	if !m.RatesKnown {
		return "unknown"
	}
	d := m.Elapsed.Truncate(time.Second)
	return d.String()
}

func sessionStart(m session.DisplayModel) string {
	if m.SessionStart.IsZero() {
		return ""
	}
	return "started " + humanize.RelTime(m.SessionStart, m.GeneratedAt, "ago", "from now")
}
