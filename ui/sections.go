package ui

import (
	"fmt"
	"strings"
	"time"

	"aodash/chatfmt"
	"aodash/session"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"
)

const (
	progressBarWidth = 40
	placeholder      = "--"
)

// headerText renders the one-line session header.
func headerText(m session.DisplayModel) string {
	parts := []string{
		"Zone " + accentText(tview.Escape(m.Zone)),
		"Level " + optionalCount(m.Level),
		"Ping " + latencyText(m),
		"Online " + optionalCount(m.PlayersOnline),
		"Session " + sessionText(m),
	}
	return strings.Join(parts, "  |  ")
}

// progressText renders the XP total, the cosmetic progress bar and the hourly
// XP rate.
func progressText(m session.DisplayModel) string {
	line1 := fmt.Sprintf("XP %s  (%d%%)  %s", humanize.Comma(m.XP), m.XPPercent, rateText(m.XPPerHour, m.RatesKnown))
	return line1 + "\n" + progressBar(m.XPPercent, progressBarWidth)
}

func creditsText(m session.DisplayModel) string {
	return fmt.Sprintf("Total %s\nRate  %s", humanize.Comma(m.Credits), rateText(m.CreditsPerHour, m.RatesKnown))
}

func critsText(m session.DisplayModel) string {
	return fmt.Sprintf("Latest  %s\nBiggest %s", humanize.Comma(m.LatestCrit), humanize.Comma(m.BiggestCrit))
}

func dpsText(m session.DisplayModel) string {
	return fmt.Sprintf("12s     %s\nSession %s", humanize.CommafWithDigits(m.DPS12s, 1), humanize.CommafWithDigits(m.DPSSession, 1))
}

func lootText(lines []chatfmt.Line) string {
	if len(lines) == 0 {
		return "[gray]No loot yet[-]"
	}
	return chatfmt.Join(lines)
}

func chatText(lines []chatfmt.Line) string {
	if len(lines) == 0 {
		return "[gray]No chat yet[-]"
	}
	return chatfmt.Join(lines)
}

func progressBar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return "[green]" + strings.Repeat("█", filled) + "[-][gray]" + strings.Repeat("░", width-filled) + "[-]"
}

func rateText(perHour float64, known bool) string {
	if !known {
		return placeholder + "/h"
	}
	return humanize.Comma(int64(perHour)) + "/h"
}

func latencyText(m session.DisplayModel) string {
	if !m.LatencyKnown {
		return placeholder
	}
	return fmt.Sprintf("%d ms", m.LatencyMS)
}

func optionalCount(v int64) string {
	if v <= 0 {
		return placeholder
	}
	return humanize.Comma(v)
}

func sessionText(m session.DisplayModel) string {
	if !m.RatesKnown {
		return placeholder
	}
	return formatElapsed(m.Elapsed)
}

// formatElapsed renders a duration as H:MM:SS.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
