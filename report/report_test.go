package report

import (
	"testing"
	"time"

	"aodash/chatfmt"
	"aodash/session"

	"github.com/stretchr/testify/assert"
)

func TestRenderFullModel(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	m := session.DisplayModel{
		GeneratedAt:    now,
		Zone:           "Omni-1 Trade",
		LatencyMS:      42,
		LatencyKnown:   true,
		Level:          30,
		XP:             123456,
		XPPercent:      23,
		Credits:        2500,
		BiggestCrit:    4096,
		DPS12s:         88.04,
		SessionStart:   now.Add(-90 * time.Minute),
		Elapsed:        90 * time.Minute,
		RatesKnown:     true,
		XPPerHour:      82304,
		CreditsPerHour: 1666.6,
		Loot:           chatfmt.Collapse(chatfmt.Format([]string{"Nano", "Nano", "Gem"}, 10, "")),
		Chat:           chatfmt.Format([]string{"Rustbank: hi", "Attacked by Leet", "You got 5 credits"}, 50, "Rustbank"),
	}

	out := Render(m, Options{Source: "../shared/state.json"})
	assert.Contains(t, out, "source: ../shared/state.json")
	assert.Contains(t, out, "Omni-1 Trade")
	assert.Contains(t, out, "42 ms")
	assert.Contains(t, out, "123,456")
	assert.Contains(t, out, "23%")
	assert.Contains(t, out, "82,304")
	assert.Contains(t, out, "1,666")
	assert.Contains(t, out, "4,096")
	assert.Contains(t, out, "1h30m0s")
	assert.Contains(t, out, "started 1 hour ago")
	assert.Contains(t, out, "Nano (x2)")
	assert.Contains(t, out, "Rustbank: hi")
	assert.Contains(t, out, "Attacked by Leet")
	assert.Contains(t, out, "[")
}

func TestRenderEmptyModel(t *testing.T) {
	out := Render(session.DisplayModel{Zone: "Unknown"}, Options{})
	assert.Contains(t, out, "Unknown")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "(none)")
	assert.NotContains(t, out, "source:")
}

func TestRenderLimitsChat(t *testing.T) {
	m := session.DisplayModel{Chat: chatfmt.Format([]string{"first", "second", "third"}, 50, "")}
	out := Render(m, Options{ChatLines: 1})
	assert.Contains(t, out, "third")
	assert.NotContains(t, out, "first")
}

func TestProgressBarClamps(t *testing.T) {
	s := newStyles()
	assert.Equal(t, "[----]", progressBar(-1, 4, s))
	assert.Equal(t, "[====]", progressBar(400, 4, s))
	assert.Equal(t, "[==--]", progressBar(50, 4, s))
}
