// Package chatfmt classifies chat and loot lines and renders them as tview
// colour markup.
package chatfmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rivo/tview"
)

// Kind is the display class of a line.
type Kind int

const (
	KindPlain Kind = iota
	KindCombat
	KindEconomy
	KindSpeaker
)

func (k Kind) String() string {
	switch k {
	case KindCombat:
		return "combat"
	case KindEconomy:
		return "economy"
	case KindSpeaker:
		return "speaker"
	default:
		return "plain"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, kind := range []Kind{KindPlain, KindCombat, KindEconomy, KindSpeaker} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown line kind %q", text)
}

// Colour tags used in markup. Speakers get one of two accents: the player's
// own name or everyone else.
const (
	ColorCombat  = "red"
	ColorEconomy = "yellow"
	ColorSelf    = "#ff69b4"
	ColorOther   = "#00bfff"
	colorRepeat  = "gray"
)

const combatMarker = "Attacked by"

var speakerRe = regexp.MustCompile(`(?s)^([^:]+):\s*(.*)$`)

// Line is one formatted chat or loot entry.
type Line struct {
	Raw     string `json:"raw"`
	Kind    Kind   `json:"kind"`
	Speaker string `json:"speaker,omitempty"`
	Body    string `json:"body,omitempty"`
	Self    bool   `json:"self,omitempty"`
	// Count is the number of consecutive identical entries this line stands
	// for; 1 unless Collapse merged repeats.
	Count int `json:"count"`
}

// Color returns the tview colour name for the line, or "" for plain text.
func (l Line) Color() string {
	switch l.Kind {
	case KindCombat:
		return ColorCombat
	case KindEconomy:
		return ColorEconomy
	case KindSpeaker:
		if l.Self {
			return ColorSelf
		}
		return ColorOther
	default:
		return ""
	}
}

// Markup renders the line for a dynamic-colour TextView. All producer text is
// escaped before tags are added.
func (l Line) Markup() string {
	var b strings.Builder
	switch l.Kind {
	case KindCombat, KindEconomy:
		b.WriteString("[" + l.Color() + "]")
		b.WriteString(tview.Escape(l.Raw))
		b.WriteString("[-]")
	case KindSpeaker:
		b.WriteString("[" + l.Color() + "::b]")
		b.WriteString(tview.Escape(l.Speaker))
		b.WriteString("[-::-]: ")
		b.WriteString(tview.Escape(l.Body))
	default:
		b.WriteString(tview.Escape(l.Raw))
	}
	if l.Count > 1 {
		b.WriteString(" [" + colorRepeat + "](x" + strconv.Itoa(l.Count) + ")[-]")
	}
	return b.String()
}

// Classify decides the kind of a raw line. Speaker and body are only set for
// KindSpeaker.
func Classify(raw string) (kind Kind, speaker, body string) {
	if strings.Contains(raw, combatMarker) {
		return KindCombat, "", ""
	}
	if strings.Contains(strings.ToLower(raw), "credits") {
		return KindEconomy, "", ""
	}
	if m := speakerRe.FindStringSubmatch(raw); m != nil {
		return KindSpeaker, m[1], m[2]
	}
	return KindPlain, "", ""
}

// Tail returns the newest n entries of lines (the end of the slice). The
// result shares no memory with lines.
func Tail(lines []string, n int) []string {
	if n <= 0 || len(lines) == 0 {
		return nil
	}
	start := 0
	if len(lines) > n {
		start = len(lines) - n
	}
	out := make([]string, len(lines)-start)
	copy(out, lines[start:])
	return out
}

// Format classifies the newest newestN lines, preserving their order.
func Format(lines []string, newestN int, selfName string) []Line {
	window := Tail(lines, newestN)
	if len(window) == 0 {
		return nil
	}
	out := make([]Line, 0, len(window))
	for _, raw := range window {
		kind, speaker, body := Classify(raw)
		out = append(out, Line{
			Raw:     raw,
			Kind:    kind,
			Speaker: speaker,
			Body:    body,
			Self:    kind == KindSpeaker && speaker == selfName,
			Count:   1,
		})
	}
	return out
}

// Collapse merges runs of identical consecutive lines into one line whose
// Count is the run length. Non-adjacent duplicates are kept.
func Collapse(lines []Line) []Line {
	if len(lines) == 0 {
		return nil
	}
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Count < 1 {
			line.Count = 1
		}
		if n := len(out); n > 0 && out[n-1].Raw == line.Raw {
			out[n-1].Count += line.Count
			continue
		}
		out = append(out, line)
	}
	return out
}

// Join renders lines as newline separated markup.
func Join(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = line.Markup()
	}
	return strings.Join(parts, "\n")
}
