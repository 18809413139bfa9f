package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/zeebo/xxh3"
)

// Viewport is the slice of a scrollable text widget that whole-text
// replacement needs.
type Viewport interface {
	AtBottom() bool
	Offset() (row, col int)
	SetContent(text string)
	ScrollToEnd()
	ScrollTo(row, col int)
}

// ReplacePreservingScroll swaps the viewport text. A viewport that was showing
// its last line keeps following the end; any other viewport keeps its offset.
func ReplacePreservingScroll(v Viewport, text string) {
	if v == nil {
		return
	}
	atBottom := v.AtBottom()
	row, col := v.Offset()
	v.SetContent(text)
	if atBottom {
		v.ScrollToEnd()
		return
	}
	v.ScrollTo(row, col)
}

// textViewport adapts a tview.TextView. tview only settles the final offset of
// a ScrollToEnd during Draw, so the adapter remembers that it is following the
// end instead of asking the widget between frames.
type textViewport struct {
	tv     *tview.TextView
	lines  int
	follow bool
}

func newTextViewport(tv *tview.TextView) *textViewport {
	return &textViewport{tv: tv, follow: true}
}

func (v *textViewport) AtBottom() bool {
	if v.follow {
		return true
	}
	_, _, _, height := v.tv.GetInnerRect()
	if height <= 0 {
		return true
	}
	row, _ := v.tv.GetScrollOffset()
	return row+height >= v.lines
}

func (v *textViewport) Offset() (int, int) {
	return v.tv.GetScrollOffset()
}

func (v *textViewport) SetContent(text string) {
	v.lines = lineCount(text)
	v.tv.SetText(text)
}

func (v *textViewport) ScrollToEnd() {
	v.follow = true
	v.tv.ScrollToEnd()
}

func (v *textViewport) ScrollTo(row, col int) {
	v.follow = false
	v.tv.ScrollTo(row, col)
}

// HandleKey applies a scroll key. End re-enters follow mode; any other
// movement pins the offset until the user returns to the bottom.
func (v *textViewport) HandleKey(event *tcell.EventKey) bool {
	if event == nil {
		return false
	}
	if event.Key() == tcell.KeyEnd || event.Rune() == 'G' {
		v.ScrollToEnd()
		return true
	}
	row, col := v.Offset()
	page := 10
	_, _, _, height := v.tv.GetInnerRect()
	if height > 0 {
		page = max(height-1, 1)
	}
	maxRow := max(v.lines-max(height, 1), 0)
	if v.follow {
		row = maxRow
	}
	switch event.Key() {
	case tcell.KeyUp:
		row--
	case tcell.KeyDown:
		row++
	case tcell.KeyPgUp:
		row -= page
	case tcell.KeyPgDn:
		row += page
	case tcell.KeyHome:
		row = 0
	case tcell.KeyRune:
		switch event.Rune() {
		case 'k':
			row--
		case 'j':
			row++
		case 'g':
			row = 0
		default:
			return false
		}
	default:
		return false
	}
	row = min(max(row, 0), maxRow)
	if row >= maxRow && height > 0 {
		v.ScrollToEnd()
		return true
	}
	v.ScrollTo(row, col)
	return true
}

// panelText remembers the fingerprint of the last text handed to a viewport
// so identical frames skip the replacement entirely.
type panelText struct {
	sum    uint64
	seeded bool
}

// changed reports whether text differs from the last accepted text and
// records it.
func (p *panelText) changed(text string) bool {
	sum := xxh3.HashString(text)
	if p.seeded && sum == p.sum {
		return false
	}
	p.sum = sum
	p.seeded = true
	return true
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}
