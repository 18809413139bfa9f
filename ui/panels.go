package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// focusable abstracts a focusable primitive with optional scroll handling.
type focusable interface {
	Primitive() tview.Primitive
	SetFocused(focused bool)
	HandleScroll(event *tcell.EventKey) bool
}

// scrollPanel is a boxed TextView whose content is replaced wholesale each
// frame while the reader's scroll position survives.
type scrollPanel struct {
	tv        *tview.TextView
	vp        *textViewport
	baseTitle string
	text      panelText
}

func newScrollPanel(baseTitle string) *scrollPanel {
	tv := newBoxedTextView(baseTitle)
	tv.SetScrollable(true)
	return &scrollPanel{
		tv:        tv,
		vp:        newTextViewport(tv),
		baseTitle: baseTitle,
	}
}

func (p *scrollPanel) Primitive() tview.Primitive {
	if p == nil {
		return nil
	}
	return p.tv
}

func (p *scrollPanel) SetFocused(focused bool) {
	if p == nil {
		return
	}
	applyFocusStyle(p.tv, p.baseTitle, focused)
}

func (p *scrollPanel) HandleScroll(event *tcell.EventKey) bool {
	if p == nil {
		return false
	}
	return p.vp.HandleKey(event)
}

// Replace installs text unless it matches the previous frame. It reports
// whether the widget was touched.
func (p *scrollPanel) Replace(text string) bool {
	if p == nil || !p.text.changed(text) {
		return false
	}
	ReplacePreservingScroll(p.vp, text)
	return true
}

// focusGroup manages focus cycling and scroll handling for a set of panes.
type focusGroup struct {
	items []focusable
	index int
}

func newFocusGroup(items ...focusable) focusGroup {
	filtered := make([]focusable, 0, len(items))
	for _, item := range items {
		if item == nil || item.Primitive() == nil {
			continue
		}
		filtered = append(filtered, item)
	}
	return focusGroup{items: filtered}
}

func (g *focusGroup) set(app *tview.Application, idx int) {
	if g == nil || len(g.items) == 0 {
		return
	}
	if idx < 0 || idx >= len(g.items) {
		idx = 0
	}
	g.index = idx
	for i, item := range g.items {
		item.SetFocused(i == idx)
	}
	if app != nil {
		app.SetFocus(g.items[idx].Primitive())
	}
}

func (g *focusGroup) cycle(app *tview.Application, delta int) {
	if g == nil || len(g.items) == 0 {
		return
	}
	next := g.index + delta
	if next < 0 {
		next = len(g.items) - 1
	} else if next >= len(g.items) {
		next = 0
	}
	g.set(app, next)
}

// handleScroll routes a scroll key to the focused pane.
func (g *focusGroup) handleScroll(event *tcell.EventKey) bool {
	if g == nil || event == nil || len(g.items) == 0 {
		return false
	}
	return g.items[g.index].HandleScroll(event)
}

func applyFocusStyle(tv *tview.TextView, baseTitle string, focused bool) {
	if tv == nil {
		return
	}
	if focused {
		tv.SetBorderColor(uiFocusColor)
		tv.SetTitle(accentText("> " + baseTitle))
		return
	}
	tv.SetBorderColor(uiBorderColor)
	tv.SetTitle(accentText(baseTitle))
}
