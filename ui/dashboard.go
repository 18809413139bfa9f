package ui

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"aodash/config"
	"aodash/session"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	paneWriterMaxBytes = 64 * 1024
	systemMaxLines     = 500
	systemMaxBytes     = 256 * 1024
	systemMaxLineBytes = 2048
)

const (
	accentTag   = "[#ff69b4]"
	accentReset = "[-]"
)

var (
	uiBorderColor = tcell.ColorGray
	uiTitleColor  = tcell.ColorHotPink
	uiFocusColor  = tcell.ColorDeepSkyBlue
)

// Dashboard is the tview presenter: a header, XP progress, credit, crit and
// DPS boxes, the loot and chat panes and a system log pane.
type Dashboard struct {
	app       *tview.Application
	pages     *tview.Pages
	scheduler *frameScheduler
	metrics   *Metrics

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once

	header   *tview.TextView
	progress *tview.TextView
	credits  *tview.TextView
	crits    *tview.TextView
	dps      *tview.TextView

	loot   *scrollPanel
	chat   *scrollPanel
	system *scrollPanel
	focus  focusGroup

	systemLog *logRing
	helpShown bool
}

// NewDashboard builds the dashboard and starts the tview event loop.
func NewDashboard(cfg config.UIConfig) *Dashboard {
	app := tview.NewApplication().EnableMouse(cfg.EnableMouse)
	d := newDashboard(cfg, app)
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		d.readyOnce.Do(func() { close(d.ready) })
		return false
	})
	d.scheduler.Start()
	go func() {
		if err := app.Run(); err != nil {
			log.Printf("UI: tview error: %v", err)
		}
		d.closeDone()
	}()
	return d
}

// newDashboard wires the layout. A nil app yields a dashboard whose frames
// are applied inline on flush, which is what tests use.
func newDashboard(cfg config.UIConfig, app *tview.Application) *Dashboard {
	metrics := NewMetrics()
	d := &Dashboard{
		app:     app,
		pages:   tview.NewPages(),
		metrics: metrics,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		systemLog: newLogRing(LogRingLimits{
			MaxLines:     systemMaxLines,
			MaxBytes:     systemMaxBytes,
			MaxLineBytes: systemMaxLineBytes,
		}),
	}
	if app == nil {
		d.readyOnce.Do(func() { close(d.ready) })
	}

	d.header = newBoxedTextView("Session")
	d.progress = newBoxedTextView("Experience")
	d.credits = newBoxedTextView("Credits")
	d.crits = newBoxedTextView("Crits")
	d.dps = newBoxedTextView("DPS")
	d.loot = newScrollPanel("Loot")
	d.chat = newScrollPanel("Chat")
	d.system = newScrollPanel("System")
	d.seedPlaceholders()

	statsRow := tview.NewFlex().
		AddItem(d.credits, 0, 1, false).
		AddItem(d.crits, 0, 1, false).
		AddItem(d.dps, 0, 1, false)
	feedRow := tview.NewFlex().
		AddItem(d.loot.Primitive(), 0, 1, false).
		AddItem(d.chat.Primitive(), 0, 2, false)
	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.header, 3, 0, false).
		AddItem(d.progress, 4, 0, false).
		AddItem(statsRow, 4, 0, false).
		AddItem(feedRow, 0, 1, true).
		AddItem(d.system.Primitive(), 8, 0, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.pages, 0, 1, true).
		AddItem(buildFooter(), 1, 0, false)

	d.pages.AddPage("main", main, true, true)
	d.pages.AddPage("help", buildHelpOverlay(), true, false)

	d.focus = newFocusGroup(d.chat, d.loot, d.system)
	d.scheduler = newFrameScheduler(app, cfg.TargetFPS, 100*time.Millisecond, metrics.ObserveRender)

	if app != nil {
		app.SetInputCapture(d.handleKey)
		app.SetRoot(root, true)
	}
	d.focus.set(app, 0)
	return d
}

// Render schedules a frame for model. Section text is built on the caller's
// goroutine; widgets are touched only inside the scheduled callback.
func (d *Dashboard) Render(model session.DisplayModel) {
	if d == nil {
		return
	}
	header := headerText(model)
	progress := progressText(model)
	credits := creditsText(model)
	crits := critsText(model)
	dps := dpsText(model)
	loot := lootText(model.Loot)
	chat := chatText(model.Chat)

	d.scheduler.Schedule("model", func() {
		setBoxText(d.header, header)
		setBoxText(d.progress, progress)
		setBoxText(d.credits, credits)
		setBoxText(d.crits, crits)
		setBoxText(d.dps, dps)
		d.metrics.PanelReplaced(d.loot.Replace(loot))
		d.metrics.PanelReplaced(d.chat.Replace(chat))
	})
}

// AppendSystem adds a line to the system pane.
func (d *Dashboard) AppendSystem(line string) {
	if d == nil {
		return
	}
	d.systemLog.Append(LogLine{At: time.Now(), Text: tview.Escape(line)})
	text := d.systemLog.Text()
	d.scheduler.Schedule("system", func() {
		d.metrics.PanelReplaced(d.system.Replace(text))
	})
}

func (d *Dashboard) Metrics() *Metrics {
	if d == nil {
		return nil
	}
	return d.metrics
}

func (d *Dashboard) WaitReady() {
	if d == nil || d.ready == nil {
		return
	}
	<-d.ready
}

func (d *Dashboard) Done() <-chan struct{} {
	return d.done
}

func (d *Dashboard) Stop() {
	if d == nil {
		return
	}
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
	if d.app == nil {
		d.closeDone()
		return
	}
	d.app.Stop()
	select {
	case <-d.done:
	case <-time.After(200 * time.Millisecond):
		log.Printf("UI: dashboard stop timeout")
	}
}

func (d *Dashboard) closeDone() {
	d.doneOnce.Do(func() { close(d.done) })
}

func (d *Dashboard) requestQuit() {
	if d.app != nil {
		d.app.Stop()
		return
	}
	d.closeDone()
}

func (d *Dashboard) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event == nil {
		return nil
	}
	if d.helpShown {
		if event.Key() == tcell.KeyEsc || event.Key() == tcell.KeyF1 || event.Rune() == '?' || event.Rune() == 'h' {
			d.toggleHelp(false)
			return nil
		}
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			d.requestQuit()
		}
		return nil
	}

	switch event.Key() {
	case tcell.KeyF1:
		d.toggleHelp(true)
		return nil
	case tcell.KeyTab:
		d.focus.cycle(d.app, 1)
		d.metrics.FocusSwitch()
		return nil
	case tcell.KeyBacktab:
		d.focus.cycle(d.app, -1)
		d.metrics.FocusSwitch()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case '?':
			d.toggleHelp(true)
			return nil
		case 'q', 'Q':
			d.requestQuit()
			return nil
		}
	}
	if d.focus.handleScroll(event) {
		return nil
	}
	return event
}

func (d *Dashboard) toggleHelp(show bool) {
	d.helpShown = show
	if show {
		d.pages.ShowPage("help")
		d.pages.SendToFront("help")
		return
	}
	d.pages.HidePage("help")
}

func (d *Dashboard) seedPlaceholders() {
	setBoxText(d.header, "Waiting for tracker state...")
	setBoxText(d.progress, "XP "+placeholder)
	setBoxText(d.credits, "Total "+placeholder)
	setBoxText(d.crits, "Latest "+placeholder)
	setBoxText(d.dps, "12s "+placeholder)
}

func (d *Dashboard) SystemWriter() io.Writer {
	if d == nil {
		return nil
	}
	return &paneWriter{dash: d}
}

// paneWriter splits log output into lines for the system pane.
type paneWriter struct {
	dash *Dashboard
	// buf holds any partial line; it is bounded to avoid unbounded growth when no newline arrives.
	buf          []byte
	mu           sync.Mutex
	droppedBytes uint64
	lastDropLog  time.Time
}

func (w *paneWriter) Write(p []byte) (int, error) {
	if w == nil || w.dash == nil {
		return len(p), nil
	}
	var logDrop bool
	var dropBytes uint64
	var totalDropped uint64
	now := time.Now().UTC()

	w.mu.Lock()
	w.buf = append(w.buf, p...)
	if excess := len(w.buf) - paneWriterMaxBytes; excess > 0 {
		w.buf = w.buf[excess:]
		w.droppedBytes += uint64(excess)
		dropBytes = uint64(excess)
		totalDropped = w.droppedBytes
		if w.lastDropLog.IsZero() || now.Sub(w.lastDropLog) >= 30*time.Second {
			w.lastDropLog = now
			logDrop = true
		}
	}
	var lines []string
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx == -1 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(w.buf[:idx], "\r")))
		w.buf = w.buf[idx+1:]
	}
	w.mu.Unlock()

	for _, line := range lines {
		w.dash.AppendSystem(line)
	}
	if logDrop {
		w.dash.AppendSystem(fmt.Sprintf("UI: system writer dropped %d bytes (total %d) due to missing newline", dropBytes, totalDropped))
	}
	return len(p), nil
}

func newBoxedTextView(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	tv.SetBorder(true)
	if title != "" {
		tv.SetTitle(accentText(title)).SetTitleAlign(tview.AlignLeft)
	}
	tv.SetBorderColor(uiBorderColor)
	tv.SetTitleColor(uiTitleColor)
	return tv
}

func buildFooter() *tview.TextView {
	return tview.NewTextView().SetDynamicColors(true).SetText(
		accentText("F1") + " Help  " + accentText("Tab") + " Focus  " + accentText("↑/↓ j/k") + " Scroll  " + accentText("End") + " Follow  " + accentText("q") + " Quit",
	)
}

func buildHelpOverlay() tview.Primitive {
	help := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	help.SetText(strings.TrimSpace(fmt.Sprintf(`
KEYBOARD HELP

  %sF1%s or %s?%s   Toggle this help
  Tab / Shift+Tab   Focus chat, loot, system
  ↑/↓ or k/j        Scroll focused pane
  PageUp/PageDown   Fast scroll
  Home/End          Top / follow newest
  q / Ctrl+C        Quit
`, accentTag, accentReset, accentTag, accentReset)))
	help.SetBorder(true).SetTitle("Help")
	help.SetBorderColor(uiBorderColor)
	help.SetTitleColor(uiTitleColor)
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(help, 11, 1, true).
			AddItem(nil, 0, 1, false),
			52, 1, true).
		AddItem(nil, 0, 1, false)
}

func setBoxText(tv *tview.TextView, text string) {
	if tv == nil {
		return
	}
	tv.SetText(padLines(text))
}

func padLines(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		lines[i] = " " + line
	}
	return strings.Join(lines, "\n")
}

func accentText(text string) string {
	if text == "" {
		return ""
	}
	return accentTag + text + accentReset
}
