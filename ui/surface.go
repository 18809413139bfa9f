package ui

import (
	"io"

	"aodash/session"
)

// Surface abstracts the presenter so the tview dashboard and the headless
// logger can plug into the same poller. Render may be called from the poller
// goroutine while other methods run elsewhere.
type Surface interface {
	// Render presents one frame. The model is owned by the surface afterwards.
	Render(model session.DisplayModel)
	// SystemWriter returns the destination for log output, or nil when the
	// surface leaves logging alone.
	SystemWriter() io.Writer
	WaitReady()
	// Done is closed when the user asked to quit or the surface stopped.
	Done() <-chan struct{}
	Stop()
}
