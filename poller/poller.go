// Package poller drives the dashboard: every tick it reads the state file,
// reconciles the snapshot with the retained counters and hands the resulting
// frame to the presenter, the stats tracker and the session recorder.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"aodash/recorder"
	"aodash/session"
	"aodash/state"
	"aodash/stats"

	"golang.org/x/time/rate"
)

const (
	DefaultInterval = 500 * time.Millisecond
	failureLogEvery = 30 * time.Second
)

// Presenter receives one frame per successful tick.
type Presenter interface {
	Render(model session.DisplayModel)
}

// Sink receives recorder samples. It must not block.
type Sink interface {
	Offer(sample recorder.Sample) bool
}

// Options configures a Poller.
type Options struct {
	Path     string
	Interval time.Duration
	Session  session.Options

	// Load and Now default to state.Load and time.Now.
	Load func(path string) state.Result
	Now  func() time.Time
	Logf func(format string, args ...any)
}

// Step is one tick without I/O. A failed read leaves retained state alone and
// reports that nothing should be rendered.
func Step(prev session.Retained, result state.Result, now time.Time, opts session.Options) (session.Retained, session.DisplayModel, bool) {
	if !result.OK() {
		return prev, session.DisplayModel{}, false
	}
	next, model := session.Reconcile(prev, result.Snapshot, now, opts)
	return next, model, true
}

// Poller owns the retained counters and the latest frame.
type Poller struct {
	opts      Options
	presenter Presenter
	tracker   *stats.Tracker
	sink      Sink

	retained session.Retained
	failing  bool

	mu     sync.RWMutex
	latest session.DisplayModel
	have   bool

	limiters map[state.Outcome]*rate.Sometimes
}

// New builds a poller. presenter, tracker and sink may be nil.
func New(opts Options, presenter Presenter, tracker *stats.Tracker, sink Sink) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Load == nil {
		opts.Load = state.Load
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	limiters := make(map[state.Outcome]*rate.Sometimes, len(state.Outcomes))
	for _, outcome := range state.Outcomes {
		limiters[outcome] = &rate.Sometimes{Interval: failureLogEvery}
	}
	return &Poller{
		opts:      opts,
		presenter: presenter,
		tracker:   tracker,
		sink:      sink,
		limiters:  limiters,
	}
}

// Run ticks immediately and then every interval until ctx is cancelled. A
// slow tick delays the next one; ticks never overlap.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.Tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick performs one read-reconcile-render cycle. It reports whether a frame
// was produced. Tick must not be called concurrently.
func (p *Poller) Tick() bool {
	now := p.opts.Now()
	result := p.opts.Load(p.opts.Path)
	if p.tracker != nil {
		p.tracker.ObserveRead(result.Outcome, now)
	}

	next, model, ok := Step(p.retained, result, now, p.opts.Session)
	if !ok {
		p.logFailure(result)
		return false
	}
	if p.failing {
		p.failing = false
		p.opts.Logf("Poller: state file %s readable again", p.opts.Path)
	}
	p.retained = next

	p.mu.Lock()
	p.latest = model
	p.have = true
	p.mu.Unlock()

	if p.presenter != nil {
		p.presenter.Render(model)
	}
	if p.tracker != nil {
		p.tracker.ObserveModel(model)
	}
	if p.sink != nil {
		p.sink.Offer(recorder.SampleFromModel(model))
	}
	return true
}

func (p *Poller) logFailure(result state.Result) {
	p.failing = true
	limiter := p.limiters[result.Outcome]
	if limiter == nil {
		return
	}
	limiter.Do(func() {
		switch result.Outcome {
		case state.OutcomeFileAbsent:
			p.opts.Logf("Poller: waiting for state file %s", p.opts.Path)
		default:
			p.opts.Logf("Poller: state file %s: %s: %v", p.opts.Path, result.Outcome, result.Err)
		}
	})
}

// Latest returns a copy of the most recent frame, if any.
func (p *Poller) Latest() (session.DisplayModel, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.have
}

// Retained returns the retained counters. Only safe from the goroutine that
// calls Tick, or after Run has returned.
func (p *Poller) Retained() session.Retained {
	return p.retained
}
