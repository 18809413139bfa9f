package poller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"aodash/recorder"
	"aodash/session"
	"aodash/state"
	"aodash/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPresenter struct {
	mu     sync.Mutex
	frames []session.DisplayModel
}

func (r *recordingPresenter) Render(m session.DisplayModel) {
	r.mu.Lock()
	r.frames = append(r.frames, m)
	r.mu.Unlock()
}

func (r *recordingPresenter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

type recordingSink struct {
	samples []recorder.Sample
}

func (s *recordingSink) Offer(sample recorder.Sample) bool {
	s.samples = append(s.samples, sample)
	return true
}

func okResult(t *testing.T, body string) state.Result {
	t.Helper()
	snap, err := state.Parse([]byte(body))
	require.NoError(t, err)
	return state.Result{Snapshot: snap, Outcome: state.OutcomeOK}
}

// scripted replays results in order and repeats the last one.
func scripted(results ...state.Result) func(string) state.Result {
	var mu sync.Mutex
	i := 0
	return func(string) state.Result {
		mu.Lock()
		defer mu.Unlock()
		r := results[min(i, len(results)-1)]
		i++
		return r
	}
}

func TestStepFailureKeepsRetained(t *testing.T) {
	prev := session.Retained{XP: 500, Credits: 7}
	for _, outcome := range []state.Outcome{state.OutcomeFileAbsent, state.OutcomeParseFailure, state.OutcomeUnreadable} {
		next, model, ok := Step(prev, state.Result{Outcome: outcome}, time.Now(), session.DefaultOptions())
		assert.False(t, ok, outcome.String())
		assert.Equal(t, prev, next)
		assert.Equal(t, session.DisplayModel{}, model)
	}
}

func TestStepReconciles(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	next, model, ok := Step(session.Retained{XP: 500}, okResult(t, `{"xp":0,"credits":12,"zone":"Omni-1"}`), now, session.DefaultOptions())
	require.True(t, ok)
	assert.Equal(t, session.Retained{XP: 500, Credits: 12}, next)
	assert.EqualValues(t, 500, model.XP)
	assert.Equal(t, "Omni-1", model.Zone)
	assert.True(t, model.GeneratedAt.Equal(now))
}

func TestTickSequence(t *testing.T) {
	presenter := &recordingPresenter{}
	tracker := stats.NewTracker()
	sink := &recordingSink{}
	p := New(Options{
		Path: "state.json",
		Load: scripted(
			okResult(t, `{"xp":500}`),
			state.Result{Outcome: state.OutcomeFileAbsent},
			okResult(t, `{"xp":0}`),
			okResult(t, `{"xp":300}`),
		),
		Logf: func(string, ...any) {},
	}, presenter, tracker, sink)

	var trace []int64
	for i := 0; i < 4; i++ {
		p.Tick()
		trace = append(trace, p.Retained().XP)
	}
	assert.Equal(t, []int64{500, 500, 500, 300}, trace)
	require.Equal(t, 3, presenter.count())
	assert.EqualValues(t, 500, presenter.frames[1].XP)
	assert.Len(t, sink.samples, 3)

	assert.EqualValues(t, 4, tracker.Ticks())
	assert.EqualValues(t, 3, tracker.Renders())
	assert.EqualValues(t, 1, tracker.GetOutcomeCounts()["absent"])

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.EqualValues(t, 300, latest.XP)
}

func TestFailedReadDoesNotRender(t *testing.T) {
	presenter := &recordingPresenter{}
	p := New(Options{
		Load: scripted(state.Result{Outcome: state.OutcomeParseFailure, Err: errors.New("torn")}),
		Logf: func(string, ...any) {},
	}, presenter, nil, nil)

	assert.False(t, p.Tick())
	assert.Zero(t, presenter.count())
	_, ok := p.Latest()
	assert.False(t, ok)
}

func TestFailureLoggingIsRateLimited(t *testing.T) {
	var logs []string
	p := New(Options{
		Path: "state.json",
		Load: scripted(
			state.Result{Outcome: state.OutcomeFileAbsent},
			state.Result{Outcome: state.OutcomeFileAbsent},
			state.Result{Outcome: state.OutcomeParseFailure, Err: errors.New("unexpected end")},
			state.Result{Outcome: state.OutcomeFileAbsent},
			okResult(t, `{}`),
			okResult(t, `{}`),
		),
		Logf: func(format string, args ...any) { logs = append(logs, format) },
	}, nil, nil, nil)

	for i := 0; i < 6; i++ {
		p.Tick()
	}
	assert.Equal(t, []string{
		"Poller: waiting for state file %s",
		"Poller: state file %s: %s: %v",
		"Poller: state file %s readable again",
	}, logs)
}

func TestRunTicksImmediatelyAndStops(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"xp":42,"zone":"Omni-1"}`), 0o644))

	presenter := &recordingPresenter{}
	p := New(Options{Path: path, Interval: time.Hour, Logf: func(string, ...any) {}}, presenter, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return presenter.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	latest, ok := p.Latest()
	require.True(t, ok)
	assert.EqualValues(t, 42, latest.XP)
}
