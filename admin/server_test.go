package admin

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aodash/session"
	"aodash/state"
	"aodash/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	model session.DisplayModel
	ok    bool
}

func (f fixedSource) Latest() (session.DisplayModel, bool) { return f.model, f.ok }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthBeforeFirstRead(t *testing.T) {
	tracker := stats.NewTracker()
	tracker.ObserveRead(state.OutcomeFileAbsent, time.Now())
	s := New("127.0.0.1:0", fixedSource{}, tracker)

	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "waiting", body.Status)
	assert.EqualValues(t, 1, body.Ticks)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestHealthAfterRead(t *testing.T) {
	tracker := stats.NewTracker()
	read := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tracker.ObserveRead(state.OutcomeOK, read)
	s := New("127.0.0.1:0", fixedSource{}, tracker)
	s.now = func() time.Time { return read.Add(3 * time.Second) }

	rec := get(t, s.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "2026-01-02T03:04:05Z", body.LastRead)
	assert.InDelta(t, 3.0, body.AgeSeconds, 1e-9)
	assert.EqualValues(t, 1, body.Ticks)
}

func TestStateEndpoint(t *testing.T) {
	tracker := stats.NewTracker()
	s := New("127.0.0.1:0", fixedSource{}, tracker)
	rec := get(t, s.Handler(), "/state")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s = New("127.0.0.1:0", fixedSource{ok: true, model: session.DisplayModel{Zone: "Omni-1", XP: 1234}}, tracker)
	rec = get(t, s.Handler(), "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var model session.DisplayModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &model))
	assert.Equal(t, "Omni-1", model.Zone)
	assert.EqualValues(t, 1234, model.XP)
}

func TestMetricsEndpoint(t *testing.T) {
	tracker := stats.NewTracker()
	tracker.ObserveRead(state.OutcomeParseFailure, time.Now())
	s := New("127.0.0.1:0", fixedSource{}, tracker)

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `aodash_state_reads_total{outcome="parse_failure"} 1`)
	assert.Contains(t, body, "aodash_ticks_total 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := New(addr, fixedSource{}, stats.NewTracker())
	s.logf = func(string, ...any) {}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusServiceUnavailable
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("Run did not return")
	}
}
