package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aodash/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, opts Options) *Recorder {
	t.Helper()
	opts.Logf = func(string, ...any) {}
	r, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "sessions.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRecorderWritesOnlyChanges(t *testing.T) {
	r := openTest(t, Options{})
	_, err := uuid.Parse(r.SessionID())
	require.NoError(t, err)

	base := time.Unix(1_700_000_000, 0)
	assert.True(t, r.Offer(Sample{At: base, Zone: "Omni-1", XP: 10}))
	assert.False(t, r.Offer(Sample{At: base.Add(time.Second), Zone: "Omni-1", XP: 10, DPS12s: 99}))
	assert.True(t, r.Offer(Sample{At: base.Add(2 * time.Second), Zone: "Omni-1", XP: 20}))
	assert.True(t, r.Offer(Sample{At: base.Add(3 * time.Second), Zone: "Newland", XP: 20}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	samples, err := r.Samples(context.Background(), r.SessionID())
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.EqualValues(t, 10, samples[0].XP)
	assert.EqualValues(t, 20, samples[1].XP)
	assert.Equal(t, "Newland", samples[2].Zone)
	assert.True(t, samples[0].At.Equal(base))

	written, dropped := r.Stats()
	assert.EqualValues(t, 3, written)
	assert.Zero(t, dropped)
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	var drops int
	r := openTest(t, Options{QueueSize: 1, OnDrop: func() { drops++ }})

	assert.True(t, r.Offer(Sample{XP: 1}))
	assert.False(t, r.Offer(Sample{XP: 2}))
	assert.Equal(t, 1, drops)

	// the dropped sample is offered again once there is room
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	assert.True(t, r.Offer(Sample{XP: 2}))

	_, dropped := r.Stats()
	assert.EqualValues(t, 1, dropped)
}

func TestRecorderRunStopsOnCancel(t *testing.T) {
	r := openTest(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Offer(SampleFromModel(session.DisplayModel{Zone: "Omni-1", XP: 5, GeneratedAt: time.Now()}))
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	samples, err := r.Samples(context.Background(), r.SessionID())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.EqualValues(t, 5, samples[0].XP)
}

func TestRecorderReopensCorruptDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	require.NoError(t, os.WriteFile(path, []byte("garbage garbage garbage garbage"), 0o644))

	r, err := Open(context.Background(), path, Options{Logf: func(string, ...any) {}})
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Offer(Sample{XP: 1}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	samples, err := r.Samples(context.Background(), r.SessionID())
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	matches, _ := filepath.Glob(path + ".bad-*")
	assert.NotEmpty(t, matches)
}

func TestNilRecorderIsInert(t *testing.T) {
	var r *Recorder
	assert.False(t, r.Offer(Sample{XP: 1}))
	assert.NoError(t, r.Run(context.Background()))
	assert.NoError(t, r.Close())
	assert.Empty(t, r.SessionID())
}
