package stats

import (
	"strings"
	"sync"
	"testing"
	"time"

	"aodash/session"
	"aodash/state"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCountsOutcomes(t *testing.T) {
	tr := NewTracker()
	now := time.Unix(1_700_000_000, 0)

	_, ok := tr.LastSuccess()
	assert.False(t, ok)

	tr.ObserveRead(state.OutcomeFileAbsent, now)
	tr.ObserveRead(state.OutcomeOK, now.Add(time.Second))
	tr.ObserveRead(state.OutcomeParseFailure, now.Add(2*time.Second))

	counts := tr.GetOutcomeCounts()
	assert.Equal(t, map[string]uint64{"absent": 1, "ok": 1, "parse_failure": 1}, counts)
	assert.EqualValues(t, 3, tr.Ticks())

	at, ok := tr.LastSuccess()
	require.True(t, ok)
	assert.True(t, at.Equal(now.Add(time.Second)))
}

func TestTrackerConcurrentIncrements(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.ObserveRead(state.OutcomeOK, time.Now())
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 800, tr.GetOutcomeCounts()["ok"])
}

func TestTrackerSnapshotLines(t *testing.T) {
	tr := NewTracker()
	lines := tr.SnapshotLines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Reads: (none)", lines[0])
	assert.Contains(t, lines[1], "Last read: never")

	tr.ObserveRead(state.OutcomeUnreadable, time.Now())
	tr.ObserveRead(state.OutcomeFileAbsent, time.Now())
	assert.Equal(t, "Reads: absent=1, unreadable=1", tr.SnapshotLines()[0])
}

func TestCollectorExposesCounters(t *testing.T) {
	tr := NewTracker()
	tr.ObserveRead(state.OutcomeOK, time.Now())
	tr.ObserveRead(state.OutcomeFileAbsent, time.Now())
	tr.ObserveModel(session.DisplayModel{XP: 500, Credits: 20, BiggestCrit: 9})
	tr.IncrementRecorderDrops()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(tr)))
	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "{" + lp.GetValue() + "}"
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, values["aodash_state_reads_total{ok}"])
	assert.Equal(t, 1.0, values["aodash_state_reads_total{absent}"])
	assert.Equal(t, 0.0, values["aodash_state_reads_total{unreadable}"])
	assert.Equal(t, 2.0, values["aodash_ticks_total"])
	assert.Equal(t, 1.0, values["aodash_renders_total"])
	assert.Equal(t, 1.0, values["aodash_recorder_dropped_total"])
	assert.Equal(t, 500.0, values["aodash_session_retained{xp}"])
	assert.Equal(t, 9.0, values["aodash_session_retained{biggest_crit}"])
	assert.Contains(t, values, "aodash_last_success_timestamp_seconds")

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.True(t, strings.Contains(strings.Join(names, ","), "aodash_uptime_seconds"))
}
