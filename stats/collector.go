package stats

import (
	"aodash/state"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aodash"

var (
	readsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "state_reads_total"),
		"State file reads by outcome.",
		[]string{"outcome"}, nil,
	)
	ticksDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "ticks_total"),
		"Completed poll ticks.",
		nil, nil,
	)
	rendersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "renders_total"),
		"Frames handed to the presenter.",
		nil, nil,
	)
	recorderDropsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "recorder", "dropped_total"),
		"Session samples dropped because the recorder queue was full.",
		nil, nil,
	)
	lastSuccessDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "last_success_timestamp_seconds"),
		"Unix time of the last successful state read.",
		nil, nil,
	)
	uptimeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "uptime_seconds"),
		"Seconds since the dashboard started.",
		nil, nil,
	)
	retainedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "session", "retained"),
		"Retained session counters after the ratchet rule.",
		[]string{"counter"}, nil,
	)
)

// Collector exposes a Tracker to Prometheus. Values are read at scrape time.
type Collector struct {
	tracker *Tracker
}

// NewCollector wraps tracker.
func NewCollector(tracker *Tracker) *Collector {
	return &Collector{tracker: tracker}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- readsDesc
	ch <- ticksDesc
	ch <- rendersDesc
	ch <- recorderDropsDesc
	ch <- lastSuccessDesc
	ch <- uptimeDesc
	ch <- retainedDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	t := c.tracker
	counts := t.GetOutcomeCounts()
	for _, outcome := range state.Outcomes {
		label := outcome.String()
		ch <- prometheus.MustNewConstMetric(readsDesc, prometheus.CounterValue, float64(counts[label]), label)
	}
	ch <- prometheus.MustNewConstMetric(ticksDesc, prometheus.CounterValue, float64(t.Ticks()))
	ch <- prometheus.MustNewConstMetric(rendersDesc, prometheus.CounterValue, float64(t.Renders()))
	ch <- prometheus.MustNewConstMetric(recorderDropsDesc, prometheus.CounterValue, float64(t.RecorderDrops()))
	if at, ok := t.LastSuccess(); ok {
		ch <- prometheus.MustNewConstMetric(lastSuccessDesc, prometheus.GaugeValue, float64(at.UnixNano())/1e9)
	}
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, t.GetUptime().Seconds())

	retained := t.Retained()
	for _, kv := range []struct {
		name  string
		value int64
	}{
		{"xp", retained.XP},
		{"credits", retained.Credits},
		{"latest_crit", retained.LatestCrit},
		{"biggest_crit", retained.BiggestCrit},
	} {
		ch <- prometheus.MustNewConstMetric(retainedDesc, prometheus.GaugeValue, float64(kv.value), kv.name)
	}
}
