// Package session reconciles successive state snapshots into a display model.
// Retained values are threaded explicitly through Reconcile so the ratchet can
// be tested without a UI.
package session

import "aodash/state"

// Retained holds the last positive reading of counters the tracker may
// transiently report as zero while it re-reads its own logs.
type Retained struct {
	XP          int64
	Credits     int64
	LatestCrit  int64
	BiggestCrit int64
}

// Merge applies the ratchet to every retained field.
func (r Retained) Merge(s state.Snapshot) Retained {
	return Retained{
		XP:          ratchet(r.XP, s.XP),
		Credits:     ratchet(r.Credits, s.Credits),
		LatestCrit:  ratchet(r.LatestCrit, s.LatestCrit),
		BiggestCrit: ratchet(r.BiggestCrit, s.BiggestCrit),
	}
}

// ratchet keeps prev unless incoming is strictly positive. A smaller positive
// reading still wins: most recent nonzero, not max.
func ratchet(prev, incoming int64) int64 {
	if incoming > 0 {
		return incoming
	}
	return prev
}
