// Package state reads the shared snapshot file written by the game tracker.
// Every Load re-reads the file; the tracker is the only writer and there is no
// change notification, so the file itself is the source of truth.
package state

// Field identifies a snapshot field so callers can tell "absent" from "zero".
type Field uint16

const (
	FieldZone Field = 1 << iota
	FieldLatency
	FieldXP
	FieldCredits
	FieldLatestCrit
	FieldBiggestCrit
	FieldDPS12s
	FieldDPSSession
	FieldStartTime
	FieldRecentLoot
	FieldChatHistory
	FieldLevel
	FieldPlayersOnline
)

// Snapshot is one parsed reading of the state file. It is immutable once
// returned by Load; absent fields hold their zero value.
type Snapshot struct {
	Zone          string
	LatencyMS     int64
	XP            int64
	Credits       int64
	LatestCrit    int64
	BiggestCrit   int64
	DPS12s        float64
	DPSSession    float64
	StartTime     int64
	Level         int64
	PlayersOnline int64
	RecentLoot    []string
	ChatHistory   []string

	present Field
}

// Has reports whether the producer supplied a usable value for f.
func (s Snapshot) Has(f Field) bool {
	return s.present&f != 0
}

func (s *Snapshot) mark(f Field) {
	s.present |= f
}
