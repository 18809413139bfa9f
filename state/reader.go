package state

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Outcome classifies a single read attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeFileAbsent is the normal state before the tracker has started.
	OutcomeFileAbsent
	// OutcomeParseFailure covers empty, torn or otherwise non-object content.
	OutcomeParseFailure
	// OutcomeUnreadable covers I/O errors other than "not found".
	OutcomeUnreadable
)

// Outcomes lists every outcome in label order.
var Outcomes = []Outcome{OutcomeOK, OutcomeFileAbsent, OutcomeParseFailure, OutcomeUnreadable}

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFileAbsent:
		return "absent"
	case OutcomeParseFailure:
		return "parse_failure"
	case OutcomeUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// Result is the typed outcome of Load. Snapshot is only meaningful when
// Outcome is OutcomeOK; Err carries the underlying cause otherwise.
type Result struct {
	Snapshot Snapshot
	Outcome  Outcome
	Err      error
}

// OK reports whether the result carries a usable snapshot.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

var errNotObject = errors.New("top-level value is not an object")

// Load reads and parses the snapshot file at path. It never panics and never
// returns a Go error: failures are reported through Result.Outcome.
func Load(path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Outcome: OutcomeFileAbsent, Err: err}
		}
		return Result{Outcome: OutcomeUnreadable, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	snap, err := Parse(data)
	if err != nil {
		return Result{Outcome: OutcomeParseFailure, Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return Result{Snapshot: snap, Outcome: OutcomeOK}
}

// Parse decodes a snapshot document. Individual fields that are missing,
// null, of the wrong type or out of range are left absent; only a document
// that is not a JSON object is an error.
func Parse(data []byte) (Snapshot, error) {
	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, err
	}
	if raw == nil {
		return Snapshot{}, errNotObject
	}

	var s Snapshot
	if v, ok := decodeString(raw["zone"]); ok {
		s.Zone = v
		s.mark(FieldZone)
	}
	intFields := []struct {
		key   string
		field Field
		dst   *int64
	}{
		{"latency_ms", FieldLatency, &s.LatencyMS},
		{"xp", FieldXP, &s.XP},
		{"credits", FieldCredits, &s.Credits},
		{"latest_crit", FieldLatestCrit, &s.LatestCrit},
		{"biggest_crit", FieldBiggestCrit, &s.BiggestCrit},
		{"start_time", FieldStartTime, &s.StartTime},
		{"level", FieldLevel, &s.Level},
		{"players_online", FieldPlayersOnline, &s.PlayersOnline},
	}
	for _, f := range intFields {
		if v, ok := decodeInt(raw[f.key]); ok && v >= 0 {
			*f.dst = v
			s.mark(f.field)
		}
	}
	if v, ok := decodeFloat(raw["dps_12s"]); ok && v >= 0 {
		s.DPS12s = v
		s.mark(FieldDPS12s)
	}
	if v, ok := decodeFloat(raw["dps_session"]); ok && v >= 0 {
		s.DPSSession = v
		s.mark(FieldDPSSession)
	}
	if v, ok := decodeStrings(raw["recent_loot"]); ok {
		s.RecentLoot = v
		s.mark(FieldRecentLoot)
	}
	if v, ok := decodeStrings(raw["chat_history"]); ok {
		s.ChatHistory = v
		s.mark(FieldChatHistory)
	}
	return s, nil
}

func isNull(raw jsoniter.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeString(raw jsoniter.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

// decodeInt accepts integral JSON numbers and truncates fractional ones; the
// tracker has written both over time.
func decodeInt(raw jsoniter.RawMessage) (int64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	f, ok := decodeFloat(raw)
	if !ok || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func decodeFloat(raw jsoniter.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func decodeStrings(raw jsoniter.RawMessage) ([]string, bool) {
	if isNull(raw) {
		return nil, false
	}
	var items []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v, ok := decodeString(item); ok {
			out = append(out, v)
		}
	}
	return out, true
}
