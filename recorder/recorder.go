// Package recorder persists session samples to SQLite so a play session can
// be reviewed after the dashboard exits. Writes happen on their own goroutine
// and never slow the poller.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"aodash/session"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const defaultQueueSize = 256

// Sample is one recorded row.
type Sample struct {
	SessionID   string
	At          time.Time
	Zone        string
	XP          int64
	Credits     int64
	LatestCrit  int64
	BiggestCrit int64
	DPS12s      float64
	DPSSession  float64
}

// SampleFromModel extracts the recorded fields of a frame.
func SampleFromModel(m session.DisplayModel) Sample {
	return Sample{
		At:          m.GeneratedAt,
		Zone:        m.Zone,
		XP:          m.XP,
		Credits:     m.Credits,
		LatestCrit:  m.LatestCrit,
		BiggestCrit: m.BiggestCrit,
		DPS12s:      m.DPS12s,
		DPSSession:  m.DPSSession,
	}
}

// sameState reports whether two samples carry the same counters and zone.
// DPS and time are ignored so an idle session writes nothing.
func sameState(a, b Sample) bool {
	return a.Zone == b.Zone &&
		a.XP == b.XP &&
		a.Credits == b.Credits &&
		a.LatestCrit == b.LatestCrit &&
		a.BiggestCrit == b.BiggestCrit
}

// Options tunes a Recorder.
type Options struct {
	QueueSize        int
	PreflightTimeout time.Duration
	Logf             func(string, ...any)
	// OnDrop is called when a sample is discarded because the queue is full.
	OnDrop func()
}

// Recorder writes session samples keyed by a per-run session id.
type Recorder struct {
	db      *sql.DB
	session string
	queue   chan Sample
	logf    func(string, ...any)
	onDrop  func()

	mu       sync.Mutex
	last     Sample
	haveLast bool

	written atomic.Uint64
	dropped atomic.Uint64
	closeMu sync.Once
}

// Open preflights (or creates) the SQLite database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string, opts Options) (*Recorder, error) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: ensure dir: %w", err)
	}
	if _, err := Preflight(ctx, path, opts.PreflightTimeout, opts.Logf); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: schema: %w", err)
	}
	return &Recorder{
		db:      db,
		session: uuid.NewString(),
		queue:   make(chan Sample, opts.QueueSize),
		logf:    opts.Logf,
		onDrop:  opts.OnDrop,
	}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`pragma journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS session_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    observed_at INTEGER NOT NULL,
    zone TEXT,
    xp INTEGER,
    credits INTEGER,
    latest_crit INTEGER,
    biggest_crit INTEGER,
    dps_12s REAL,
    dps_session REAL
)`,
		`CREATE INDEX IF NOT EXISTS idx_session_samples_session ON session_samples(session_id, observed_at)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SessionID identifies this run's rows.
func (r *Recorder) SessionID() string {
	if r == nil {
		return ""
	}
	return r.session
}

// Offer queues s when its counters or zone differ from the last queued
// sample. It never blocks: a full queue drops the sample. It reports whether
// the sample was queued.
func (r *Recorder) Offer(s Sample) bool {
	if r == nil {
		return false
	}
	s.SessionID = r.session
	if s.At.IsZero() {
		s.At = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.haveLast && sameState(r.last, s) {
		return false
	}
	select {
	case r.queue <- s:
		r.last = s
		r.haveLast = true
		return true
	default:
		r.dropped.Add(1)
		if r.onDrop != nil {
			r.onDrop()
		}
		return false
	}
}

// Run writes queued samples until ctx is cancelled, then drains what is left.
func (r *Recorder) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for {
		select {
		case s := <-r.queue:
			r.insert(s)
		case <-ctx.Done():
			for {
				select {
				case s := <-r.queue:
					r.insert(s)
				default:
					return nil
				}
			}
		}
	}
}

// insert ignores Run's context: every queued sample is written.
func (r *Recorder) insert(s Sample) {
	_, err := r.db.Exec(`
INSERT INTO session_samples (
    session_id, observed_at, zone, xp, credits, latest_crit, biggest_crit, dps_12s, dps_session
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID,
		s.At.UTC().UnixMilli(),
		s.Zone,
		s.XP,
		s.Credits,
		s.LatestCrit,
		s.BiggestCrit,
		s.DPS12s,
		s.DPSSession,
	)
	if err != nil {
		r.logf("Recorder: failed to insert sample: %v", err)
		return
	}
	r.written.Add(1)
}

// Samples returns the rows recorded for sessionID in time order.
func (r *Recorder) Samples(ctx context.Context, sessionID string) ([]Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, observed_at, zone, xp, credits, latest_crit, biggest_crit, dps_12s, dps_session
FROM session_samples WHERE session_id = ? ORDER BY observed_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("recorder: query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		var at int64
		if err := rows.Scan(&s.SessionID, &at, &s.Zone, &s.XP, &s.Credits, &s.LatestCrit, &s.BiggestCrit, &s.DPS12s, &s.DPSSession); err != nil {
			return nil, fmt.Errorf("recorder: scan sample: %w", err)
		}
		s.At = time.UnixMilli(at)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Stats returns (written, dropped) sample counts.
func (r *Recorder) Stats() (uint64, uint64) {
	if r == nil {
		return 0, 0
	}
	return r.written.Load(), r.dropped.Load()
}

// Close closes the underlying database. Call it after Run has returned.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	var err error
	r.closeMu.Do(func() { err = r.db.Close() })
	return err
}
