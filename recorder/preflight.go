package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PreflightResult reports the outcome of a SQLite preflight check.
type PreflightResult struct {
	Healthy        bool   // No issues detected; safe to proceed.
	Fresh          bool   // No database existed yet.
	Quarantined    bool   // The database was renamed aside and a fresh file will be created.
	QuarantinePath string // Path of the quarantined database (main file only).
	Elapsed        time.Duration
	CheckError     error // Nil when checkpoint and quick_check succeeded.
}

// Preflight runs a bounded WAL checkpoint + quick_check on an existing
// session database. A file that fails either check is renamed (with its
// sidecars) to a timestamped .bad- path so the recorder can start fresh.
func Preflight(ctx context.Context, path string, timeout time.Duration, logf func(string, ...any)) (PreflightResult, error) {
	if logf == nil {
		logf = log.Printf
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	res := PreflightResult{}
	if strings.TrimSpace(path) == "" {
		return res, errors.New("preflight: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return res, fmt.Errorf("preflight: ensure dir: %w", err)
	}
	existing := collectExisting(path)
	if !existing[0].have {
		res.Healthy = true
		res.Fresh = true
		return res, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	checkErr := checkDatabase(ctx, path, timeout)
	res.Elapsed = time.Since(start)
	res.CheckError = checkErr
	if checkErr == nil {
		res.Healthy = true
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("preflight: session db timed out after %s", timeout)
	}

	quarantinePath, err := quarantine(path, existing, logf)
	if err != nil {
		return res, fmt.Errorf("preflight: quarantine failed: %w (check=%v)", err, checkErr)
	}
	res.Quarantined = true
	res.QuarantinePath = quarantinePath
	logf("Recorder: session db failed preflight (%v); quarantined to %s", checkErr, quarantinePath)
	return res, nil
}

// checkDatabase owns its own handle so the file is closed before any rename.
func checkDatabase(ctx context.Context, path string, timeout time.Duration) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("pragma busy_timeout=%d", timeout.Milliseconds())); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "pragma wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return quickCheck(ctx, db)
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if scanErr := rows.Scan(&status); scanErr != nil {
			return scanErr
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

type fileState struct {
	path string
	have bool
}

// collectExisting lists the main file first, then its sidecars.
func collectExisting(path string) []fileState {
	targets := []string{path, path + "-wal", path + "-shm", path + "-journal"}
	out := make([]fileState, 0, len(targets))
	for _, t := range targets {
		_, err := os.Stat(t)
		out = append(out, fileState{path: t, have: err == nil})
	}
	return out
}

func quarantine(path string, existing []fileState, logf func(string, ...any)) (string, error) {
	ts := time.Now().UTC().Format("20060102T150405Z")
	for _, st := range existing {
		if !st.have {
			continue
		}
		if err := os.Rename(st.path, st.path+".bad-"+ts); err != nil {
			if os.IsNotExist(err) {
				// sidecars can vanish during the checkpoint attempt
				logf("Recorder: expected %s but it was missing during quarantine", st.path)
				continue
			}
			return "", err
		}
	}
	return path + ".bad-" + ts, nil
}
