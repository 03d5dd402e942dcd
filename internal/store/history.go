// Package store persists one row per build/test cycle so regressions across
// local runs stay visible. Backed by sqlite; the database lives under the
// workspace's .xpbuild directory by default.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded build/test cycle.
type Run struct {
	BuildID     string
	Entry       string
	ServerBytes int
	ClientBytes int
	Passed      int
	Failed      int
	Findings    []string
	DurationMS  int64
	CreatedAt   time.Time
}

// History is the sqlite-backed run log.
type History struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	build_id     TEXT PRIMARY KEY,
	entry        TEXT NOT NULL,
	server_bytes INTEGER NOT NULL,
	client_bytes INTEGER NOT NULL,
	passed       INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	findings     TEXT NOT NULL DEFAULT '',
	duration_ms  INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
`

// Open opens (creating as needed) the history database at path.
func Open(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record inserts one run.
func (h *History) Record(run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := h.db.Exec(
		`INSERT INTO runs (build_id, entry, server_bytes, client_bytes, passed, failed, findings, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.BuildID, run.Entry, run.ServerBytes, run.ClientBytes,
		run.Passed, run.Failed, strings.Join(run.Findings, "\n"),
		run.DurationMS, run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(
		`SELECT build_id, entry, server_bytes, client_bytes, passed, failed, findings, duration_ms, created_at
		 FROM runs ORDER BY created_at DESC, build_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var findings string
		var created int64
		if err := rows.Scan(&r.BuildID, &r.Entry, &r.ServerBytes, &r.ClientBytes,
			&r.Passed, &r.Failed, &findings, &r.DurationMS, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if findings != "" {
			r.Findings = strings.Split(findings, "\n")
		}
		r.CreatedAt = time.Unix(created, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}
