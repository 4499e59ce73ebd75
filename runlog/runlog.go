// CLAUDE:SUMMARY SQLite ledger of pipeline runs and the notice ids each run failed on.
// CLAUDE:DEPENDS internal/dbopen/dbopen.go
// Package runlog keeps a SQLite ledger of pipeline runs: when each ran, in
// which mode, the resulting counts and the entries that failed extraction.
// It is an operator aid; the notice store itself stays in the JSON file.
package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/notamwatch/internal/dbopen"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("runlog: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	total_count INTEGER NOT NULL DEFAULT 0,
	new_count   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

CREATE TABLE IF NOT EXISTS run_failures (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	notam_id TEXT NOT NULL,
	PRIMARY KEY (run_id, notam_id)
);
`

// Run is one ledger row.
type Run struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	TotalCount int       `json:"totalCount"`
	NewCount   int       `json:"newCount"`
	Skipped    int       `json:"skipped"`
	Warnings   int       `json:"warnings"`
	Error      string    `json:"error,omitempty"`
	Failed     []string  `json:"failed,omitempty"`
}

// Ledger reads and writes runs.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the ledger database at path.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	return newLedger(db, logger), nil
}

// New wraps an already open database, creating the schema if needed.
func New(db *sql.DB, logger *slog.Logger) (*Ledger, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("runlog: schema: %w", err)
	}
	return newLedger(db, logger), nil
}

func newLedger(db *sql.DB, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: db, logger: logger}
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

// Record inserts r and its failed ids in one transaction.
func (l *Ledger) Record(ctx context.Context, r Run) error {
	err := dbopen.RunTx(ctx, l.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, mode, status, started_at, finished_at,
			total_count, new_count, skipped, warnings, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Mode, r.Status, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(),
			r.TotalCount, r.NewCount, r.Skipped, r.Warnings, r.Error,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, id := range r.Failed {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO run_failures (run_id, notam_id) VALUES (?, ?)`,
				r.ID, id,
			); err != nil {
				return fmt.Errorf("insert failure: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("runlog: record %s: %w", r.ID, err)
	}
	l.logger.Debug("runlog: recorded", "run_id", r.ID, "status", r.Status)
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 means 50.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, mode, status, started_at, finished_at,
		total_count, new_count, skipped, warnings, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: list: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runlog: list: %w", err)
	}

	for i := range runs {
		if runs[i].Failed, err = l.failures(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run with its failures.
func (l *Ledger) Get(ctx context.Context, id string) (*Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, mode, status, started_at, finished_at,
		total_count, new_count, skipped, warnings, error
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.Failed, err = l.failures(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

// FailureCounts returns, per notice id, how many recorded runs failed on it.
func (l *Ledger) FailureCounts(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT notam_id, COUNT(*) FROM run_failures GROUP BY notam_id`)
	if err != nil {
		return nil, fmt.Errorf("runlog: failure counts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("runlog: scan failure count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (l *Ledger) failures(ctx context.Context, runID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT notam_id FROM run_failures WHERE run_id = ? ORDER BY notam_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("runlog: failures: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("runlog: scan failure: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started, finished int64
	err := s.Scan(&r.ID, &r.Mode, &r.Status, &started, &finished,
		&r.TotalCount, &r.NewCount, &r.Skipped, &r.Warnings, &r.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("runlog: scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started).UTC()
	r.FinishedAt = time.UnixMilli(finished).UTC()
	return r, nil
}
