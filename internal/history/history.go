// Package history persists run summaries to a local SQLite database so
// past syncs and their failures can be inspected after the fact.
package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/adbsink/adbsink/internal/db"
	"github.com/adbsink/adbsink/internal/sync"
	"github.com/adbsink/adbsink/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,
    direction TEXT NOT NULL,
    source TEXT NOT NULL,
    dest TEXT NOT NULL,
    dry_run INTEGER NOT NULL,
    started_at TEXT NOT NULL, -- RFC3339
    duration_ms INTEGER NOT NULL,
    copied INTEGER NOT NULL,
    deleted INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    bytes INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON sync_runs(started_at);

CREATE TABLE IF NOT EXISTS sync_outcomes (
    run_id TEXT NOT NULL REFERENCES sync_runs(id),
    path TEXT NOT NULL,
    op TEXT NOT NULL,
    status TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON sync_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_status ON sync_outcomes(status);
`

// Run is one recorded sync.
type Run struct {
	ID        string
	Direction string
	Source    string
	Dest      string
	DryRun    bool
	StartedAt time.Time
	Duration  time.Duration
	Copied    int
	Deleted   int
	Skipped   int
	Failed    int
	Bytes     int64
}

// dbRun scans from the database, where the start time is TEXT.
type dbRun struct {
	ID         string `db:"id"`
	Direction  string `db:"direction"`
	Source     string `db:"source"`
	Dest       string `db:"dest"`
	DryRun     bool   `db:"dry_run"`
	StartedAt  string `db:"started_at"`
	DurationMS int64  `db:"duration_ms"`
	Copied     int    `db:"copied"`
	Deleted    int    `db:"deleted"`
	Skipped    int    `db:"skipped"`
	Failed     int    `db:"failed"`
	Bytes      int64  `db:"bytes"`
}

func (r *dbRun) toRun() (Run, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at of run %s: %w", r.ID, err)
	}
	return Run{
		ID:        r.ID,
		Direction: r.Direction,
		Source:    r.Source,
		Dest:      r.Dest,
		DryRun:    r.DryRun,
		StartedAt: startedAt,
		Duration:  time.Duration(r.DurationMS) * time.Millisecond,
		Copied:    r.Copied,
		Deleted:   r.Deleted,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		Bytes:     r.Bytes,
	}, nil
}

// Failure is one failed entry of a recorded run.
type Failure struct {
	RunID     string `db:"run_id"`
	Path      string `db:"path"`
	Op        string `db:"op"`
	Reason    string `db:"reason"`
	Error     string `db:"error"`
	StartedAt string `db:"started_at"`
}

// Store manages the history database.
type Store struct {
	db     *sqlx.DB
	dbPath string
}

// NewStore points a store at a database file; Open creates it on demand.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Open the store and the underlying database.
func (s *Store) Open() error {
	if s.db != nil {
		return fmt.Errorf("history store already open")
	}
	if err := utils.EnsureParent(s.dbPath); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	sdb, err := db.Open(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	if _, err := sdb.Exec(schema); err != nil {
		sdb.Close()
		return fmt.Errorf("initialize history schema: %w", err)
	}

	s.db = sdb
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return fmt.Errorf("history store not open")
	}
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close history database", "error", err)
		return err
	}
	s.db = nil
	return nil
}

// Record stores one report and returns the run id. Skip and recurse
// outcomes are summary-only; copies, deletes and failures keep a row each.
func (s *Store) Record(rep *sync.Report) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.Beginx()
	if err != nil {
		return "", fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sync_runs
		 (id, direction, source, dest, dry_run, started_at, duration_ms, copied, deleted, skipped, failed, bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rep.Direction, rep.Source, rep.Dest, rep.DryRun,
		rep.StartedAt.Format(time.RFC3339Nano), rep.Duration.Milliseconds(),
		rep.Copied, rep.Deleted, rep.Skipped, rep.Failed, rep.Bytes,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, o := range rep.Outcomes {
		switch o.Status {
		case sync.StatusSkipped, sync.StatusRecursed:
			continue
		}
		_, err = tx.Exec(
			`INSERT INTO sync_outcomes (run_id, path, op, status, reason, error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, string(o.Action.Path), string(o.Action.Op), string(o.Status),
			string(o.Action.Reason), o.Error,
		)
		if err != nil {
			return "", fmt.Errorf("insert outcome %s: %w", o.Action.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit history transaction: %w", err)
	}
	return runID, nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	var rows []dbRun
	err := s.db.Select(&rows,
		`SELECT id, direction, source, dest, dry_run, started_at, duration_ms, copied, deleted, skipped, failed, bytes
		 FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for i := range rows {
		run, err := rows[i].toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// RecentFailures returns the latest failed entries across all runs.
func (s *Store) RecentFailures(limit int) ([]Failure, error) {
	var failures []Failure
	err := s.db.Select(&failures,
		`SELECT o.run_id, o.path, o.op, o.reason, o.error, r.started_at
		 FROM sync_outcomes o
		 JOIN sync_runs r ON r.id = o.run_id
		 WHERE o.status = ?
		 ORDER BY r.started_at DESC
		 LIMIT ?`, string(sync.StatusFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	return failures, nil
}
