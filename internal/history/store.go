// Package history records probe runs in a local SQLite database so that
// readiness can be tracked across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"probe/internal/logging"
	"probe/internal/probe"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored run summary.
type Run struct {
	ID           string
	Checklist    string
	Root         string
	FailFast     bool
	Passed       bool
	StartedAt    time.Time
	FinishedAt   time.Time
	FirstFailure string
	StepsPassed  int
	StepsFailed  int
	StepsSkipped int
	Steps        []StepRow
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// StepRow is a stored step result.
type StepRow struct {
	Seq          int
	StepID       string
	Name         string
	Status       probe.Status
	FailedTarget string
	Duration     time.Duration
}

// Store persists run history.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.HistoryDebug("opened history database %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		checklist TEXT NOT NULL,
		root TEXT NOT NULL,
		fail_fast INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		first_failure TEXT NOT NULL DEFAULT '',
		steps_passed INTEGER NOT NULL,
		steps_failed INTEGER NOT NULL,
		steps_skipped INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS step_results (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		step_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		failed_target TEXT NOT NULL DEFAULT '',
		duration_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a report and its step results in one transaction.
func (s *Store) Record(ctx context.Context, r *probe.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	passed, failed, skipped := r.Counts()
	firstFailure := ""
	if _, t, ok := r.FirstFailure(); ok {
		firstFailure = t.Target.Path
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, checklist, root, fail_fast, passed, started_at, finished_at,
			first_failure, steps_passed, steps_failed, steps_skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Checklist, r.Root, boolToInt(r.FailFast), boolToInt(r.Passed()),
		r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(),
		firstFailure, passed, failed, skipped)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, sr := range r.Steps {
		failedTarget := ""
		if t, ok := sr.FirstFailure(); ok {
			failedTarget = t.Target.Path
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_results (run_id, seq, step_id, name, status, failed_target, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, sr.Step.ID, sr.Step.Name, string(sr.Status), failedTarget, int64(sr.Duration))
		if err != nil {
			return fmt.Errorf("failed to insert step %q: %w", sr.Step.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	logging.History("recorded run %s (passed=%v)", r.RunID, r.Passed())
	return nil
}

// Recent returns up to limit run summaries, newest first. Steps are not loaded.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, checklist, root, fail_fast, passed, started_at, finished_at,
			first_failure, steps_passed, steps_failed, steps_skipped
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns a run with its step rows. The id may be a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, checklist, root, fail_fast, passed, started_at, finished_at,
			first_failure, steps_passed, steps_failed, steps_skipped
		FROM runs WHERE id = ? OR id LIKE ? || '%' LIMIT 2`, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
	default:
		if matches[0].ID != id && matches[1].ID != id {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
		}
		if matches[1].ID == id {
			matches[0] = matches[1]
		}
	}
	run := matches[0]

	stepRows, err := s.db.QueryContext(ctx, `
		SELECT seq, step_id, name, status, failed_target, duration_ns
		FROM step_results WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer stepRows.Close()

	for stepRows.Next() {
		var (
			sr     StepRow
			status string
			dur    int64
		)
		if err := stepRows.Scan(&sr.Seq, &sr.StepID, &sr.Name, &status, &sr.FailedTarget, &dur); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		sr.Status = probe.Status(status)
		sr.Duration = time.Duration(dur)
		run.Steps = append(run.Steps, sr)
	}
	return &run, stepRows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		return 0, fmt.Errorf("keep must be >= 0, got %d", keep)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT -1 OFFSET ?`

	if _, err := tx.ExecContext(ctx, `DELETE FROM step_results WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("failed to prune steps: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	if n > 0 {
		logging.History("pruned %d runs (keep=%d)", n, keep)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                   Run
		failFast, passed    int
		startedNs, finishNs int64
	)
	err := sc.Scan(&r.ID, &r.Checklist, &r.Root, &failFast, &passed, &startedNs, &finishNs,
		&r.FirstFailure, &r.StepsPassed, &r.StepsFailed, &r.StepsSkipped)
	if err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	r.FailFast = failFast != 0
	r.Passed = passed != 0
	r.StartedAt = time.Unix(0, startedNs)
	r.FinishedAt = time.Unix(0, finishNs)
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
