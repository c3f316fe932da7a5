// Package store persists completed runs to SQLite so traces survive
// restarts and can be inspected after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"dataworks/internal/logging"
	"dataworks/internal/trace"
)

// ErrRunNotFound is returned by Get for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the listing view of a run, without the step data.
type RunSummary struct {
	ID          string            `json:"id"`
	Goal        string            `json:"goal"`
	State       trace.RunState    `json:"state"`
	AbortReason trace.AbortReason `json:"abort_reason,omitempty"`
	StepCount   int               `json:"step_count"`
	Started     time.Time         `json:"started"`
	Finished    time.Time         `json:"finished"`
}

// RunStore keeps finished runs in a single SQLite database.
type RunStore struct {
	db *sql.DB
	mu sync.RWMutex
}

const runSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	goal         TEXT NOT NULL,
	state        TEXT NOT NULL,
	final_answer TEXT NOT NULL DEFAULT '',
	abort_reason TEXT NOT NULL DEFAULT '',
	step_count   INTEGER NOT NULL DEFAULT 0,
	steps        TEXT NOT NULL DEFAULT '[]',
	started_at   TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// Open initializes the run database at the given path, creating parent
// directories as needed.
func Open(path string) (*RunStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.TraceDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.TraceDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much cheaper than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.TraceDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	if _, err := db.Exec(runSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run schema: %w", err)
	}
	logging.TraceDebug("run store opened at %s", path)
	return &RunStore{db: db}, nil
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Save upserts a finished run. Saving the same run ID twice overwrites
// the earlier record.
func (s *RunStore) Save(ctx context.Context, res *trace.RunResult) error {
	steps, err := json.Marshal(res.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, goal, state, final_answer, abort_reason, step_count, steps, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			final_answer = excluded.final_answer,
			abort_reason = excluded.abort_reason,
			step_count = excluded.step_count,
			steps = excluded.steps,
			finished_at = excluded.finished_at`,
		res.Task.ID, res.Task.Goal, string(res.State), res.FinalAnswer,
		string(res.AbortReason), len(res.Steps), string(steps),
		res.Started.UTC(), res.Finished.UTC())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", res.Task.ID, err)
	}
	logging.TraceDebug("saved run %s (%d steps)", res.Task.ID, len(res.Steps))
	return nil
}

// Get loads one run with its full trace.
func (s *RunStore) Get(ctx context.Context, id string) (*trace.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		res      trace.RunResult
		state    string
		reason   string
		rawSteps string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, goal, state, final_answer, abort_reason, steps, started_at, finished_at
		FROM runs WHERE id = ?`, id).Scan(
		&res.Task.ID, &res.Task.Goal, &state, &res.FinalAnswer,
		&reason, &rawSteps, &res.Started, &res.Finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	res.State = trace.RunState(state)
	res.AbortReason = trace.AbortReason(reason)
	if err := json.Unmarshal([]byte(rawSteps), &res.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps for run %s: %w", id, err)
	}
	return &res, nil
}

// List returns run summaries, most recent first. A limit of zero or
// less means no limit.
func (s *RunStore) List(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, goal, state, abort_reason, step_count, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum    RunSummary
			state  string
			reason string
		)
		if err := rows.Scan(&sum.ID, &sum.Goal, &state, &reason, &sum.StepCount, &sum.Started, &sum.Finished); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		sum.State = trace.RunState(state)
		sum.AbortReason = trace.AbortReason(reason)
		out = append(out, sum)
	}
	return out, rows.Err()
}
