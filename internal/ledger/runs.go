package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names what a run did.
type Kind string

const (
	KindFix       Kind = "fix"
	KindOptimize  Kind = "optimize"
	KindTranslate Kind = "translate"
)

// Outcome values stored for runs. Runs still executing carry OutcomeRunning;
// OutcomeInterrupted marks runs the process never finished.
const (
	OutcomeRunning     = "running"
	OutcomeCompleted   = "completed"
	OutcomeCanceled    = "canceled"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded fix, optimize, or translate pass over a subtitle file.
type Run struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Source     string    `json:"source"`
	Model      string    `json:"model,omitempty"`
	Processed  int       `json:"processed"`
	Total      int       `json:"total"`
	Tokens     int       `json:"tokens"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
}

// Duration reports how long a finished run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun records a new run with OutcomeRunning.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("start run: id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, kind, source, model, total, outcome, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Source, run.Model, run.Total, OutcomeRunning, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateProgress stores intermediate counters for a running run.
func (s *Store) UpdateProgress(ctx context.Context, id string, processed, total, tokens int) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET processed = ?, total = ?, tokens = ? WHERE id = ? AND outcome = ?`,
		processed, total, tokens, id, OutcomeRunning,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	return requireRow(res, id)
}

// FinishRun stores the final counters and outcome.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs
		 SET processed = ?, total = ?, tokens = ?, outcome = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		run.Processed, run.Total, run.Tokens, run.Outcome, run.Error, formatTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return requireRow(res, run.ID)
}

// GetRun loads a single run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRunColumns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := selectRunColumns + ` ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
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

// MarkInterrupted closes out runs left in OutcomeRunning by a process that
// exited without finishing them. It returns the number of runs updated and
// does nothing unless this Store is the sole opener, so a live server's runs
// are left alone.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	if !s.sole {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET outcome = ?, finished_at = ? WHERE outcome = ?`,
		OutcomeInterrupted, formatTime(time.Now()), OutcomeRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

const selectRunColumns = `SELECT id, kind, source, model, processed, total, tokens, outcome, error, started_at, finished_at FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		kind       string
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &kind, &run.Source, &run.Model, &run.Processed, &run.Total, &run.Tokens,
		&run.Outcome, &run.Error, &startedAt, &finishedAt); err != nil {
		return Run{}, err
	}
	run.Kind = Kind(kind)
	run.StartedAt = parseTimeString(startedAt)
	run.FinishedAt = parseTimeString(finishedAt)
	return run, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
