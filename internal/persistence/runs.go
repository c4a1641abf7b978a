package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one recorded Execute call.
type Run struct {
	ID         string
	Command    string
	Makefile   string
	Scheduler  string
	DryRun     bool
	Jobs       int
	Targets    []string // Registration order
	ExitCode   int
	Error      string // Launch failure, empty when make ran
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrRunNotFound is wrapped by GetRun for unknown IDs.
var ErrRunNotFound = errors.New("run not found")

// SaveRun saves or replaces a run and its targets.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, command, makefile, scheduler, dry_run, jobs, exit_code, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			command = excluded.command,
			makefile = excluded.makefile,
			scheduler = excluded.scheduler,
			dry_run = excluded.dry_run,
			jobs = excluded.jobs,
			exit_code = excluded.exit_code,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, run.ID, run.Command, run.Makefile, run.Scheduler, run.DryRun, run.Jobs, run.ExitCode, run.Error,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_targets WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to delete old targets: %w", err)
	}

	for i, target := range run.Targets {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_targets (run_id, position, target)
			VALUES (?, ?, ?)
		`, run.ID, i, target)
		if err != nil {
			return fmt.Errorf("failed to insert target %s: %w", target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID. Returns a wrapped ErrRunNotFound if it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, command, makefile, scheduler, dry_run, jobs, exit_code, error, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if run.Targets, err = s.targets(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first. limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command, makefile, scheduler, dry_run, jobs, exit_code, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	// Release the only connection before querying targets
	rows.Close()

	for _, run := range runs {
		if run.Targets, err = s.targets(ctx, run.ID); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

func (s *SQLiteStore) targets(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target FROM run_targets WHERE run_id = ? ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	targets := []string{}
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating targets: %w", err)
	}
	return targets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run             Run
		errStr          sql.NullString
		started, finish int64
	)
	if err := row.Scan(&run.ID, &run.Command, &run.Makefile, &run.Scheduler, &run.DryRun, &run.Jobs,
		&run.ExitCode, &errStr, &started, &finish); err != nil {
		return nil, err
	}
	run.Error = errStr.String
	run.StartedAt = time.Unix(0, started)
	run.FinishedAt = time.Unix(0, finish)
	return &run, nil
}
