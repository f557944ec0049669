package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RunStatus is the outcome of a link run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one invocation of the linker.
type Run struct {
	ID        string
	Root      string
	InputHash string
	Status    RunStatus
	// Cached is set when the output came from the link cache.
	Cached      bool
	Bytes       int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// CreateRun starts a run for root.
func (s *SQLiteStore) CreateRun(ctx context.Context, root, inputHash string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	run := &Run{
		ID:        generateID(),
		Root:      root,
		InputHash: inputHash,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("root", root))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, root, input_hash, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.InputHash, string(run.Status), run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun finishes a run. errMsg is recorded for failed runs.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, cached bool, bytes int, errMsg string) error {
	if s.db == nil {
		return errNotOpen
	}
	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, cached = ?, bytes = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), cached, bytes, time.Now().UTC(), errVal, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

const runColumns = `id, root, input_hash, status, cached, bytes, started_at, completed_at, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Root, &run.InputHash, &status, &run.Cached,
		&run.Bytes, &run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return &run, nil
}

// GetRun returns the run with the given ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetLatestRun returns the most recent run for root, or nil if there is none.
func (s *SQLiteStore) GetLatestRun(ctx context.Context, root string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE root = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, root))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
