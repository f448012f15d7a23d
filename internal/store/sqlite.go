package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat sorts lexicographically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) dir/ljal.db.
func NewSQLiteRunStore(dir string) (*SQLiteRunStore, error) {
	resolved, err := EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(resolved, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun stores run and its curve in one transaction.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run Run) (string, error) {
	if len(run.Mean) != len(run.StdDev) {
		return "", fmt.Errorf("curve length mismatch: %d means, %d deviations", len(run.Mean), len(run.StdDev))
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_curve WHERE run_id = ?`, run.ID); err != nil {
		return "", fmt.Errorf("failed to clear curve: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return "", fmt.Errorf("failed to replace run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, name, created_at, config_yaml,
			agents, actions, alpha, rounds, trials, seed,
			final_mean, final_stddev
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Name, run.CreatedAt.UTC().Format(timeFormat), nullString(run.Config),
		run.Agents, run.Actions, run.Alpha, run.Rounds, run.Trials, int64(run.Seed),
		run.FinalMean, run.FinalStdDev,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_curve (run_id, step, mean, stddev) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare curve insert: %w", err)
	}
	defer stmt.Close()

	for step := range run.Mean {
		if _, err := stmt.ExecContext(ctx, run.ID, step, run.Mean[step], run.StdDev[step]); err != nil {
			return "", fmt.Errorf("failed to insert curve step %d: %w", step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// GetRun retrieves a run and its curve by ID.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT mean, stddev FROM run_curve WHERE run_id = ? ORDER BY step`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query curve: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mean, std float64
		if err := rows.Scan(&mean, &std); err != nil {
			return nil, fmt.Errorf("failed to scan curve: %w", err)
		}
		run.Mean = append(run.Mean, mean)
		run.StdDev = append(run.StdDev, std)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read curve: %w", err)
	}

	return run, nil
}

// ListRuns returns every run without curves, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run; its curve is removed by cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

const runColumns = `id, name, created_at, config_yaml,
	agents, actions, alpha, rounds, trials, seed,
	final_mean, final_stddev`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		createdAt string
		config    sql.NullString
		seed      int64
	)
	err := row.Scan(
		&run.ID, &run.Name, &createdAt, &config,
		&run.Agents, &run.Actions, &run.Alpha, &run.Rounds, &run.Trials, &seed,
		&run.FinalMean, &run.FinalStdDev,
	)
	if err != nil {
		return nil, err
	}

	run.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	run.Config = config.String
	run.Seed = uint64(seed)
	return &run, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
