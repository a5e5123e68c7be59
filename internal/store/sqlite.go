package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode so a preview server can read while a run is writing.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_updated ON runs(updated_at);

	CREATE TABLE IF NOT EXISTS artifacts (
		run_id TEXT NOT NULL,
		agent TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, agent)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertRun creates or updates a run record.
func (s *SQLiteStore) UpsertRun(ctx context.Context, run *Run) error {
	query := `
	INSERT INTO runs (run_id, prompt, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		prompt = excluded.prompt,
		status = excluded.status,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Prompt, run.Status,
		run.CreatedAt.Unix(), run.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// UpdateRunStatus updates only the status and updated_at of a run.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID, status string) error {
	query := `UPDATE runs SET status = ?, updated_at = ? WHERE run_id = ?`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().Unix(), runID)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateRunStatus affected 0 rows", "run_id", runID)
	}
	return nil
}

// GetRun retrieves a run, or nil if unknown.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `SELECT run_id, prompt, status, created_at, updated_at FROM runs WHERE run_id = ?`
	return scanRun(s.db.QueryRowContext(ctx, query, runID))
}

// LatestRun retrieves the most recently updated run, or nil.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	query := `
	SELECT run_id, prompt, status, created_at, updated_at
	FROM runs ORDER BY updated_at DESC, run_id DESC LIMIT 1`
	return scanRun(s.db.QueryRowContext(ctx, query))
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var createdAt, updatedAt int64

	err := row.Scan(&run.ID, &run.Prompt, &run.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}

	run.CreatedAt = time.Unix(createdAt, 0)
	run.UpdatedAt = time.Unix(updatedAt, 0)
	return &run, nil
}

// SaveArtifact stores (or overwrites) one agent's artifact JSON for a run.
// Retries briefly on SQLITE_BUSY since the preview server may hold a read.
func (s *SQLiteStore) SaveArtifact(ctx context.Context, runID, agent string, payload []byte) error {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.saveArtifactOnce(ctx, runID, agent, payload)
		if err == nil {
			return nil
		}
		if !isSQLiteConflict(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SaveArtifact hit SQLITE_BUSY, retrying",
			"run_id", runID, "agent", agent, "attempt", i+1, "delay", delay)
		time.Sleep(delay)
	}
	return fmt.Errorf("save artifact %s/%s: %w", runID, agent, err)
}

func (s *SQLiteStore) saveArtifactOnce(ctx context.Context, runID, agent string, payload []byte) error {
	query := `
	INSERT INTO artifacts (run_id, agent, payload_json, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(run_id, agent) DO UPDATE SET
		payload_json = excluded.payload_json,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, runID, agent, string(payload), time.Now().Unix())
	return err
}

// GetArtifact retrieves one agent's artifact JSON, or nil if absent.
func (s *SQLiteStore) GetArtifact(ctx context.Context, runID, agent string) ([]byte, error) {
	query := `SELECT payload_json FROM artifacts WHERE run_id = ? AND agent = ?`

	var payload string
	err := s.db.QueryRowContext(ctx, query, runID, agent).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan artifact row: %w", err)
	}
	return []byte(payload), nil
}

// ListArtifacts retrieves all artifacts of a run keyed by agent name.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, runID string) (map[string][]byte, error) {
	query := `SELECT agent, payload_json FROM artifacts WHERE run_id = ?`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close artifact rows", "error", closeErr)
		}
	}()

	out := make(map[string][]byte)
	for rows.Next() {
		var agent, payload string
		if err := rows.Scan(&agent, &payload); err != nil {
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}
		out[agent] = []byte(payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isSQLiteConflict matches the two shapes of SQLite concurrency errors.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
