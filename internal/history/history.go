// Package history persists sync run outcomes in a local SQLite
// database.
//
// The database runs in embedded mode with WAL so the watch daemon can
// write runs while the history command and the dashboard read them.
// Timestamps are stored as RFC3339 strings, durations as integer
// milliseconds.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sheetsync/internal/engine"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Run is one recorded sync attempt.
type Run struct {
	ID            string
	StartedAt     time.Time
	Status        string
	RowCount      int
	SpreadsheetID string
	Message       string
	Error         string
	Duration      time.Duration
}

// Summary aggregates the run log for status displays.
type Summary struct {
	TotalRuns  int
	ByStatus   map[string]int
	RowsSynced int
	LastRunAt  *time.Time
}

// timeLayout is RFC3339 with a fixed-width fraction so that string
// comparison in ORDER BY matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps the SQLite connection holding the run log.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a connection to the run database at the specified path,
// creating the file and parent directories as needed.
//
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL lets the dashboard read while the daemon writes.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// InitSchema creates the schema if it doesn't exist. Idempotent.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		status TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		spreadsheet_id TEXT,
		message TEXT,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Record implements engine.Recorder by inserting the result as a run.
func (s *Store) Record(ctx context.Context, result engine.SyncResult) error {
	run := Run{
		ID:            uuid.NewString(),
		StartedAt:     time.Now().UTC().Add(-result.Duration),
		Status:        result.Status.String(),
		RowCount:      result.RowCount,
		SpreadsheetID: result.SpreadsheetID,
		Message:       result.Message,
		Duration:      result.Duration,
	}
	if result.Err != nil {
		run.Error = result.Err.Error()
	}
	return s.Insert(ctx, run)
}

// Insert writes one run.
func (s *Store) Insert(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}
	if run.Status == "" {
		return fmt.Errorf("run %s has no status", run.ID)
	}

	query := `
	INSERT INTO sync_runs (
		id, started_at, status, row_count,
		spreadsheet_id, message, error, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.conn.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.Status,
		run.RowCount,
		textOrNull(run.SpreadsheetID),
		textOrNull(run.Message),
		textOrNull(run.Error),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
// A limit of 0 means no limit.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	return s.ListRunsContext(context.Background(), limit)
}

// ListRunsContext returns recent runs with context support.
func (s *Store) ListRunsContext(ctx context.Context, limit int) ([]Run, error) {
	query := runColumns + ` ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// ListRunsSince returns runs started at or after the given time,
// newest first.
func (s *Store) ListRunsSince(ctx context.Context, since time.Time) ([]Run, error) {
	query := runColumns + ` WHERE started_at >= ? ORDER BY started_at DESC`

	rows, err := s.conn.QueryContext(ctx, query, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs since %s: %w", since, err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// LastRun returns the most recent run, or nil when no run was
// recorded yet.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRunsContext(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// CountByStatus returns the number of runs per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return counts, nil
}

// Summarize aggregates the whole run log.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	counts, err := s.CountByStatus(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{ByStatus: counts}
	for _, n := range counts {
		summary.TotalRuns += n
	}

	row := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(row_count), 0) FROM sync_runs WHERE status = ?`,
		engine.StatusOK.String(),
	)
	if err := row.Scan(&summary.RowsSynced); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize runs: %w", err)
	}

	last, err := s.LastRun(ctx)
	if err != nil {
		return Summary{}, err
	}
	if last != nil {
		t := last.StartedAt
		summary.LastRunAt = &t
	}
	return summary, nil
}

const runColumns = `
	SELECT id, started_at, status, row_count,
	       spreadsheet_id, message, error, duration_ms
	FROM sync_runs`

// scanRuns reads query results into Run values.
func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run

	for rows.Next() {
		var run Run
		var startedAt string
		var spreadsheetID, message, errText sql.NullString
		var durationMS int64

		err := rows.Scan(
			&run.ID,
			&startedAt,
			&run.Status,
			&run.RowCount,
			&spreadsheetID,
			&message,
			&errText,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			run.StartedAt = t
		}
		run.SpreadsheetID = spreadsheetID.String
		run.Message = message.String
		run.Error = errText.String
		run.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// textOrNull converts an empty string to SQL NULL.
func textOrNull(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
