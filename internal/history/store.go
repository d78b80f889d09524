package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rebeliceyang/sequel/internal/session"
)

//go:embed schema.sql
var schemaSQL string

// HistoryEntry represents a single query history entry
type HistoryEntry struct {
	ID             int           `json:"id"`
	ConnectionName string        `json:"connection"`
	DBMS           string        `json:"dbms"`
	DatabaseName   string        `json:"database"`
	Query          string        `json:"query"`
	ExecutedAt     time.Time     `json:"executedAt"`
	Duration       time.Duration `json:"durationNs"`
	RowsAffected   int64         `json:"rowsAffected"`
	Success        bool          `json:"success"`
	ErrorMessage   string        `json:"error,omitempty"`
}

// Store manages query history persistence
type Store struct {
	db         *sql.DB
	maxEntries int
}

// NewStore opens (and creates) the history database at path.
// maxEntries <= 0 keeps everything.
func NewStore(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store, err := newStore(db, maxEntries)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func newStore(db *sql.DB, maxEntries int) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Add adds a new query to history and trims old entries
func (s *Store) Add(ctx context.Context, entry HistoryEntry) error {
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_history
		(connection_name, dbms, database_name, query, executed_at, duration_ms, rows_affected, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ConnectionName,
		entry.DBMS,
		entry.DatabaseName,
		entry.Query,
		entry.ExecutedAt.UTC(),
		entry.Duration.Milliseconds(),
		entry.RowsAffected,
		entry.Success,
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	if s.maxEntries > 0 {
		return s.Trim(ctx, s.maxEntries)
	}
	return nil
}

// Record stores a session query execution
func (s *Store) Record(ctx context.Context, exec session.Execution) error {
	entry := HistoryEntry{
		ConnectionName: exec.Connection.DisplayName(),
		DBMS:           exec.Connection.DBMS.String(),
		DatabaseName:   exec.Database,
		Query:          exec.Query,
		ExecutedAt:     exec.ExecutedAt,
		Duration:       exec.Duration,
	}

	switch {
	case exec.Err != nil:
		entry.ErrorMessage = exec.Err.Error()
	case exec.Response != nil:
		entry.Success = exec.Response.Status
		entry.RowsAffected = int64(exec.Response.RowCount)
		entry.ErrorMessage = exec.Response.Error
	default:
		entry.Success = true
	}

	return s.Add(ctx, entry)
}

// GetRecent retrieves the most recent query history entries
func (s *Store) GetRecent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, connection_name, dbms, database_name, query, executed_at,
		       duration_ms, rows_affected, success, error_message
		FROM query_history
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return scanEntries(rows)
}

// Search searches query history by query text
func (s *Store) Search(ctx context.Context, query string, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, connection_name, dbms, database_name, query, executed_at,
		       duration_ms, rows_affected, success, error_message
		FROM query_history
		WHERE query LIKE ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %w", err)
	}
	return scanEntries(rows)
}

// Trim keeps only the newest max entries
func (s *Store) Trim(ctx context.Context, max int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM query_history
		WHERE id NOT IN (
			SELECT id FROM query_history ORDER BY executed_at DESC, id DESC LIMIT ?
		)`, max)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]HistoryEntry, error) {
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var durationMs int64

		err := rows.Scan(
			&e.ID,
			&e.ConnectionName,
			&e.DBMS,
			&e.DatabaseName,
			&e.Query,
			&e.ExecutedAt,
			&durationMs,
			&e.RowsAffected,
			&e.Success,
			&e.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
