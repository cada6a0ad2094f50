package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// OpenSQLite opens (and creates) the SQLite database at path. The pool is
// limited to one connection so writers queue instead of failing busy.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open log db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping log db: %w", err)
	}
	return db, nil
}

// SQLiteLog stores entries as JSON rows in one table. Insert and trim run
// in a single transaction.
type SQLiteLog[T any] struct {
	db       *sql.DB
	table    string
	capacity int
}

// NewSQLiteLog binds a log to table, creating it if needed.
func NewSQLiteLog[T any](db *sql.DB, table string, capacity int) (*SQLiteLog[T], error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid log table name %q", table)
	}
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			payload_json TEXT NOT NULL
		)
	`, table))
	if err != nil {
		return nil, fmt.Errorf("create %s schema: %w", table, err)
	}
	return &SQLiteLog[T]{db: db, table: table, capacity: capacity}, nil
}

func (s *SQLiteLog[T]) Capacity() int { return s.capacity }

func (s *SQLiteLog[T]) Append(ctx context.Context, entry T) error {
	if s.capacity <= 0 {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s append: %w", s.table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (ts, payload_json) VALUES (?, ?)", s.table),
		time.Now().UTC(), string(payload),
	); err != nil {
		return fmt.Errorf("insert %s entry: %w", s.table, err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %[1]s WHERE id NOT IN (SELECT id FROM %[1]s ORDER BY id DESC LIMIT ?)", s.table),
		s.capacity,
	); err != nil {
		return fmt.Errorf("trim %s: %w", s.table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s append: %w", s.table, err)
	}
	return nil
}

func (s *SQLiteLog[T]) Recent(ctx context.Context, n int) ([]T, error) {
	if n <= 0 || n > s.capacity {
		n = s.capacity
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT payload_json FROM (SELECT id, payload_json FROM %s ORDER BY id DESC LIMIT ?) ORDER BY id ASC", s.table),
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.table, err)
		}
		var entry T
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", s.table, err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
