// Package sqlite is a credentials.Store backed by a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/listenupapp/bookcatalog/internal/credentials"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed credential persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	closed atomic.Bool
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs the schema migration.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite credential store opened", "path", path)
	}

	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Get implements credentials.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, credentials.ErrClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get credential %q: %w", key, err)
	}
	return value, value != "", nil
}

// Set implements credentials.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return credentials.ErrClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("set credential %q: %w", key, err)
	}
	return nil
}

// Delete implements credentials.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return credentials.ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete credential %q: %w", key, err)
	}
	return nil
}

// UpdatedAt reports when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	if s.closed.Load() {
		return time.Time{}, false, credentials.ErrClosed
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM credentials WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get credential %q: %w", key, err)
	}
	t, err := parseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, true, nil
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

var _ credentials.Store = (*Store)(nil)
