// Package sqlite provides a SQLite-backed key/value medium for progress collections.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

const (
	probeKey = "__storage_probe__"

	schema = `CREATE TABLE IF NOT EXISTS progress_blobs (
	  key        TEXT PRIMARY KEY,
	  value      BLOB NOT NULL,
	  updated_at INTEGER NOT NULL
	)`
)

// Medium persists blobs in a single SQLite table
type Medium struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path
func Open(path string) (*Medium, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Medium{db: db}, nil
}

// Close closes the SQLite handle
func (m *Medium) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *Medium) Probe(ctx context.Context) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := m.Write(ctx, probeKey, []byte(probeKey)); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	return m.Delete(ctx, probeKey)
}

func (m *Medium) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx, `SELECT value FROM progress_blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select blob: %w", err)
	}
	return value, nil
}

func (m *Medium) Write(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := m.db.ExecContext(
		ctx,
		`INSERT INTO progress_blobs (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		data,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert blob: %w", err)
	}
	return nil
}

func (m *Medium) Delete(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM progress_blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
