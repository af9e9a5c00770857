package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"socialvibe/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS state (
	namespace  TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLite хранит состояние в локальном файле SQLite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite открывает базу по пути и создаёт таблицу состояния.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Один писатель на файл.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Load читает пространство имён.
func (s *SQLite) Load(ctx context.Context, namespace string, v any) (bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE namespace = ?", namespace).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", namespace, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", namespace, err)
	}
	return true, nil
}

// Save записывает пространство имён.
func (s *SQLite) Save(ctx context.Context, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", namespace, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO state (namespace, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, raw, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %s: %w", namespace, err)
	}
	return nil
}

// Clear стирает все пространства имён одним запросом.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM state"); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

// Close закрывает базу.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ domain.StateStorage = (*SQLite)(nil)
