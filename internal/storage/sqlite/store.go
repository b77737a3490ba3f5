// Package sqlite persists storage areas in a SQLite file so client state
// survives between CLI runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sitefront/tenant-gateway/internal/storage"
)

// Area names used by the client runtime.
const (
	AreaLocal   = "local"
	AreaSession = "session"
)

// DB is an open SQLite state file. Each named area is an independent
// key space.
type DB struct {
	db *sql.DB
}

// Area is one key space of a DB.
type Area struct {
	db   *sql.DB
	name string
}

var _ storage.Store = (*Area)(nil)

// Open opens or creates the state file at dbPath.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &DB{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *DB) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			area TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (area, key)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Area returns the key space called name.
func (s *DB) Area(name string) *Area {
	return &Area{db: s.db, name: name}
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

func (a *Area) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := a.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE area = ? AND key = ?`, a.name, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (a *Area) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO kv (area, key, value, updated_at) VALUES (?, ?, ?, ?)
	          ON CONFLICT(area, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := a.db.ExecContext(ctx, query, a.name, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (a *Area) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM kv WHERE area = ? AND key = ?`, a.name, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key in the area.
func (a *Area) Clear(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM kv WHERE area = ?`, a.name); err != nil {
		return fmt.Errorf("failed to clear %s: %w", a.name, err)
	}
	return nil
}

// Keys lists the area's keys in order.
func (a *Area) Keys(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT key FROM kv WHERE area = ? ORDER BY key`, a.name)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
