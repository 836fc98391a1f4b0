package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// ErrNotFound returned by Get for missing key
var ErrNotFound = errors.New("key not found")

// SQLite implements KV with a single sqlite table
type SQLite struct {
	db *sqlx.DB
}

// NewSQLite opens (or creates) the database file and makes the schema.
// Busy or locked database is retried a few times, another attendo process may hold the file.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer, keeps pragmas on one connection

	rptr := repeater.New(&strategy.FixedDelay{Repeats: 3, Delay: 100 * time.Millisecond})
	err = rptr.Do(context.Background(), func() error {
		if _, e := db.Exec("PRAGMA journal_mode=WAL"); e != nil {
			if isBusy(e) {
				log.Printf("[DEBUG] database %s is busy, retry", dbPath)
			}
			return e
		}
		return nil
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	res := &SQLite{db: db}
	if err := res.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return res, nil
}

func (s *SQLite) initialize() error {
	query := `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER
	)`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Get returns value for the key or ErrNotFound
func (s *SQLite) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.Get(&value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, nil
}

// Set writes value for the key, replacing the previous one
func (s *SQLite) Set(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Delete removes the key, missing key is not an error
func (s *SQLite) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
