// Package store provides the embedded SQLite persistence layer.
//
// Concurrency discipline: exactly one writer at a time across the whole
// process (writeMu); readers proceed in parallel under WAL. Writes retry on
// transient lock contention with bounded backoff.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	writeAttempts  = 5
	writeRetryBase = 100 * time.Millisecond
)

// Store wraps the SQLite database with a single-writer discipline.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	path    string
}

// Open opens (creating if needed) the database at dbPath and applies the
// schema. The database file's directory is created if it doesn't exist.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for concurrent readers, busy_timeout as a second line of
	// defense behind the write mutex
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.Exec("INSERT INTO metadata (key, value) VALUES ('schema_version', ?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert schema version: %w", err)
		}
	} else if err != nil {
		db.Close()
		return nil, fmt.Errorf("check schema version: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Query runs a SELECT and returns the rows. The caller must Close them.
func (s *Store) Query(query string, args ...any) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

// QueryRow runs a SELECT expected to return at most one row.
func (s *Store) QueryRow(query string, args ...any) *sql.Row {
	return s.db.QueryRow(query, args...)
}

// Write runs an INSERT/UPDATE/DELETE under the process-wide write mutex and
// returns the number of affected rows. Transient lock errors are retried up
// to writeAttempts times with linearly growing delay.
func (s *Store) Write(query string, args ...any) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		res, err := s.db.Exec(query, args...)
		if err == nil {
			return res.RowsAffected()
		}
		if !isLockError(err) {
			return 0, err
		}
		lastErr = err
		time.Sleep(writeRetryBase * time.Duration(attempt))
	}
	return 0, fmt.Errorf("write failed after %d attempts: %w", writeAttempts, lastErr)
}

// WriteTx runs fn inside a transaction under the write mutex. The
// transaction is rolled back if fn returns an error.
func (s *Store) WriteTx(fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		err := s.runTx(fn)
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return err
		}
		lastErr = err
		time.Sleep(writeRetryBase * time.Duration(attempt))
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", writeAttempts, lastErr)
}

func (s *Store) runTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Vacuum reclaims space and defragments the database file.
func (s *Store) Vacuum() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec("VACUUM")
	return err
}

// Analyze refreshes query-planner statistics.
func (s *Store) Analyze() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec("ANALYZE")
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// isLockError reports whether err is transient SQLite lock contention.
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") || strings.Contains(msg, "busy")
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
