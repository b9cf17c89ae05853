// sqlite_ops.go provides SQLite connection management. This is the only
// file that imports the driver.
//
// WAL mode with a busy timeout balances concurrency and durability: WAL
// allows concurrent readers during writes, which matters once webhook
// and API traffic overlap, and the busy timeout prevents "database is
// locked" errors without waiting forever on a stuck connection.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	// Register sqlite driver
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding all billing entities.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database file at path and returns a configured
// Store. The caller should call Close on the returned store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`PRAGMA synchronous=NORMAL`,
		`PRAGMA foreign_keys=ON`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &Store{db: db}, nil
}

// Init creates tables and indexes if they don't exist. Safe to call
// multiple times.
func (s *Store) Init() error {
	return execSchema(s.db)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure. The modernc driver surfaces these as plain errors, so string
// matching is the only portable check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
