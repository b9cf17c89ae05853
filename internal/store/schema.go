// schema.go embeds and applies the SQLite schema. Schema files live in
// the sql/ directory and execute in alphabetical order (hence the
// numeric prefixes), each using IF NOT EXISTS so Init stays idempotent.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed sql/*.sql
var schemas embed.FS

var (
	// ErrNotFound indicates the requested record does not exist. Callers
	// check for this to distinguish missing data from other failures.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists prevents duplicate unique values, primarily a
	// user's email address.
	ErrAlreadyExists = errors.New("record already exists")
)

// execSchema executes the embedded schema files in deterministic order.
func execSchema(db *sql.DB) error {
	entries, err := fs.ReadDir(schemas, "sql")
	if err != nil {
		return fmt.Errorf("read schema directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := schemas.ReadFile("sql/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", entry.Name(), err)
		}
	}
	return nil
}
