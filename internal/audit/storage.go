// storage.go holds the SQLite persistence behind the audit trail,
// separated from the fluent API in audit.go. Write failures are
// reported to stderr but otherwise swallowed: a payment must not fail
// because its audit record could not be written.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

type trail struct {
	db *sql.DB
}

func (t *trail) log(e Entry) {
	var detail *string
	if len(e.Detail) > 0 {
		if b, err := json.Marshal(e.Detail); err == nil {
			s := string(b)
			detail = &s
		}
	}

	success := 0
	if e.Success {
		success = 1
	}

	_, err := t.db.Exec(`
		INSERT INTO audit (start, end, source, action, actor_id, actor_email,
		                   target_kind, target_id, success, error, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Start, e.End, e.Source, e.Action,
		nilIfZero(e.ActorID), nilIfEmpty(e.ActorEmail),
		nilIfEmpty(e.TargetKind), nilIfZero(e.TargetID),
		success, nilIfEmpty(e.Error), detail,
	)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "payd: audit write failed: %v\n", err)
	}
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			start        INTEGER NOT NULL,
			end          INTEGER NOT NULL,
			source       TEXT NOT NULL,
			action       TEXT NOT NULL,
			actor_id     INTEGER,
			actor_email  TEXT,
			target_kind  TEXT,
			target_id    INTEGER,
			success      INTEGER NOT NULL,
			error        TEXT,
			detail       TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_start ON audit(start);
		CREATE INDEX IF NOT EXISTS idx_audit_source ON audit(source);
		CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit(actor_id);
	`)
	return err
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilIfZero(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
