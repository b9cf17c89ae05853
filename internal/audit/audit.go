// Package audit provides a persistent audit trail for payd operations.
// Entries record who did what to which resource: logins, provisioning
// actions, invoice payments, ticket changes. The trail lives in its own
// SQLite database next to the main one so billing queries never contend
// with audit writes.
//
// # Fluent API
//
// Build and write entries with the fluent builder:
//
//	audit.Event("service:provision", "create").
//		Actor(user.ID, user.Email).
//		Target("service", svc.ID).
//		Detail("extension", svc.Extension).
//		Write(err)
//
// The source follows "{area}:{operation}", e.g. "auth:login",
// "invoice:pay", "webhook:stripe".
package audit

import (
	"database/sql"
	"sync"
	"time"
)

var (
	global *trail
	mu     sync.Mutex
)

// Entry is one recorded operation.
type Entry struct {
	Source     string // e.g. "service:provision", "webhook:stripe"
	Action     string // verb: create, suspend, pay, login, ...
	ActorID    int64  // user who performed the action; zero for system
	ActorEmail string
	TargetKind string // resource type: service, invoice, ticket, user
	TargetID   int64

	Start int64 // unix timestamp when Event() was called
	End   int64 // unix timestamp when Write() was called

	Success bool
	Error   string
	Detail  map[string]any
}

// Builder constructs an audit entry. Create with [Event], chain setters,
// then call [Builder.Write] to record it.
type Builder struct {
	entry Entry
}

// Event starts a new audit entry for an operation. Source identifies
// the area and operation ("invoice:pay"), action is the verb.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().Unix(),
		},
	}
}

// Actor records who performed the operation. Pass zero and empty for
// system-initiated work such as webhook processing.
func (b *Builder) Actor(id int64, email string) *Builder {
	b.entry.ActorID = id
	b.entry.ActorEmail = email
	return b
}

// Target records the resource the operation affected.
func (b *Builder) Target(kind string, id int64) *Builder {
	b.entry.TargetKind = kind
	b.entry.TargetID = id
	return b
}

// Detail adds a key-value pair of operation-specific data. Can be
// called multiple times.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write records the entry, deriving success or failure from err. Safe
// to call when the trail was never opened (no-op), and a failed write
// never breaks the operation being audited.
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().Unix()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global audit trail at path. Safe to call more
// than once.
func Open(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	global = &trail{db: db}
	return nil
}

// Log writes an entry. No-op when the trail is not open.
func Log(e Entry) {
	mu.Lock()
	t := global
	mu.Unlock()

	if t == nil {
		return
	}
	t.log(e)
}

// Close closes the global trail.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
