// registry.go implements discovery and lookup of extension
// implementations.
//
// The source of candidates is an explicit registration list rather than
// any runtime scanning: packages under extension/ register a factory per
// (category, name) before Load runs, typically through extension/all.
// Load is one-shot and guarded, so concurrent first access observes
// exactly one discovery pass, and the resulting index is read-only for
// the life of the process.
package extension

import (
	"log/slog"
	"strings"
	"sync"
)

// ServerFactory builds a server extension bound to cfg.
type ServerFactory func(cfg Config) Server

// GatewayFactory builds a gateway extension bound to cfg.
type GatewayFactory func(cfg Config) Gateway

// OtherFactory builds an other-category extension bound to cfg.
type OtherFactory func(cfg Config) Other

// candidate is one registered implementation awaiting discovery.
type candidate struct {
	category Category
	name     string
	build    func(cfg Config) Extension
}

// Registry discovers, indexes, and brokers access to extension
// implementations. Construct one with New at startup and pass it to the
// components that need extension access; there is no package-level
// singleton.
type Registry struct {
	mu     sync.Mutex
	loaded bool
	loads  int // discovery passes performed; stays at 1 after first Load

	candidates []candidate

	// Populated by Load. Keys are lowercased names; order preserves the
	// registration (discovery) order per category.
	index map[Category]map[string]candidate
	order map[Category][]string
}

// New creates an empty Registry. Register the available implementations,
// then call Load (or let the first lookup trigger it).
func New() *Registry {
	return &Registry{
		index: make(map[Category]map[string]candidate),
		order: make(map[Category][]string),
	}
}

// RegisterServer registers a server extension factory under name.
func (r *Registry) RegisterServer(name string, f ServerFactory) {
	var build func(Config) Extension
	if f != nil {
		build = func(cfg Config) Extension { return f(cfg) }
	}
	r.register(CategoryServer, name, build)
}

// RegisterGateway registers a payment gateway factory under name.
func (r *Registry) RegisterGateway(name string, f GatewayFactory) {
	var build func(Config) Extension
	if f != nil {
		build = func(cfg Config) Extension { return f(cfg) }
	}
	r.register(CategoryGateway, name, build)
}

// RegisterOther registers an other-category factory under name.
func (r *Registry) RegisterOther(name string, f OtherFactory) {
	var build func(Config) Extension
	if f != nil {
		build = func(cfg Config) Extension { return f(cfg) }
	}
	r.register(CategoryOther, name, build)
}

func (r *Registry) register(cat Category, name string, build func(Config) Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		// The index is immutable after discovery; a late registration is
		// a wiring mistake, not a runtime condition worth failing on.
		slog.Warn("extension registered after load, ignoring", "category", cat, "name", name)
		return
	}
	r.candidates = append(r.candidates, candidate{category: cat, name: name, build: build})
}

// Load performs one-time discovery of all registered candidates.
// Idempotent: subsequent calls, sequential or concurrent, are no-ops.
//
// A candidate that cannot be indexed (blank name, nil factory, duplicate
// name within its category) is skipped with a diagnostic; one bad entry
// never aborts discovery of the others. Duplicates resolve first-wins,
// so registration order is deterministic and an accidental second
// implementation cannot shadow the first.
func (r *Registry) Load() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
}

func (r *Registry) loadLocked() {
	if r.loaded {
		return
	}
	r.loads++

	for _, c := range Categories {
		r.index[c] = make(map[string]candidate)
		r.order[c] = []string{}
	}

	for _, c := range r.candidates {
		name := strings.ToLower(strings.TrimSpace(c.name))
		switch {
		case !c.category.Valid():
			slog.Warn("skipping extension with unknown category", "category", c.category, "name", c.name)
		case name == "":
			slog.Warn("skipping extension with empty name", "category", c.category)
		case c.build == nil:
			slog.Warn("skipping extension with nil factory", "category", c.category, "name", name)
		default:
			if _, exists := r.index[c.category][name]; exists {
				slog.Warn("skipping duplicate extension", "category", c.category, "name", name)
				continue
			}
			r.index[c.category][name] = c
			r.order[c.category] = append(r.order[c.category], name)
			slog.Debug("registered extension", "category", c.category, "name", name)
		}
	}

	r.loaded = true
	r.candidates = nil
}

// lookup returns the indexed candidate for (cat, name), loading first if
// needed. Lookup is case-insensitive.
func (r *Registry) lookup(cat Category, name string) (candidate, bool) {
	r.mu.Lock()
	r.loadLocked()
	r.mu.Unlock()

	// After loadLocked the index never mutates, so reads need no lock.
	byName, ok := r.index[cat]
	if !ok {
		return candidate{}, false
	}
	c, ok := byName[strings.ToLower(name)]
	return c, ok
}

// Get returns a fresh instance of the (cat, name) extension bound to cfg,
// or false when no such extension exists. Absence is a value, not an
// error: callers distinguish "not found" from failure. Each call
// constructs an independent instance with its own copy of cfg.
func (r *Registry) Get(cat Category, name string, cfg Config) (Extension, bool) {
	c, ok := r.lookup(cat, name)
	if !ok {
		return nil, false
	}
	if cfg == nil {
		cfg = Config{}
	}
	return c.build(cfg.clone()), true
}

// Server returns a configured server extension by name.
func (r *Registry) Server(name string, cfg Config) (Server, bool) {
	ext, ok := r.Get(CategoryServer, name, cfg)
	if !ok {
		return nil, false
	}
	return ext.(Server), true
}

// Gateway returns a configured payment gateway by name.
func (r *Registry) Gateway(name string, cfg Config) (Gateway, bool) {
	ext, ok := r.Get(CategoryGateway, name, cfg)
	if !ok {
		return nil, false
	}
	return ext.(Gateway), true
}

// Other returns a configured other-category extension by name.
func (r *Registry) Other(name string, cfg Config) (Other, bool) {
	ext, ok := r.Get(CategoryOther, name, cfg)
	if !ok {
		return nil, false
	}
	return ext.(Other), true
}

// List returns extension names grouped by category, in discovery order
// (callers sort if they need alphabetical order). With no filter it
// returns all three categories, each present even when empty. With
// filters it returns only the requested categories; an unrecognised
// category yields no entry here — validation belongs to the query layer.
func (r *Registry) List(categories ...Category) map[Category][]string {
	r.mu.Lock()
	r.loadLocked()
	r.mu.Unlock()

	if len(categories) == 0 {
		categories = Categories
	}
	out := make(map[Category][]string, len(categories))
	for _, c := range categories {
		names, ok := r.order[c]
		if !ok {
			continue
		}
		out[c] = append([]string{}, names...)
	}
	return out
}

// Metadata returns the metadata record for (cat, name), or false when the
// pair is absent.
func (r *Registry) Metadata(cat Category, name string) (Metadata, bool) {
	ext, ok := r.Get(cat, name, nil)
	if !ok {
		return Metadata{}, false
	}
	return ext.Metadata(), true
}

// ConfigSchema returns the ordered configuration schema for (cat, name),
// or false when the pair is absent.
func (r *Registry) ConfigSchema(cat Category, name string) ([]Field, bool) {
	ext, ok := r.Get(cat, name, nil)
	if !ok {
		return nil, false
	}
	return ext.ConfigFields(nil), true
}
