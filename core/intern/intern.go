// Package intern maps field-name text to small stable integer ids.
//
// Ids are assigned sequentially from 0 and are never reused or reclaimed for
// the lifetime of a Table. Two calls interning equal text return the same id,
// no matter where the text came from.
package intern

import (
	"sync"

	"github.com/opal-lang/nodeio/core/invariant"
)

// Table is a bidirectional text <-> id registry.
type Table struct {
	mu    sync.Mutex
	ids   map[string]int
	names []string
}

// New creates an empty table.
func New() *Table {
	return &Table{
		ids:   make(map[string]int),
		names: make([]string, 0, 64),
	}
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the process-wide table, creating it on first use.
// It is never torn down; tests may Reset it.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = New()
	})
	return defaultTable
}

// Intern interns text in the default table.
func Intern(text string) int {
	return Default().Intern(text)
}

// Resolve resolves id in the default table.
func Resolve(id int) string {
	return Default().Resolve(id)
}

// Intern returns the id for text, allocating the next id if text is new.
func (t *Table) Intern(text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.ids[text]; ok {
		return id
	}
	id := len(t.names)
	t.ids[text] = id
	t.names = append(t.names, text)

	invariant.Postcondition(t.names[id] == text, "interned id %d does not resolve to %q", id, text)
	return id
}

// Resolve returns the text for a previously interned id.
// Resolving an id this table never produced is a contract violation.
func (t *Table) Resolve(id int) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	invariant.Precondition(id >= 0 && id < len(t.names), "id %d was never interned (table has %d)", id, len(t.names))
	return t.names[id]
}

// Lookup is the non-panicking form of Resolve.
func (t *Table) Lookup(id int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id < 0 || id >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Find returns the id of text without interning it.
func (t *Table) Find(text string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.ids[text]
	return id, ok
}

// Len returns the number of interned strings; the next new id is Len().
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names)
}

// Names returns all interned strings in id order.
func (t *Table) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Reset forgets every interned string. Ids handed out before the reset
// become meaningless, so this is only for tests.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ids = make(map[string]int)
	t.names = t.names[:0]
}
