// Package session tracks admitted subscribers and expires idle ones.
package session

import (
	"sync"
	"time"
)

// Clock supplies timestamps. Implementations must return values carrying a
// monotonic reading so ages survive wall-clock jumps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Table maps a subscriber identifier to the time its session was created.
// All access goes through one mutex.
type Table struct {
	mu      sync.Mutex
	entries map[string]time.Time
	clock   Clock
}

// NewTable creates an empty table. A nil clock means SystemClock.
func NewTable(clock Clock) *Table {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Table{
		entries: make(map[string]time.Time),
		clock:   clock,
	}
}

// Insert adds id stamped with the current time unless it is already present.
// The timestamp of an existing entry is never refreshed. onCreate, if non-nil,
// runs under the table lock after a successful insert.
func (t *Table) Insert(id string, onCreate func(id string)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[id]; exists {
		return false
	}
	t.entries[id] = t.clock.Now()
	if onCreate != nil {
		onCreate(id)
	}
	return true
}

// Put sets the timestamp for id unconditionally.
func (t *Table) Put(id string, seen time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = seen
}

// Contains reports whether id has a live session.
func (t *Table) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.entries[id]
	return exists
}

// LastSeen returns the creation timestamp of id.
func (t *Table) LastSeen(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen, exists := t.entries[id]
	return seen, exists
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Evict removes every entry older than timeout and returns their ids.
// onEvict, if non-nil, runs under the table lock for each removed id.
func (t *Table) Evict(timeout time.Duration, onEvict func(id string)) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	var evicted []string
	for id, seen := range t.entries {
		if now.Sub(seen) > timeout {
			delete(t.entries, id)
			evicted = append(evicted, id)
			if onEvict != nil {
				onEvict(id)
			}
		}
	}
	return evicted
}
