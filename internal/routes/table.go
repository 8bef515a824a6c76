package routes

import (
	"fmt"
	"slices"
	"sync"

	"github.com/plantops/edgeagent-go/pkg/routes"
	"github.com/plantops/edgeagent-go/pkg/topics"
)

// Table implements routes.Table with an in-memory map guarded by a single
// exclusive lock. It is safe for concurrent use by the caller's thread and
// the transport's delivery thread.
//
// Specificity scores are computed once at Add time; Resolve only compares
// precomputed scores under the lock and returns a handler reference, so
// the lock is never held across handler execution.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string // insertion order, for Entries snapshots
}

type entry struct {
	handler routes.MessageHandler
	qos     byte
	score   topics.Score
}

// NewTable creates an empty subscription table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]*entry),
	}
}

// Add validates filter syntax and inserts or replaces the entry for
// filter. Replacement keeps the filter's original insertion position.
func (t *Table) Add(filter string, handler routes.MessageHandler, qos byte) error {
	if err := topics.Validate(filter); err != nil {
		return fmt.Errorf("invalid topic filter %q: %w", filter, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[filter]; !exists {
		t.order = append(t.order, filter)
	}
	t.entries[filter] = &entry{
		handler: handler,
		qos:     qos,
		score:   topics.Specificity(filter),
	}
	return nil
}

// Remove deletes the entry for filter, if present.
func (t *Table) Remove(filter string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[filter]; !exists {
		return
	}
	delete(t.entries, filter)
	t.order = slices.DeleteFunc(t.order, func(f string) bool { return f == filter })
}

// Clear removes all entries.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]*entry)
	t.order = nil
}

// Resolve returns the handler of the most specific filter matching topic.
// Ties between filters of identical specificity are resolved by iteration
// order and are not a guarantee.
func (t *Table) Resolve(topic string) (routes.MessageHandler, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		best      *entry
		bestScore topics.Score
		matched   bool
	)
	for filter, e := range t.entries {
		if !topics.Matches(filter, topic) {
			continue
		}
		if !matched || bestScore.Less(e.score) {
			best = e
			bestScore = e.score
			matched = true
		}
	}
	if !matched {
		return nil, false
	}
	return best.handler, true
}

// Entries returns a snapshot of all registrations in insertion order.
func (t *Table) Entries() []routes.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]routes.Entry, 0, len(t.order))
	for _, filter := range t.order {
		snapshot = append(snapshot, routes.Entry{Filter: filter, QoS: t.entries[filter].qos})
	}
	return snapshot
}

// Len returns the number of registered filters.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Verify that Table implements the routes.Table interface at compile time
var _ routes.Table = (*Table)(nil)
