// Package listeners provides the copy-on-write listener list used by change
// signals and observable containers.
//
// Every mutation of a List replaces its backing slice, so a dispatch that
// captured a snapshot keeps iterating a stable sequence even when listeners are
// added or removed concurrently or from inside a listener. A listener removed
// while a dispatch is in flight is skipped by that dispatch once the removal is
// visible; a listener added during a dispatch is first invoked by the next one.
package listeners

import (
	"sync"
	"sync/atomic"
)

// ID identifies a registered listener within one List.
type ID uint64

type entry[T any] struct {
	id      ID
	value   T
	removed atomic.Bool
}

// List is a registration-ordered, copy-on-write collection of listeners.
// The zero value is ready to use. A List must not be copied after first use.
type List[T any] struct {
	mu      sync.Mutex
	entries []*entry[T]
	nextID  ID
}

// Add registers a listener and returns its ID.
func (l *List[T]) Add(v T) ID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	e := &entry[T]{id: l.nextID, value: v}

	next := make([]*entry[T], len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	l.entries = append(next, e)
	return e.id
}

// Remove unregisters the listener with the given ID.
// It returns false if no such listener is registered.
func (l *List[T]) Remove(id ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.id != id {
			continue
		}
		e.removed.Store(true)
		next := make([]*entry[T], 0, len(l.entries)-1)
		next = append(next, l.entries[:i]...)
		next = append(next, l.entries[i+1:]...)
		l.entries = next
		return true
	}
	return false
}

// Clear unregisters every listener.
func (l *List[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		e.removed.Store(true)
	}
	l.entries = nil
}

// Len returns the number of registered listeners.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns the registered listeners in registration order.
func (l *List[T]) Snapshot() []T {
	l.mu.Lock()
	entries := l.entries
	l.mu.Unlock()

	out := make([]T, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.value)
	}
	return out
}

// Each calls fn for every listener registered when Each was called, in
// registration order. fn runs outside the list's lock.
func (l *List[T]) Each(fn func(ID, T)) {
	l.mu.Lock()
	entries := l.entries
	l.mu.Unlock()

	for _, e := range entries {
		if e.removed.Load() {
			continue
		}
		fn(e.id, e.value)
	}
}
