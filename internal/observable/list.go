package observable

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/bindkit/internal/listeners"
)

// ListEvent describes a structural change to a List.
type ListEvent[E any] struct {
	// Type is the change kind.
	Type Kind

	// List is the emitting container.
	List *List[E]

	// Index is the first affected position.
	Index int

	// Count is the number of affected elements. For BulkReplaced it is the new length.
	Count int

	// Removed holds the elements taken out by ElementsRemoved and BulkReplaced.
	Removed []E

	// Old is the previous element for ElementReplaced.
	Old E
}

// Kind implements Event.
func (e ListEvent[E]) Kind() Kind { return e.Type }

// Container implements Event.
func (e ListEvent[E]) Container() any { return e.List }

// Affects implements KeyedEvent. Any list change may shift every index.
func (e ListEvent[E]) Affects(string) bool { return true }

// Span implements IndexedEvent.
func (e ListEvent[E]) Span() (int, int) { return e.Index, e.Count }

// List is an observable ordered sequence.
type List[E any] struct {
	mu    sync.RWMutex
	items []E
	subs  listeners.List[func(Event)]
}

// NewList creates a list holding items. No events are emitted.
func NewList[E any](items ...E) *List[E] {
	return &List[E]{items: slices.Clone(items)}
}

// Observe registers fn for every event of this list.
func (l *List[E]) Observe(fn func(ListEvent[E])) *Subscription {
	return subscribe(&l.subs, func(e Event) {
		fn(e.(ListEvent[E]))
	})
}

// ObserveStructure implements Container.
func (l *List[E]) ObserveStructure(fn func(Event)) *Subscription {
	return subscribe(&l.subs, fn)
}

// Len returns the number of elements.
func (l *List[E]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the element at index i.
func (l *List[E]) At(i int) (E, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.items) {
		var zero E
		return zero, false
	}
	return l.items[i], true
}

// Element implements Sequence.
func (l *List[E]) Element(i int) any {
	e, ok := l.At(i)
	if !ok {
		return nil
	}
	return e
}

// Items returns a copy of the elements.
func (l *List[E]) Items() []E {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// IndexFunc returns the first index whose element satisfies fn, or -1.
func (l *List[E]) IndexFunc(fn func(E) bool) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.IndexFunc(l.items, fn)
}

// Append adds e at the end.
func (l *List[E]) Append(e E) {
	l.mu.Lock()
	l.items = append(l.items, e)
	idx := len(l.items) - 1
	l.mu.Unlock()

	emit(&l.subs, ListEvent[E]{Type: ElementsAdded, List: l, Index: idx, Count: 1})
}

// Insert places e at index i, shifting later elements. i may equal Len.
func (l *List[E]) Insert(i int, e E) error {
	return l.InsertAll(i, []E{e})
}

// InsertAll places es at index i with a single event. An empty es emits nothing.
func (l *List[E]) InsertAll(i int, es []E) error {
	l.mu.Lock()
	if i < 0 || i > len(l.items) {
		n := len(l.items)
		l.mu.Unlock()
		return fmt.Errorf("%w: insert at %d (len %d)", ErrIndexOutOfRange, i, n)
	}
	if len(es) == 0 {
		l.mu.Unlock()
		return nil
	}
	l.items = slices.Insert(l.items, i, es...)
	l.mu.Unlock()

	emit(&l.subs, ListEvent[E]{Type: ElementsAdded, List: l, Index: i, Count: len(es)})
	return nil
}

// RemoveAt deletes and returns the element at index i.
func (l *List[E]) RemoveAt(i int) (E, error) {
	l.mu.Lock()
	if i < 0 || i >= len(l.items) {
		n := len(l.items)
		l.mu.Unlock()
		var zero E
		return zero, fmt.Errorf("%w: remove at %d (len %d)", ErrIndexOutOfRange, i, n)
	}
	old := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.mu.Unlock()

	emit(&l.subs, ListEvent[E]{Type: ElementsRemoved, List: l, Index: i, Count: 1, Removed: []E{old}})
	return old, nil
}

// ReplaceAt overwrites the element at index i and returns the previous one.
func (l *List[E]) ReplaceAt(i int, e E) (E, error) {
	l.mu.Lock()
	if i < 0 || i >= len(l.items) {
		n := len(l.items)
		l.mu.Unlock()
		var zero E
		return zero, fmt.Errorf("%w: replace at %d (len %d)", ErrIndexOutOfRange, i, n)
	}
	old := l.items[i]
	l.items[i] = e
	l.mu.Unlock()

	emit(&l.subs, ListEvent[E]{Type: ElementReplaced, List: l, Index: i, Count: 1, Old: old})
	return old, nil
}

// Clear removes every element with a single ElementsRemoved event at index 0.
func (l *List[E]) Clear() {
	l.mu.Lock()
	old := l.items
	l.items = nil
	l.mu.Unlock()

	if len(old) == 0 {
		return
	}
	emit(&l.subs, ListEvent[E]{Type: ElementsRemoved, List: l, Index: 0, Count: len(old), Removed: old})
}

// SetAll replaces the whole content with a single BulkReplaced event.
func (l *List[E]) SetAll(es []E) {
	next := slices.Clone(es)

	l.mu.Lock()
	old := l.items
	l.items = next
	l.mu.Unlock()

	if len(old) == 0 && len(next) == 0 {
		return
	}
	emit(&l.subs, ListEvent[E]{Type: BulkReplaced, List: l, Index: 0, Count: len(next), Removed: old})
}

// ElementChanged reports that the element at index i changed in place.
func (l *List[E]) ElementChanged(i int) error {
	if i < 0 || i >= l.Len() {
		return fmt.Errorf("%w: element %d", ErrIndexOutOfRange, i)
	}
	emit(&l.subs, ListEvent[E]{Type: ElementChanged, List: l, Index: i, Count: 1})
	return nil
}

// MarshalJSON encodes the current elements.
func (l *List[E]) MarshalJSON() ([]byte, error) {
	items := l.Items()
	if items == nil {
		items = []E{}
	}
	return json.Marshal(items)
}
