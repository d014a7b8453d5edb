package observable

import (
	"sync"

	"github.com/dshills/bindkit/internal/listeners"
)

// Kind identifies the structural change carried by an event.
type Kind int

const (
	// EntryAdded indicates a new map key was stored.
	EntryAdded Kind = iota

	// EntryRemoved indicates a map key was deleted.
	EntryRemoved

	// EntryValueChanged indicates an existing map key was overwritten.
	EntryValueChanged

	// ElementsAdded indicates one or more list elements were inserted.
	ElementsAdded

	// ElementsRemoved indicates one or more list elements were removed.
	ElementsRemoved

	// ElementReplaced indicates a list element was overwritten.
	ElementReplaced

	// ElementChanged indicates a property of a list element changed in place.
	ElementChanged

	// BulkReplaced indicates the whole container content was replaced.
	BulkReplaced
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case EntryAdded:
		return "entry-added"
	case EntryRemoved:
		return "entry-removed"
	case EntryValueChanged:
		return "entry-value-changed"
	case ElementsAdded:
		return "elements-added"
	case ElementsRemoved:
		return "elements-removed"
	case ElementReplaced:
		return "element-replaced"
	case ElementChanged:
		return "element-changed"
	case BulkReplaced:
		return "bulk-replaced"
	default:
		return "unknown"
	}
}

// Event is the type-erased view of a container event.
type Event interface {
	// Kind returns the structural change kind.
	Kind() Kind

	// Container returns the container that emitted the event.
	Container() any
}

// KeyedEvent is an Event that can tell whether it touched a string key.
type KeyedEvent interface {
	Event

	// Affects reports whether the event may have changed the value at key.
	Affects(key string) bool
}

// IndexedEvent is an Event that covers a range of sequence positions.
type IndexedEvent interface {
	Event

	// Span returns the first affected index and the number of affected
	// elements. For BulkReplaced the count is the new length.
	Span() (index, count int)
}

// Container is implemented by every observable container.
type Container interface {
	// ObserveStructure registers fn for every structural event.
	ObserveStructure(fn func(Event)) *Subscription
}

// Keyed is the string-addressed view of a container, used by property paths.
type Keyed interface {
	Container

	// GetKey reads key with the container's default-value semantics.
	GetKey(key string) (any, bool)

	// PutKey stores value under key.
	PutKey(key string, value any) error
}

// Sequence is the index-addressed view of a list container.
type Sequence interface {
	Container

	// Len returns the number of elements.
	Len() int

	// Element returns the element at index i, or nil when out of range.
	Element(i int) any
}

// Subscription represents a container listener registration.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

func subscribe(l *listeners.List[func(Event)], fn func(Event)) *Subscription {
	id := l.Add(fn)
	return &Subscription{cancel: func() { l.Remove(id) }}
}

func emit(l *listeners.List[func(Event)], e Event) {
	l.Each(func(_ listeners.ID, fn func(Event)) {
		fn(e)
	})
}
