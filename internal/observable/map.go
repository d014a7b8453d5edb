package observable

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/dshills/bindkit/internal/listeners"
)

// MapEvent describes a structural change to a Map.
type MapEvent[K comparable, V any] struct {
	// Type is the change kind.
	Type Kind

	// Map is the emitting container.
	Map *Map[K, V]

	// Key is the affected key. Unset for BulkReplaced.
	Key K

	// Value is the value stored after the change. Unset for EntryRemoved.
	Value V

	// OldValue is the value before the change for EntryValueChanged and EntryRemoved.
	OldValue V

	// Replaced holds the previous content for BulkReplaced.
	Replaced map[K]V
}

// Kind implements Event.
func (e MapEvent[K, V]) Kind() Kind { return e.Type }

// Container implements Event.
func (e MapEvent[K, V]) Container() any { return e.Map }

// Affects implements KeyedEvent.
func (e MapEvent[K, V]) Affects(key string) bool {
	if e.Type == BulkReplaced {
		return true
	}
	kv := reflect.ValueOf(e.Key)
	return kv.Kind() == reflect.String && kv.String() == key
}

// MapOption configures a Map.
type MapOption[V any] func(*mapOptions[V])

type mapOptions[V any] struct {
	def    V
	hasDef bool
}

// WithDefault sets the value Get returns for absent keys.
func WithDefault[V any](v V) MapOption[V] {
	return func(o *mapOptions[V]) {
		o.def = v
		o.hasDef = true
	}
}

// Map is an observable hash map.
type Map[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
	opts mapOptions[V]
	subs listeners.List[func(Event)]
}

// NewMap creates an empty map.
func NewMap[K comparable, V any](opts ...MapOption[V]) *Map[K, V] {
	m := &Map[K, V]{data: make(map[K]V)}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

// NewMapFrom creates a map holding a copy of src. No events are emitted.
func NewMapFrom[K comparable, V any](src map[K]V, opts ...MapOption[V]) *Map[K, V] {
	m := NewMap[K, V](opts...)
	for k, v := range src {
		m.data[k] = v
	}
	return m
}

// Observe registers fn for every event of this map.
func (m *Map[K, V]) Observe(fn func(MapEvent[K, V])) *Subscription {
	return subscribe(&m.subs, func(e Event) {
		fn(e.(MapEvent[K, V]))
	})
}

// ObserveStructure implements Container.
func (m *Map[K, V]) ObserveStructure(fn func(Event)) *Subscription {
	return subscribe(&m.subs, fn)
}

// Default returns the configured default value.
func (m *Map[K, V]) Default() (V, bool) {
	return m.opts.def, m.opts.hasDef
}

// Get returns the value for k. An absent key yields the default when one is
// configured.
func (m *Map[K, V]) Get(k K) (V, bool) {
	m.mu.RLock()
	v, ok := m.data[k]
	m.mu.RUnlock()
	if ok {
		return v, true
	}
	if m.opts.hasDef {
		return m.opts.def, true
	}
	var zero V
	return zero, false
}

// Lookup returns the stored value for k, ignoring any default.
func (m *Map[K, V]) Lookup(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[k]
	return v, ok
}

// Contains reports whether k is stored.
func (m *Map[K, V]) Contains(k K) bool {
	_, ok := m.Lookup(k)
	return ok
}

// Put stores v under k. It returns the previous value and whether one existed.
func (m *Map[K, V]) Put(k K, v V) (V, bool) {
	m.mu.Lock()
	old, existed := m.data[k]
	m.data[k] = v
	m.mu.Unlock()

	e := MapEvent[K, V]{Type: EntryAdded, Map: m, Key: k, Value: v}
	if existed {
		e.Type = EntryValueChanged
		e.OldValue = old
	}
	emit(&m.subs, e)
	return old, existed
}

// PutAll stores every entry of src, emitting one event per entry.
func (m *Map[K, V]) PutAll(src map[K]V) {
	for k, v := range src {
		m.Put(k, v)
	}
}

// Remove deletes k. Removing an absent key emits nothing.
func (m *Map[K, V]) Remove(k K) (V, bool) {
	m.mu.Lock()
	old, ok := m.data[k]
	if ok {
		delete(m.data, k)
	}
	m.mu.Unlock()

	if ok {
		emit(&m.subs, MapEvent[K, V]{Type: EntryRemoved, Map: m, Key: k, OldValue: old})
	}
	return old, ok
}

// Clear removes every entry with a single BulkReplaced event.
func (m *Map[K, V]) Clear() {
	m.ReplaceAll(nil)
}

// ReplaceAll swaps the whole content for a copy of src with a single
// BulkReplaced event. Replacing an empty map with nothing emits nothing.
func (m *Map[K, V]) ReplaceAll(src map[K]V) {
	next := make(map[K]V, len(src))
	for k, v := range src {
		next[k] = v
	}

	m.mu.Lock()
	prev := m.data
	m.data = next
	m.mu.Unlock()

	if len(prev) == 0 && len(next) == 0 {
		return
	}
	emit(&m.subs, MapEvent[K, V]{Type: BulkReplaced, Map: m, Replaced: prev})
}

// Len returns the number of stored entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Keys returns the stored keys in unspecified order.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]K, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a copy of the content.
func (m *Map[K, V]) Snapshot() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[K]V, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// GetKey implements Keyed.
func (m *Map[K, V]) GetKey(key string) (any, bool) {
	k, err := m.key(key)
	if err != nil {
		return nil, false
	}
	return m.Get(k)
}

// PutKey implements Keyed.
func (m *Map[K, V]) PutKey(key string, value any) error {
	k, err := m.key(key)
	if err != nil {
		return err
	}
	v, ok := value.(V)
	if !ok {
		if value != nil {
			return fmt.Errorf("%w: %T", ErrValueType, value)
		}
		var zero V
		if !nillable(reflect.TypeOf(&zero).Elem()) {
			return fmt.Errorf("%w: nil", ErrValueType)
		}
		v = zero
	}
	m.Put(k, v)
	return nil
}

// ValueType returns the element type, used by callers that convert before PutKey.
func (m *Map[K, V]) ValueType() reflect.Type {
	return reflect.TypeOf((*V)(nil)).Elem()
}

// MarshalJSON encodes the current content.
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

func (m *Map[K, V]) key(s string) (K, error) {
	var k K
	kt := reflect.TypeOf(&k).Elem()
	if kt.Kind() != reflect.String {
		return k, ErrKeyType
	}
	reflect.ValueOf(&k).Elem().SetString(s)
	return k, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
