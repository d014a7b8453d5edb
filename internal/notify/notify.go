// Package notify provides the per-model change signal.
//
// A Signal announces that a named property changed from an old value to a new
// one. Listeners subscribe to a single property or to every property of the
// model. Delivery is synchronous, in registration order, on the goroutine that
// calls Announce. Listener lists are copy-on-write, so listeners may subscribe,
// unsubscribe, or announce again from inside a callback.
package notify

import (
	"sync"

	"github.com/dshills/bindkit/internal/listeners"
)

// AnyProperty subscribes a listener to every property of a signal.
const AnyProperty = "*"

// Change represents a property change announcement.
type Change struct {
	// Property is the name of the changed property.
	Property string

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value (may be nil).
	NewValue any

	// Source is the object that owns the signal, when known.
	Source any
}

// Listener receives property change announcements.
type Listener interface {
	PropertyChanged(change Change)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(change Change)

// PropertyChanged calls f(change).
func (f ListenerFunc) PropertyChanged(change Change) {
	f(change)
}

// Source is implemented by objects that expose a change signal.
type Source interface {
	Changes() *Signal
}

type subscriber struct {
	property string
	listener Listener
}

// Subscription represents an active listener registration.
type Subscription struct {
	id       listeners.ID
	property string
	signal   *Signal
	once     sync.Once
}

// Property returns the subscribed property name, or AnyProperty.
func (s *Subscription) Property() string {
	return s.property
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.signal == nil {
		return
	}
	s.once.Do(func() {
		s.signal.subs.Remove(s.id)
	})
}

// Signal manages property change subscriptions for one model instance.
// The zero value is ready to use. A Signal must not be copied after first use.
type Signal struct {
	source any
	subs   listeners.List[subscriber]
}

// New creates a Signal whose announcements carry source as Change.Source.
func New(source any) *Signal {
	return &Signal{source: source}
}

// Subscribe registers a listener for changes to one property.
// An empty property or AnyProperty subscribes to every property.
func (s *Signal) Subscribe(property string, l Listener) *Subscription {
	if property == "" {
		property = AnyProperty
	}
	id := s.subs.Add(subscriber{property: property, listener: l})
	return &Subscription{id: id, property: property, signal: s}
}

// SubscribeFunc is a convenience wrapper around Subscribe.
func (s *Signal) SubscribeFunc(property string, fn func(Change)) *Subscription {
	return s.Subscribe(property, ListenerFunc(fn))
}

// SubscribeAll registers a listener for changes to every property.
func (s *Signal) SubscribeAll(l Listener) *Subscription {
	return s.Subscribe(AnyProperty, l)
}

// Unsubscribe removes a subscription. It returns false if the subscription
// does not belong to this signal.
func (s *Signal) Unsubscribe(sub *Subscription) bool {
	if sub == nil || sub.signal != s {
		return false
	}
	removed := false
	sub.once.Do(func() {
		removed = s.subs.Remove(sub.id)
	})
	return removed
}

// Announce notifies listeners that property changed from oldValue to newValue.
// Announcements are never suppressed, even when oldValue equals newValue.
func (s *Signal) Announce(property string, oldValue, newValue any) {
	change := Change{
		Property: property,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   s.source,
	}

	s.subs.Each(func(_ listeners.ID, sub subscriber) {
		if sub.property != AnyProperty && sub.property != property {
			return
		}
		sub.listener.PropertyChanged(change)
	})
}

// Listeners returns the number of subscriptions registered for property.
// Pass AnyProperty to count catch-all subscriptions.
func (s *Signal) Listeners(property string) int {
	if property == "" {
		property = AnyProperty
	}
	n := 0
	for _, sub := range s.subs.Snapshot() {
		if sub.property == property {
			n++
		}
	}
	return n
}

// Len returns the total number of subscriptions.
func (s *Signal) Len() int {
	return s.subs.Len()
}
