package watch

// Event is delivered to a watch handler.
//
// For a property path, OldValue and NewValue are the values around the
// change and Native is the underlying change record. For a path that resolves
// to an observable container, any structural change produces an Event whose
// OldValue and NewValue are both the container and whose Native is nil.
type Event struct {
	Path     string
	OldValue any
	NewValue any
	Native   any
}

// Handler handles a watch event. A returned error is logged and counted.
type Handler func(Event) error

// TypedEvent gives typed access to the values of an Event.
type TypedEvent[T any] struct {
	Event
}

// Old returns the previous value when present and of type T.
func (e TypedEvent[T]) Old() (T, bool) {
	v, ok := e.OldValue.(T)
	return v, ok
}

// New returns the new value when present and of type T.
func (e TypedEvent[T]) New() (T, bool) {
	v, ok := e.NewValue.(T)
	return v, ok
}

// OldOr returns the previous value, or def when absent or of another type.
func (e TypedEvent[T]) OldOr(def T) T {
	if v, ok := e.Old(); ok {
		return v
	}
	return def
}

// NewOr returns the new value, or def when absent or of another type.
func (e TypedEvent[T]) NewOr(def T) T {
	if v, ok := e.New(); ok {
		return v
	}
	return def
}

// Typed adapts a handler that expects values of type T.
func Typed[T any](fn func(TypedEvent[T]) error) Handler {
	return func(e Event) error {
		return fn(TypedEvent[T]{Event: e})
	}
}
