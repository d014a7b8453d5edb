package binding

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrDisposed is returned when a disposed group is used.
	ErrDisposed = errors.New("binding group disposed")

	// ErrNotWritable is returned when a binding direction requires writing a
	// path that cannot be written.
	ErrNotWritable = errors.New("path is not writable")

	// ErrNotSequence is returned when a list binding path does not resolve to
	// an observable sequence.
	ErrNotSequence = errors.New("path does not resolve to an observable sequence")
)

// ActivationError reports a binding that could not be activated. The binding
// stays inactive; other bindings in its group are unaffected.
type ActivationError struct {
	// Group is the owning group name.
	Group string

	// Binding is the binding name.
	Binding string

	// Path is the path that failed to resolve.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ActivationError) Error() string {
	return fmt.Sprintf("activate binding %q in group %q at %q: %v", e.Binding, e.Group, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ActivationError) Unwrap() error {
	return e.Err
}

// IsActivationError reports whether err is or wraps an ActivationError.
func IsActivationError(err error) bool {
	var ae *ActivationError
	return errors.As(err, &ae)
}
