package watch

import (
	"errors"
	"fmt"

	"github.com/dshills/bindkit/internal/dispatch"
)

// Sentinel errors.
var (
	// ErrInvalidDeclaration is returned when a watch declaration is malformed.
	ErrInvalidDeclaration = errors.New("invalid watch declaration")

	// ErrDuplicateHandler is returned when a handler name is registered twice.
	ErrDuplicateHandler = errors.New("duplicate watch handler")

	// ErrStopped is returned by Start once the dispatcher has been stopped.
	ErrStopped = errors.New("watch dispatcher stopped")
)

// HandlerInvocationError reports a watch handler that failed or panicked.
type HandlerInvocationError struct {
	// Handler is the declared handler name.
	Handler string

	// Path is the watched path that produced the event.
	Path string

	// Panicked is true when the handler panicked.
	Panicked bool

	// Err is the handler error or a *dispatch.PanicError.
	Err error
}

// Error implements the error interface.
func (e *HandlerInvocationError) Error() string {
	verb := "failed"
	if e.Panicked {
		verb = "panicked"
	}
	return fmt.Sprintf("watch handler %q for %q %s: %v", e.Handler, e.Path, verb, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerInvocationError) Unwrap() error {
	return e.Err
}

// Is matches dispatch.ErrHandlerPanic for panics.
func (e *HandlerInvocationError) Is(target error) bool {
	return e.Panicked && target == dispatch.ErrHandlerPanic
}
