package action

import (
	"errors"
	"fmt"

	"github.com/dshills/bindkit/internal/dispatch"
)

// Sentinel errors.
var (
	// ErrNoHandler indicates that no handler is registered under a name.
	ErrNoHandler = errors.New("no handler registered")

	// ErrDuplicateAction indicates a name registered twice.
	ErrDuplicateAction = errors.New("duplicate action")

	// ErrInvalidName indicates an empty action name.
	ErrInvalidName = errors.New("invalid action name")
)

// HandlerInvocationError reports an action that could not be performed: its
// handler is missing, returned an error, or panicked.
type HandlerInvocationError struct {
	// Action is the action name.
	Action string

	// Trigger describes what performed the action, such as "perform" or a
	// gesture type.
	Trigger string

	// Panicked is true when the handler panicked.
	Panicked bool

	// Err is ErrNoHandler, the handler error, or a *dispatch.PanicError.
	Err error
}

// Error implements the error interface.
func (e *HandlerInvocationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNoHandler):
		return fmt.Sprintf("action %q (%s): %v", e.Action, e.Trigger, e.Err)
	case e.Panicked:
		return fmt.Sprintf("action %q (%s) panicked: %v", e.Action, e.Trigger, e.Err)
	default:
		return fmt.Sprintf("action %q (%s) failed: %v", e.Action, e.Trigger, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *HandlerInvocationError) Unwrap() error {
	return e.Err
}

// Is matches dispatch.ErrHandlerPanic for panics.
func (e *HandlerInvocationError) Is(target error) bool {
	return e.Panicked && target == dispatch.ErrHandlerPanic
}
