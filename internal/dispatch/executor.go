package dispatch

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Invocation kinds.
const (
	KindWatch  = "watch"
	KindAction = "action"
)

// Invocation describes one callback run by an Executor.
type Invocation struct {
	// Kind is KindWatch or KindAction.
	Kind string

	// Name is the watch handler or action name.
	Name string

	// Target is the watched path for watches and the trigger for actions.
	Target string

	// Event is the value handed to the callback.
	Event any
}

// String returns kind:name@target.
func (inv Invocation) String() string {
	return fmt.Sprintf("%s:%s@%s", inv.Kind, inv.Name, inv.Target)
}

// Result is the outcome of one invocation.
type Result struct {
	Invocation

	// Err is the callback error, a *PanicError, or ErrNilHandler.
	Err error

	// Panicked is true if the callback panicked.
	Panicked bool

	// Duration is how long the callback ran.
	Duration time.Duration
}

// OK reports whether the callback returned without error or panic.
func (r Result) OK() bool {
	return r.Err == nil
}

// Reason classifies a failed result as "error" or "panic". It is empty for
// successful results.
func (r Result) Reason() string {
	switch {
	case r.Panicked:
		return "panic"
	case r.Err != nil:
		return "error"
	}
	return ""
}

// PanicHandler is called after a panic is recovered, with the stack captured
// at the point of the panic.
type PanicHandler func(inv Invocation, value any, stack []byte)

// Executor runs callbacks with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the callback invoked after a recovered panic.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn on the calling goroutine and reports how it ended.
func (e *Executor) Execute(inv Invocation, fn func() error) (result Result) {
	result.Invocation = inv
	if fn == nil {
		result.Err = ErrNilHandler
		return result
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		r := recover()
		if r == nil {
			return
		}
		stack := debug.Stack()
		result.Panicked = true
		result.Err = &PanicError{Value: r, Stack: stack}
		e.notifyPanic(inv, r, stack)
	}()

	result.Err = fn()
	return result
}

// notifyPanic calls the panic handler; a panic inside it is dropped.
func (e *Executor) notifyPanic(inv Invocation, value any, stack []byte) {
	if e.panicHandler == nil {
		return
	}
	defer func() { _ = recover() }()
	e.panicHandler(inv, value, stack)
}
