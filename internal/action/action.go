// Package action routes named actions and UI gestures to registered handlers.
//
// A Table maps action names to handlers. UI code obtains an Action by name
// and performs it; gesture adapters translate terminal mouse and paste
// events into typed gesture events and perform the action mapped to each
// gesture type. A missing or failing handler is logged and reported as a
// *HandlerInvocationError to the caller that performed it, never to the
// source of the event.
package action

import (
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dshills/bindkit/internal/dispatch"
	"github.com/dshills/bindkit/internal/metrics"
)

// Event is passed to action handlers.
type Event struct {
	// Name is the action being performed.
	Name string

	// Source is the object that performed the action.
	Source any

	// Native is the gesture event that triggered the action, if any.
	Native any
}

// Func handles an action.
type Func func(Event) error

// Action is a named, performable handle for a registered handler.
type Action struct {
	Name string
	Icon string

	table *Table
}

// Perform invokes the action's handler with source.
func (a *Action) Perform(source any) error {
	return a.table.invoke(a.Name, "perform", Event{Name: a.Name, Source: source})
}

// Enabled reports whether a handler is registered for the action.
func (a *Action) Enabled() bool {
	return a.table.Has(a.Name)
}

// RegisterOption configures a registration.
type RegisterOption func(*entry)

// WithIcon attaches icon metadata to the action.
func WithIcon(icon string) RegisterOption {
	return func(e *entry) {
		e.icon = icon
	}
}

type entry struct {
	fn   Func
	icon string
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger for invocation failures.
func WithLogger(l logr.Logger) Option {
	return func(t *Table) {
		t.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Table) {
		t.metrics = m
	}
}

// WithExecutor overrides the handler executor.
func WithExecutor(e *dispatch.Executor) Option {
	return func(t *Table) {
		t.executor = e
	}
}

// Table holds action handlers by name.
type Table struct {
	mu      sync.RWMutex
	entries map[string]entry

	logger   logr.Logger
	metrics  *metrics.Metrics
	executor *dispatch.Executor
}

// NewTable creates an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		entries: make(map[string]entry),
		logger:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.executor == nil {
		t.executor = dispatch.NewExecutor()
	}
	return t
}

// Register adds a handler under name.
func (t *Table) Register(name string, fn Func, opts ...RegisterOption) error {
	if name == "" {
		return ErrInvalidName
	}
	if fn == nil {
		return dispatch.ErrNilHandler
	}
	e := entry{fn: fn}
	for _, opt := range opts {
		opt(&e)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[name]; ok {
		return ErrDuplicateAction
	}
	t.entries[name] = e
	return nil
}

// Unregister removes the handler for name.
func (t *Table) Unregister(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[name]; !ok {
		return false
	}
	delete(t.entries, name)
	return true
}

// Has reports whether name has a handler.
func (t *Table) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[name]
	return ok
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Action returns a handle for name. The handler is looked up when the
// action is performed, so a handle may be created before registration.
func (t *Table) Action(name string) *Action {
	t.mu.RLock()
	icon := t.entries[name].icon
	t.mu.RUnlock()
	return &Action{Name: name, Icon: icon, table: t}
}

// Invoke performs name with ev. ev.Name is set to name.
func (t *Table) Invoke(name string, ev Event) error {
	ev.Name = name
	return t.invoke(name, "invoke", ev)
}

func (t *Table) invoke(name, trigger string, ev Event) error {
	t.mu.RLock()
	e, ok := t.entries[name]
	t.mu.RUnlock()

	if !ok {
		err := &HandlerInvocationError{Action: name, Trigger: trigger, Err: ErrNoHandler}
		t.metrics.IncFailure("missing")
		t.logger.Error(err, "action handler not found", "action", name, "trigger", trigger)
		return err
	}

	inv := dispatch.Invocation{Kind: dispatch.KindAction, Name: name, Target: trigger, Event: ev}
	result := t.executor.Execute(inv, func() error { return e.fn(ev) })
	if result.OK() {
		return nil
	}

	err := &HandlerInvocationError{Action: name, Trigger: trigger, Panicked: result.Panicked, Err: result.Err}
	reason := result.Reason()
	t.metrics.IncFailure(reason)
	t.logger.Error(err, "action handler failed", "action", name, "trigger", trigger, "reason", reason)
	return err
}
