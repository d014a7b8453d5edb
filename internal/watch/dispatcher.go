// Package watch invokes registered handlers when watched property paths change.
//
// Handlers are registered explicitly by name together with the paths they
// watch. Start resolves every declaration once and attaches listeners; later
// calls to Start do nothing, so a restarted controller never attaches twice.
//
//	d := watch.New(model, watch.WithLogger(logger))
//	d.Watch("onNameChanged", watch.Typed(func(e watch.TypedEvent[string]) error {
//	    logger.Info("name changed", "old", e.OldOr(""), "new", e.NewOr(""))
//	    return nil
//	}), "name")
//	d.Start()
//
// A handler that returns an error or panics is logged and counted. The
// failure never reaches the model that announced the change and does not
// affect other listeners.
package watch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/dshills/bindkit/internal/dispatch"
	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/observable"
	"github.com/dshills/bindkit/internal/property"
)

// Declaration describes a registered handler and the paths it watches.
type Declaration struct {
	Handler string
	Paths   []string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for resolution and handler failures.
func WithLogger(l logr.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithPathCache shares a parsed path cache.
func WithPathCache(c *property.Cache) Option {
	return func(d *Dispatcher) {
		d.paths = c
	}
}

// WithExecutor overrides the handler executor.
func WithExecutor(e *dispatch.Executor) Option {
	return func(d *Dispatcher) {
		d.executor = e
	}
}

type declaration struct {
	name    string
	handler Handler
	paths   []*property.Path
}

type attachment struct {
	handler string
	path    string
	detach  func()
}

// Dispatcher resolves watch declarations against a root model.
type Dispatcher struct {
	root     any
	logger   logr.Logger
	metrics  *metrics.Metrics
	paths    *property.Cache
	executor *dispatch.Executor

	mu          sync.Mutex
	decls       []*declaration
	attachments []attachment
	started     bool
	stopped     bool

	delivered atomic.Int64
	failed    atomic.Int64
}

// New creates a dispatcher for root.
func New(root any, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		root:   root,
		logger: logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.paths == nil {
		d.paths = property.NewCache(property.WithMetrics(d.metrics))
	}
	if d.executor == nil {
		d.executor = dispatch.NewExecutor()
	}
	d.logger = d.logger.WithName("watch")
	return d
}

// Watch registers handler under name for every path. Paths are parsed here,
// so malformed paths fail at registration. A handler registered after Start
// is attached immediately.
func (d *Dispatcher) Watch(name string, handler Handler, paths ...string) error {
	if name == "" {
		return fmt.Errorf("%w: empty handler name", ErrInvalidDeclaration)
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler %q", ErrInvalidDeclaration, name)
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: handler %q watches no paths", ErrInvalidDeclaration, name)
	}

	decl := &declaration{name: name, handler: handler}
	for _, s := range paths {
		p, err := d.paths.Parse(s)
		if err != nil {
			return fmt.Errorf("%w: handler %q: %w", ErrInvalidDeclaration, name, err)
		}
		decl.paths = append(decl.paths, p)
	}

	d.mu.Lock()
	for _, existing := range d.decls {
		if existing.name == name {
			d.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
		}
	}
	d.decls = append(d.decls, decl)
	live := d.started && !d.stopped
	d.mu.Unlock()

	if live {
		return d.resolve(decl)
	}
	return nil
}

// Declarations returns the registered declarations in registration order.
func (d *Dispatcher) Declarations() []Declaration {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Declaration, len(d.decls))
	for i, decl := range d.decls {
		paths := make([]string, len(decl.paths))
		for j, p := range decl.paths {
			paths[j] = p.String()
		}
		out[i] = Declaration{Handler: decl.name, Paths: paths}
	}
	return out
}

// Start resolves every declaration and attaches listeners. It runs at most
// once per dispatcher; later calls return nil without attaching anything.
// Start after Stop returns ErrStopped.
// Paths that fail to resolve are logged and returned joined; the remaining
// declarations are still attached.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	if d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = true
	decls := append([]*declaration(nil), d.decls...)
	d.mu.Unlock()

	var errs []error
	for _, decl := range decls {
		if err := d.resolve(decl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Started reports whether Start has been called.
func (d *Dispatcher) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Stop detaches every listener. The dispatcher cannot be started again.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	attachments := d.attachments
	d.attachments = nil
	d.stopped = true
	d.mu.Unlock()

	for _, a := range attachments {
		a.detach()
		d.logger.V(1).Info("watch detached", "handler", a.handler, "path", a.path)
	}
}

// Attached returns the number of live listener attachments.
func (d *Dispatcher) Attached() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attachments)
}

// Delivered returns how many events were handed to handlers.
func (d *Dispatcher) Delivered() int64 {
	return d.delivered.Load()
}

// Failed returns how many handler invocations failed or panicked.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

func (d *Dispatcher) resolve(decl *declaration) error {
	var errs []error
	for _, p := range decl.paths {
		detach, err := d.attach(decl, p)
		if err != nil {
			d.logger.Error(err, "watch path could not be resolved", "handler", decl.name, "path", p.String())
			errs = append(errs, err)
			continue
		}
		d.mu.Lock()
		d.attachments = append(d.attachments, attachment{handler: decl.name, path: p.String(), detach: detach})
		d.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) attach(decl *declaration, p *property.Path) (func(), error) {
	v, err := p.Get(d.root)
	if err != nil && !errors.Is(err, property.ErrNilIntermediate) {
		return nil, err
	}

	if c, ok := v.(observable.Container); ok {
		sub := c.ObserveStructure(func(observable.Event) {
			d.invoke(decl, Event{Path: p.String(), OldValue: c, NewValue: c})
		})
		return sub.Unsubscribe, nil
	}

	obs, err := p.Observe(d.root, func(c property.Change) {
		if c.Err != nil {
			d.logger.Error(c.Err, "watched value could not be resolved", "handler", decl.name, "path", p.String())
		}
		d.invoke(decl, Event{Path: p.String(), OldValue: c.OldValue, NewValue: c.NewValue, Native: c.Cause})
	})
	if err != nil {
		return nil, err
	}
	return obs.Close, nil
}

func (d *Dispatcher) invoke(decl *declaration, e Event) {
	d.delivered.Add(1)
	d.metrics.IncDelivered()

	inv := dispatch.Invocation{Kind: dispatch.KindWatch, Name: decl.name, Target: e.Path, Event: e}
	result := d.executor.Execute(inv, func() error { return decl.handler(e) })
	if result.OK() {
		return
	}

	err := &HandlerInvocationError{Handler: decl.name, Path: e.Path, Panicked: result.Panicked, Err: result.Err}
	reason := result.Reason()
	d.failed.Add(1)
	d.metrics.IncFailure(reason)
	d.logger.Error(err, "watch handler failed", "handler", decl.name, "path", e.Path, "reason", reason)
}
