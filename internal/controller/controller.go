// Package controller ties a model to its bindings, watch handlers and
// actions, and drives their lifecycle.
//
// A controller is built around one model. Setup code registers watch
// handlers and creates bindings, then calls Start. Start resolves every watch
// declaration once, then schedules the initial binding activation and the
// start hooks on the configured Scheduler.
//
//	c := controller.New(person, controller.WithLogger(logger))
//	binding.Bind(c.Binder(), "name", field, "text")
//	c.Watch("logName", func(e watch.Event) error { ... }, "name")
//	if err := c.Start(true); err != nil { ... }
package controller

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dshills/bindkit/internal/action"
	"github.com/dshills/bindkit/internal/binding"
	"github.com/dshills/bindkit/internal/dump"
	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/property"
	"github.com/dshills/bindkit/internal/watch"
)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("controller stopped")

type options struct {
	logger       logr.Logger
	dumper       *dump.Dumper
	scheduler    Scheduler
	metrics      *metrics.Metrics
	paths        *property.Cache
	defaultGroup string
	onStart      []func()
}

// Option configures a Controller.
type Option func(*options)

// WithLogger sets the logger shared by the controller's collaborators.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDumper sets the object dumper used by Dump and LogObject.
func WithDumper(d *dump.Dumper) Option {
	return func(o *options) {
		o.dumper = d
	}
}

// WithScheduler sets where Start runs the initial update and start hooks.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithMetrics sets the metrics collector shared by collaborators.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPathCache shares a parsed path cache.
func WithPathCache(c *property.Cache) Option {
	return func(o *options) {
		o.paths = c
	}
}

// WithDefaultGroup names the group returned by Binder.
func WithDefaultGroup(name string) Option {
	return func(o *options) {
		o.defaultGroup = name
	}
}

// WithOnStart adds a hook run after the initial update.
func WithOnStart(fn func()) Option {
	return func(o *options) {
		if fn != nil {
			o.onStart = append(o.onStart, fn)
		}
	}
}

// Controller coordinates the bindings, watches and actions of one model.
type Controller[M any] struct {
	model     M
	logger    logr.Logger
	dumper    *dump.Dumper
	scheduler Scheduler
	onStart   []func()

	binders *binding.Registry
	watches *watch.Dispatcher
	actions *action.Table

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a controller for model.
func New[M any](model M, opts ...Option) *Controller[M] {
	o := options{
		logger:       logr.Discard(),
		scheduler:    Immediate,
		defaultGroup: binding.DefaultGroup,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dumper == nil {
		o.dumper = dump.New()
	}
	if o.paths == nil {
		o.paths = property.NewCache(property.WithMetrics(o.metrics))
	}

	c := &Controller[M]{
		model:     model,
		logger:    o.logger.WithName("controller"),
		dumper:    o.dumper,
		scheduler: o.scheduler,
		onStart:   o.onStart,
	}
	c.binders = binding.NewRegistry(model,
		binding.WithLogger(o.logger),
		binding.WithMetrics(o.metrics),
		binding.WithPathCache(o.paths),
		binding.WithDefaultGroup(o.defaultGroup),
	)
	c.watches = watch.New(model,
		watch.WithLogger(o.logger.WithName("watch")),
		watch.WithMetrics(o.metrics),
		watch.WithPathCache(o.paths),
	)
	c.actions = action.NewTable(
		action.WithLogger(o.logger.WithName("action")),
		action.WithMetrics(o.metrics),
	)
	return c
}

// Model returns the controlled model.
func (c *Controller[M]) Model() M {
	return c.model
}

// Binder returns the default binding group.
func (c *Controller[M]) Binder() *binding.Group {
	return c.binders.Default()
}

// BinderNamed returns the binding group called name, creating it if needed.
func (c *Controller[M]) BinderNamed(name string) *binding.Group {
	return c.binders.LookupOrCreate(name)
}

// Binders returns the binder registry.
func (c *Controller[M]) Binders() *binding.Registry {
	return c.binders
}

// Watch registers handler for changes to paths on the model.
func (c *Controller[M]) Watch(name string, handler watch.Handler, paths ...string) error {
	return c.watches.Watch(name, handler, paths...)
}

// Watches returns the watch dispatcher.
func (c *Controller[M]) Watches() *watch.Dispatcher {
	return c.watches
}

// Actions returns the action table.
func (c *Controller[M]) Actions() *action.Table {
	return c.actions
}

// Logger returns the controller's logger.
func (c *Controller[M]) Logger() logr.Logger {
	return c.logger
}

// Start resolves the watch declarations and schedules the initial update,
// when bind is true, followed by the start hooks.
//
// Only the first call does anything; a controller's watches are resolved
// once per lifetime. Declarations that fail to resolve are logged and
// returned joined, and the remaining startup still proceeds.
func (c *Controller[M]) Start(bind bool) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	err := c.watches.Start()
	if err != nil {
		c.logger.Error(err, "watch resolution failed")
	}

	if bind {
		c.scheduler.Schedule(func() {
			if err := c.Update(); err != nil {
				c.logger.Error(err, "initial update failed")
			}
		})
	}
	for _, fn := range c.onStart {
		c.scheduler.Schedule(fn)
	}
	c.logger.V(1).Info("controller started", "bind", bind, "watches", c.watches.Attached())
	return err
}

// Started reports whether Start has run.
func (c *Controller[M]) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Update binds every binding group.
func (c *Controller[M]) Update() error {
	return c.binders.BindAll()
}

// Stop detaches all watches and unbinds every group. A stopped controller
// cannot be started again.
func (c *Controller[M]) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.watches.Stop()
	c.binders.UnbindAll()
	c.logger.V(1).Info("controller stopped")
}

// Dump renders v with the controller's dumper.
func (c *Controller[M]) Dump(v any) string {
	return c.dumper.String(v)
}

// LogObject writes a dump of v to the logger.
func (c *Controller[M]) LogObject(v any) {
	c.logger.Info("object", "type", fmt.Sprintf("%T", v), "dump", c.dumper.String(v))
}
