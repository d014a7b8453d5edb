package binding

import (
	"errors"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/property"
)

// DefaultGroup is the name of the group returned by Registry.Default.
const DefaultGroup = "main"

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for activation and propagation failures.
func WithLogger(l logr.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithPathCache shares a parsed path cache with other components.
func WithPathCache(c *property.Cache) RegistryOption {
	return func(r *Registry) {
		r.paths = c
	}
}

// WithDefaultGroup overrides the default group name.
func WithDefaultGroup(name string) RegistryOption {
	return func(r *Registry) {
		if name != "" {
			r.defaultName = name
		}
	}
}

// Registry holds the named binding groups of one model.
type Registry struct {
	model       any
	logger      logr.Logger
	metrics     *metrics.Metrics
	paths       *property.Cache
	defaultName string

	mu     sync.Mutex
	groups map[string]*Group
	order  []string
}

// NewRegistry creates a registry whose groups bind against model.
func NewRegistry(model any, opts ...RegistryOption) *Registry {
	r := &Registry{
		model:       model,
		logger:      logr.Discard(),
		defaultName: DefaultGroup,
		groups:      make(map[string]*Group),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.paths == nil {
		r.paths = property.NewCache(property.WithMetrics(r.metrics))
	}
	return r
}

// Model returns the model groups bind against.
func (r *Registry) Model() any {
	return r.model
}

// LookupOrCreate returns the group called name, creating it on first use.
func (r *Registry) LookupOrCreate(name string) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[name]; ok {
		return g
	}
	g := &Group{
		name:     name,
		registry: r,
		model:    r.model,
		paths:    r.paths,
		logger:   r.logger.WithName("binder"),
		metrics:  r.metrics,
	}
	r.groups[name] = g
	r.order = append(r.order, name)
	return g
}

// Default returns the default group.
func (r *Registry) Default() *Group {
	return r.LookupOrCreate(r.defaultName)
}

// Lookup returns the group called name without creating it.
func (r *Registry) Lookup(name string) (*Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	return g, ok
}

// BindAll binds every group in creation order.
func (r *Registry) BindAll() error {
	var errs []error
	for _, g := range r.snapshot() {
		if err := g.Bind(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UnbindAll unbinds every group.
func (r *Registry) UnbindAll() {
	for _, g := range r.snapshot() {
		g.Unbind()
	}
}

// DisposeAll disposes every group, leaving the registry empty.
func (r *Registry) DisposeAll() {
	for _, g := range r.snapshot() {
		g.Dispose()
	}
}

// Remove drops g from the registry. It reports whether g was registered.
func (r *Registry) Remove(g *Group) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.groups[g.name]; !ok || cur != g {
		return false
	}
	delete(r.groups, g.name)
	for i, name := range r.order {
		if name == g.name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the group names in creation order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of groups.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

func (r *Registry) snapshot() []*Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Group, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.groups[name])
	}
	return out
}
