package binding

import (
	"errors"
	"slices"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/property"
)

// member is a binding owned by a group.
type member interface {
	Name() string
	Bind() error
	Unbind()
	Active() bool
}

// Group is a named set of bindings activated and deactivated together.
type Group struct {
	name     string
	registry *Registry
	model    any
	paths    *property.Cache
	logger   logr.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	members  []member
	bound    bool
	disposed bool
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// BindProperty adds a binding from sourcePath on the registry model to
// targetPath on target. If the group is bound, the binding activates at once;
// an activation failure is logged and leaves that binding inactive.
func (g *Group) BindProperty(sourcePath string, target any, targetPath string, dir Direction, opts ...Option) (*Binding, error) {
	return g.BindSource(g.model, sourcePath, target, targetPath, dir, opts...)
}

// BindSource is like BindProperty with an explicit source root.
func (g *Group) BindSource(source any, sourcePath string, target any, targetPath string, dir Direction, opts ...Option) (*Binding, error) {
	sp, err := g.paths.Parse(sourcePath)
	if err != nil {
		return nil, err
	}
	tp, err := g.paths.Parse(targetPath)
	if err != nil {
		return nil, err
	}
	b := newBinding(g.name, source, sp, target, tp, dir, g.logger, g.metrics, opts...)
	if err := g.add(b); err != nil {
		return nil, err
	}
	return b, nil
}

// BindList mirrors the sequence at listPath into target. A non-empty
// selectedPath is bound two-way to the target's "selected" property.
func (g *Group) BindList(listPath string, target ListTarget, selectedPath string) (*ListBinding, error) {
	lp, err := g.paths.Parse(listPath)
	if err != nil {
		return nil, err
	}
	var selected *Binding
	if selectedPath != "" {
		sp, err := g.paths.Parse(selectedPath)
		if err != nil {
			return nil, err
		}
		tp, err := g.paths.Parse(SelectedProperty)
		if err != nil {
			return nil, err
		}
		selected = newBinding(g.name, g.model, sp, target, tp, TwoWay, g.logger, g.metrics)
	}
	lb := newListBinding(g.name, g.model, lp, target, selected, g.logger, g.metrics)
	if err := g.add(lb); err != nil {
		return nil, err
	}
	return lb, nil
}

func (g *Group) add(m member) error {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return ErrDisposed
	}
	g.members = append(g.members, m)
	bound := g.bound
	g.mu.Unlock()

	if bound {
		g.activate(m)
	}
	return nil
}

// Bind activates every binding in the group. Bindings that are already
// active are left alone. Each failure is logged and returned joined; it does
// not prevent the remaining bindings from activating.
func (g *Group) Bind() error {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return ErrDisposed
	}
	g.bound = true
	members := slices.Clone(g.members)
	g.mu.Unlock()

	var errs []error
	for _, m := range members {
		if err := g.activate(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Group) activate(m member) error {
	if m.Active() {
		return nil
	}
	err := m.Bind()
	if err != nil {
		g.logger.Error(err, "binding activation failed", "group", g.name, "binding", m.Name())
	}
	return err
}

// Unbind deactivates every binding while keeping their definitions.
func (g *Group) Unbind() {
	g.mu.Lock()
	g.bound = false
	members := slices.Clone(g.members)
	g.mu.Unlock()

	for _, m := range members {
		m.Unbind()
	}
}

// Dispose unbinds the group, drops its bindings and removes it from its
// registry. A disposed group rejects new bindings.
func (g *Group) Dispose() {
	g.Unbind()

	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return
	}
	g.disposed = true
	g.members = nil
	g.mu.Unlock()

	if g.registry != nil {
		g.registry.Remove(g)
	}
}

// Bound reports whether Bind has been called since the last Unbind.
func (g *Group) Bound() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bound
}

// Disposed reports whether Dispose has been called.
func (g *Group) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}

// Bindings returns the property bindings in registration order.
func (g *Group) Bindings() []*Binding {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*Binding
	for _, m := range g.members {
		if b, ok := m.(*Binding); ok {
			out = append(out, b)
		}
	}
	return out
}

// Lists returns the list bindings in registration order.
func (g *Group) Lists() []*ListBinding {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*ListBinding
	for _, m := range g.members {
		if l, ok := m.(*ListBinding); ok {
			out = append(out, l)
		}
	}
	return out
}

// Len returns the number of bindings of any kind.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Bind adds a two-way binding and returns target for chaining. Failures are
// logged.
func Bind[T any](g *Group, sourcePath string, target T, targetPath string, opts ...Option) T {
	return bindAndReturn(g, sourcePath, target, targetPath, TwoWay, opts)
}

// Read adds a source-to-target binding and returns target for chaining.
func Read[T any](g *Group, sourcePath string, target T, targetPath string, opts ...Option) T {
	return bindAndReturn(g, sourcePath, target, targetPath, ReadOnly, opts)
}

// Write adds a target-to-source binding and returns target for chaining.
// It captures edits made on the target without reflecting model changes.
func Write[T any](g *Group, sourcePath string, target T, targetPath string, opts ...Option) T {
	return bindAndReturn(g, sourcePath, target, targetPath, WriteOnly, opts)
}

// List mirrors the sequence at listPath into target and returns target.
func List[T ListTarget](g *Group, listPath string, target T, selectedPath string) T {
	if _, err := g.BindList(listPath, target, selectedPath); err != nil {
		g.logger.Error(err, "list binding rejected", "group", g.name, "path", listPath)
	}
	return target
}

func bindAndReturn[T any](g *Group, sourcePath string, target T, targetPath string, dir Direction, opts []Option) T {
	if _, err := g.BindProperty(sourcePath, target, targetPath, dir, opts...); err != nil {
		g.logger.Error(err, "binding rejected", "group", g.name, "source", sourcePath, "target", targetPath)
	}
	return target
}
