// Package binding links model properties to target properties.
//
// A Binding connects a source path on the model to a target path on any
// addressable object. Bindings live in named groups that are activated and
// deactivated together; groups live in a per-controller Registry.
//
//	reg := binding.NewRegistry(person)
//	field := binding.Bind(reg.Default(), "address.street", surface.NewTextField(), "text")
//	reg.BindAll()
//
// Activation pushes the current value once and then follows changes in the
// binding's direction. A two-way binding never loops: a value is not written
// to a side that already holds it, and a binding ignores changes it caused.
package binding

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/property"
)

// Direction is the propagation direction of a binding.
type Direction int

const (
	// TwoWay pushes source changes to the target and target changes to the source.
	TwoWay Direction = iota

	// ReadOnly pushes source changes to the target only.
	ReadOnly

	// WriteOnly pushes target changes to the source only.
	WriteOnly
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case TwoWay:
		return "two-way"
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func (d Direction) forward() bool { return d == TwoWay || d == ReadOnly }

func (d Direction) reverse() bool { return d == TwoWay || d == WriteOnly }

// Converter transforms values crossing a binding. A nil func passes values
// through unchanged.
type Converter struct {
	// Forward converts source values for the target.
	Forward func(any) (any, error)

	// Reverse converts target values for the source.
	Reverse func(any) (any, error)
}

// Option configures a Binding.
type Option func(*Binding)

// WithConverter sets the value converter.
func WithConverter(c Converter) Option {
	return func(b *Binding) {
		b.converter = c
	}
}

// WithName overrides the binding name used in logs and errors.
func WithName(name string) Option {
	return func(b *Binding) {
		b.name = name
	}
}

// Binding is a directional link between a source and a target property.
type Binding struct {
	id         string
	name       string
	group      string
	source     any
	sourcePath *property.Path
	target     any
	targetPath *property.Path
	direction  Direction
	converter  Converter
	logger     logr.Logger
	metrics    *metrics.Metrics

	mu         sync.Mutex
	active     bool
	activating bool
	updating   bool
	sourceObs *property.Observation
	targetObs *property.Observation
}

func newBinding(group string, source any, sourcePath *property.Path, target any, targetPath *property.Path,
	dir Direction, logger logr.Logger, m *metrics.Metrics, opts ...Option) *Binding {
	b := &Binding{
		id:         uuid.NewString(),
		name:       sourcePath.String() + "->" + targetPath.String(),
		group:      group,
		source:     source,
		sourcePath: sourcePath,
		target:     target,
		targetPath: targetPath,
		direction:  dir,
		metrics:    m,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logger.WithValues("binding", b.name, "group", group)
	return b
}

// ID returns the unique binding identifier.
func (b *Binding) ID() string { return b.id }

// Name returns the binding name.
func (b *Binding) Name() string { return b.name }

// Direction returns the propagation direction.
func (b *Binding) Direction() Direction { return b.direction }

// Source returns the source root object.
func (b *Binding) Source() any { return b.source }

// SourcePath returns the source path.
func (b *Binding) SourcePath() *property.Path { return b.sourcePath }

// Target returns the target object.
func (b *Binding) Target() any { return b.target }

// TargetPath returns the target path.
func (b *Binding) TargetPath() *property.Path { return b.targetPath }

// Active reports whether the binding is currently bound.
func (b *Binding) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Bind activates the binding. It pushes the current value once and starts
// listening in the binding's direction. Binding an active binding, or one
// being activated by another goroutine, is a no-op.
func (b *Binding) Bind() error {
	b.mu.Lock()
	if b.active || b.activating {
		b.mu.Unlock()
		return nil
	}
	b.activating = true
	b.mu.Unlock()

	err := b.activate()

	b.mu.Lock()
	b.activating = false
	b.mu.Unlock()
	b.metrics.ObserveActivation(err)
	return err
}

func (b *Binding) activate() error {
	if b.direction.forward() && !b.targetPath.Writable() {
		return b.activationError(b.targetPath, ErrNotWritable)
	}
	if b.direction.reverse() && !b.sourcePath.Writable() {
		return b.activationError(b.sourcePath, ErrNotWritable)
	}

	if b.direction.forward() {
		v, err := b.sourcePath.Get(b.source)
		if err != nil {
			return b.activationError(b.sourcePath, err)
		}
		if err := b.write(b.target, b.targetPath, v, b.converter.Forward, "forward"); err != nil {
			return b.activationError(b.targetPath, err)
		}
	} else {
		v, err := b.targetPath.Get(b.target)
		if err != nil {
			return b.activationError(b.targetPath, err)
		}
		if err := b.write(b.source, b.sourcePath, v, b.converter.Reverse, "reverse"); err != nil {
			return b.activationError(b.sourcePath, err)
		}
	}

	var sourceObs, targetObs *property.Observation
	var err error
	if b.direction.forward() {
		sourceObs, err = b.sourcePath.Observe(b.source, b.onSourceChange)
		if err != nil {
			return b.activationError(b.sourcePath, err)
		}
	}
	if b.direction.reverse() {
		targetObs, err = b.targetPath.Observe(b.target, b.onTargetChange)
		if err != nil {
			if sourceObs != nil {
				sourceObs.Close()
			}
			return b.activationError(b.targetPath, err)
		}
	}

	b.mu.Lock()
	b.sourceObs, b.targetObs = sourceObs, targetObs
	b.active = true
	b.mu.Unlock()

	b.logger.V(1).Info("binding activated", "direction", b.direction.String())
	return nil
}

// Unbind detaches all listeners. The binding can be bound again later.
func (b *Binding) Unbind() {
	b.mu.Lock()
	sourceObs, targetObs := b.sourceObs, b.targetObs
	b.sourceObs, b.targetObs = nil, nil
	wasActive := b.active
	b.active = false
	b.mu.Unlock()

	if sourceObs != nil {
		sourceObs.Close()
	}
	if targetObs != nil {
		targetObs.Close()
	}
	if wasActive {
		b.logger.V(1).Info("binding deactivated")
	}
}

func (b *Binding) onSourceChange(c property.Change) {
	b.propagate(c, b.target, b.targetPath, b.converter.Forward, "forward")
}

func (b *Binding) onTargetChange(c property.Change) {
	b.propagate(c, b.source, b.sourcePath, b.converter.Reverse, "reverse")
}

func (b *Binding) propagate(c property.Change, root any, path *property.Path, conv func(any) (any, error), direction string) {
	if c.Err != nil {
		b.logger.Error(c.Err, "binding could not read changed value", "path", c.Path.String())
		return
	}

	b.mu.Lock()
	if !b.active || b.updating {
		b.mu.Unlock()
		return
	}
	b.updating = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.updating = false
		b.mu.Unlock()
	}()

	if err := b.write(root, path, c.NewValue, conv, direction); err != nil {
		b.logger.Error(err, "binding could not propagate value", "direction", direction, "path", path.String())
	}
}

// write converts v and stores it at path unless the receiving side already
// holds an equal value.
func (b *Binding) write(root any, path *property.Path, v any, conv func(any) (any, error), direction string) error {
	if conv != nil {
		var err error
		if v, err = conv(v); err != nil {
			return err
		}
	}
	if current, err := path.Get(root); err == nil && equalValues(current, v) {
		return nil
	}
	if err := path.Set(root, v); err != nil {
		return err
	}
	b.metrics.IncPush(direction)
	return nil
}

func (b *Binding) activationError(path *property.Path, err error) error {
	return &ActivationError{Group: b.group, Binding: b.name, Path: path.String(), Err: err}
}

// equalValues compares current with incoming, converting incoming to the
// type of current when they differ.
func equalValues(current, incoming any) bool {
	if reflect.DeepEqual(current, incoming) {
		return true
	}
	if current == nil || incoming == nil {
		return false
	}
	converted, err := property.Convert(incoming, reflect.TypeOf(current))
	if err != nil {
		return false
	}
	return reflect.DeepEqual(current, converted)
}
