package property

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/bindkit/internal/model"
	"github.com/dshills/bindkit/internal/notify"
	"github.com/dshills/bindkit/internal/observable"
)

// Change describes a value change observed through a Path.
type Change struct {
	// Path is the observed path.
	Path *Path

	// OldValue is the value before the change.
	OldValue any

	// NewValue is the value after the change.
	NewValue any

	// Cause is the record that triggered the change: a notify.Change, an
	// observable.Event, or for expressions the Change of the dependency.
	Cause any

	// Err is set when the new value could not be resolved. NewValue is nil.
	Err error
}

// Observation is a live subscription along a path.
type Observation struct {
	id   string
	path *Path
	root any
	fn   func(Change)

	mu      sync.Mutex
	watches []*chainWatch
	value   any
	closed  bool
}

// chainWatch holds one listener per resolvable segment of a chain. links[i]
// listens on the holder of segments[i].
type chainWatch struct {
	obs      *Observation
	segments []string
	links    []func()
	value    any
}

// Observe calls fn every time the value at p may have changed on root.
//
// Every holder along a chain is observed, so replacing an intermediate value
// rewires the listeners below it. Nil intermediates are tolerated and yield a
// nil value until the chain becomes resolvable again. Map segments observe
// the container's structural events for that key. Expressions re-evaluate on
// any change to any of their dependencies.
//
// Announcements are never filtered: a change announced with equal old and new
// values is delivered.
func (p *Path) Observe(root any, fn func(Change)) (*Observation, error) {
	if isNil(root) {
		return nil, resolutionError(OpObserve, p.raw, "", ErrNilIntermediate)
	}
	o := &Observation{
		id:   uuid.NewString(),
		path: p,
		root: root,
		fn:   fn,
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, chain := range p.chains() {
		w := &chainWatch{obs: o, segments: chain}
		w.rewire(0)
		w.value, _ = w.resolve()
		o.watches = append(o.watches, w)
	}
	if p.expr != nil {
		o.value, _ = p.expr.eval(p.raw, root, p.metrics)
	} else {
		o.value = o.watches[0].value
	}
	return o, nil
}

// ID returns a unique identifier for the observation.
func (o *Observation) ID() string {
	return o.id
}

// Path returns the observed path.
func (o *Observation) Path() *Path {
	return o.path
}

// Value returns the last value seen by the observation.
func (o *Observation) Value() any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Close detaches every listener. It is safe to call more than once.
func (o *Observation) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for _, w := range o.watches {
		w.detach(0)
	}
	o.watches = nil
}

// Closed reports whether Close has been called.
func (o *Observation) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Observation) changed(w *chainWatch, level int, cause any, rec *notify.Change) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}

	last := len(w.segments) - 1
	if level < last {
		w.rewire(level + 1)
	}
	old := w.value
	nv, err := w.resolve()
	if rec != nil && level == last && err == nil {
		old, nv = rec.OldValue, rec.NewValue
	}
	w.value = nv

	change := Change{Path: o.path, OldValue: old, NewValue: nv, Cause: cause, Err: err}
	if o.path.expr != nil {
		inner := change
		inner.Path = nil
		old = o.value
		nv, err = o.path.expr.eval(o.path.raw, o.root, o.path.metrics)
		change = Change{Path: o.path, OldValue: old, NewValue: nv, Cause: inner, Err: err}
	}
	o.value = change.NewValue
	fn := o.fn
	o.mu.Unlock()

	fn(change)
}

// rewire replaces the listeners for every level from onward.
func (w *chainWatch) rewire(from int) {
	w.detach(from)
	if w.obs.closed {
		return
	}

	holder := w.obs.root
	for _, seg := range w.segments[:from] {
		v, err := getSegment(holder, seg)
		if err != nil {
			return
		}
		holder = v
	}
	for i := from; i < len(w.segments); i++ {
		if isNil(holder) {
			return
		}
		w.links = append(w.links, w.listen(i, holder))
		v, err := getSegment(holder, w.segments[i])
		if err != nil {
			return
		}
		holder = v
	}
}

func (w *chainWatch) detach(from int) {
	if from >= len(w.links) {
		return
	}
	for _, cancel := range w.links[from:] {
		cancel()
	}
	w.links = w.links[:from]
}

func (w *chainWatch) listen(level int, holder any) func() {
	seg := w.segments[level]
	if c, ok := holder.(observable.Container); ok {
		sub := c.ObserveStructure(func(e observable.Event) {
			if ke, ok := e.(observable.KeyedEvent); ok && !ke.Affects(seg) {
				return
			}
			w.obs.changed(w, level, e, nil)
		})
		return sub.Unsubscribe
	}
	if signal, ok := model.SignalOf(holder); ok {
		sub := signal.SubscribeFunc(seg, func(c notify.Change) {
			w.obs.changed(w, level, c, &c)
		})
		return sub.Unsubscribe
	}
	return func() {}
}

// resolve reads the terminal value. A nil intermediate is not an error.
func (w *chainWatch) resolve() (any, error) {
	v, err := resolveChain(w.obs.root, w.segments)
	if errors.Is(err, ErrNilIntermediate) {
		return nil, nil
	}
	if err != nil {
		return nil, resolutionError(OpObserve, strings.Join(w.segments, "."), "", err)
	}
	return v, nil
}
