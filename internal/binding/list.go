package binding

import (
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/observable"
	"github.com/dshills/bindkit/internal/property"
)

// SelectedProperty is the target property mirrored by a list binding's
// selected path.
const SelectedProperty = "selected"

// ListTarget is a list-like surface fed by a list binding.
type ListTarget interface {
	SetItems(items []any)
	InsertItems(index int, items []any)
	RemoveItems(index, count int)
	ReplaceItem(index int, item any)
}

// ListBinding mirrors an observable sequence on the model into a ListTarget.
// When a selected path is configured, the target's "selected" property is
// bound two-way to it.
type ListBinding struct {
	id       string
	name     string
	group    string
	source   any
	listPath *property.Path
	target   ListTarget
	selected *Binding
	logger   logr.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	active     bool
	activating bool
	pathObs    *property.Observation
	seq        observable.Sequence
	seqSub     *observable.Subscription
}

func newListBinding(group string, source any, listPath *property.Path, target ListTarget, selected *Binding,
	logger logr.Logger, m *metrics.Metrics) *ListBinding {
	name := listPath.String() + "->list"
	return &ListBinding{
		id:       uuid.NewString(),
		name:     name,
		group:    group,
		source:   source,
		listPath: listPath,
		target:   target,
		selected: selected,
		logger:   logger.WithValues("binding", name, "group", group),
		metrics:  m,
	}
}

// ID returns the unique binding identifier.
func (l *ListBinding) ID() string { return l.id }

// Name returns the binding name.
func (l *ListBinding) Name() string { return l.name }

// Target returns the list target.
func (l *ListBinding) Target() ListTarget { return l.target }

// Selected returns the selected-entry binding, or nil.
func (l *ListBinding) Selected() *Binding { return l.selected }

// Active reports whether the list binding is bound.
func (l *ListBinding) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Bind fills the target with the current elements and follows structural
// changes. Replacing the sequence on the model refills the target.
func (l *ListBinding) Bind() error {
	l.mu.Lock()
	if l.active || l.activating {
		l.mu.Unlock()
		return nil
	}
	l.activating = true
	l.mu.Unlock()

	err := l.activate()

	l.mu.Lock()
	l.activating = false
	l.mu.Unlock()
	l.metrics.ObserveActivation(err)
	return err
}

func (l *ListBinding) activate() error {
	v, err := l.listPath.Get(l.source)
	if err != nil {
		return l.activationError(err)
	}
	seq, ok := v.(observable.Sequence)
	if !ok {
		return l.activationError(ErrNotSequence)
	}

	obs, err := l.listPath.Observe(l.source, l.onListReplaced)
	if err != nil {
		return l.activationError(err)
	}

	l.mu.Lock()
	l.pathObs = obs
	l.active = true
	l.attach(seq)
	l.mu.Unlock()

	if l.selected != nil {
		if err := l.selected.Bind(); err != nil {
			l.logger.Error(err, "selected entry binding failed")
		}
	}
	return nil
}

// Unbind stops mirroring. The target keeps its last items.
func (l *ListBinding) Unbind() {
	l.mu.Lock()
	obs := l.pathObs
	l.pathObs = nil
	l.active = false
	l.detach()
	l.mu.Unlock()

	if obs != nil {
		obs.Close()
	}
	if l.selected != nil {
		l.selected.Unbind()
	}
}

// attach subscribes to seq and refills the target. Callers hold l.mu.
func (l *ListBinding) attach(seq observable.Sequence) {
	l.detach()
	l.seq = seq
	l.target.SetItems(items(seq))
	l.seqSub = seq.ObserveStructure(l.onStructure)
}

// detach drops the sequence subscription. Callers hold l.mu.
func (l *ListBinding) detach() {
	if l.seqSub != nil {
		l.seqSub.Unsubscribe()
		l.seqSub = nil
	}
	l.seq = nil
}

func (l *ListBinding) onListReplaced(c property.Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return
	}
	seq, ok := c.NewValue.(observable.Sequence)
	if !ok {
		l.detach()
		l.target.SetItems(nil)
		if c.NewValue != nil {
			l.logger.Error(l.activationError(ErrNotSequence), "list path no longer resolves to a sequence")
		}
		return
	}
	l.attach(seq)
}

func (l *ListBinding) onStructure(e observable.Event) {
	l.mu.Lock()
	seq := l.seq
	l.mu.Unlock()
	if seq == nil || e.Container() != any(seq) {
		return
	}

	index, count := 0, seq.Len()
	if ie, ok := e.(observable.IndexedEvent); ok {
		index, count = ie.Span()
	}

	switch e.Kind() {
	case observable.ElementsAdded:
		added := make([]any, 0, count)
		for i := index; i < index+count; i++ {
			added = append(added, seq.Element(i))
		}
		l.target.InsertItems(index, added)
	case observable.ElementsRemoved:
		l.target.RemoveItems(index, count)
	case observable.ElementReplaced, observable.ElementChanged:
		l.target.ReplaceItem(index, seq.Element(index))
	default:
		l.target.SetItems(items(seq))
	}
	l.metrics.IncPush("forward")
}

func (l *ListBinding) activationError(err error) error {
	return &ActivationError{Group: l.group, Binding: l.name, Path: l.listPath.String(), Err: err}
}

func items(seq observable.Sequence) []any {
	out := make([]any, seq.Len())
	for i := range out {
		out[i] = seq.Element(i)
	}
	return out
}
