package action

import (
	"errors"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// DropType is the kind of a drop gesture.
type DropType int

const (
	DragEnter DropType = iota
	DragOver
	Drop
	DragExit
)

// String returns the gesture name.
func (t DropType) String() string {
	switch t {
	case DragEnter:
		return "drag-enter"
	case DragOver:
		return "drag-over"
	case Drop:
		return "drop"
	case DragExit:
		return "drag-exit"
	default:
		return "unknown"
	}
}

// DropEvent is a typed drop gesture. Data holds the text transferred so far.
type DropEvent struct {
	Type   DropType
	Source any
	Data   string
	Native tcell.Event
}

// DropAdapter treats a bracketed paste as a drop onto source: the paste
// start is DragEnter, every pasted key is DragOver, and the paste end is
// Drop when the content is accepted or DragExit when it is not.
type DropAdapter struct {
	table  *Table
	source any

	mu     sync.Mutex
	routes map[DropType]string
	accept func(data string) bool
	active bool
	buf    strings.Builder
}

// NewDropAdapter creates an adapter delivering drops to source.
func NewDropAdapter(table *Table, source any) *DropAdapter {
	return &DropAdapter{
		table:  table,
		source: source,
		routes: make(map[DropType]string),
	}
}

// On maps a drop gesture type to an action name.
func (a *DropAdapter) On(t DropType, action string) *DropAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[t] = action
	return a
}

// IfTransferable sets the predicate deciding whether pasted content is
// accepted. Without one every drop is accepted.
func (a *DropAdapter) IfTransferable(accept func(data string) bool) *DropAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accept = accept
	return a
}

// Active reports whether a paste is in progress.
func (a *DropAdapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Handle consumes ev if it belongs to a drop. It reports the gestures
// produced, whether ev was consumed, and joined action failures.
func (a *DropAdapter) Handle(ev tcell.Event) ([]DropEvent, bool, error) {
	a.mu.Lock()
	gestures, consumed := a.translate(ev)
	routes := make([]string, len(gestures))
	for i, g := range gestures {
		routes[i] = a.routes[g.Type]
	}
	a.mu.Unlock()

	var errs []error
	for i, g := range gestures {
		if routes[i] == "" {
			continue
		}
		err := a.table.invoke(routes[i], g.Type.String(), Event{Name: routes[i], Source: a.source, Native: g})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return gestures, consumed, errors.Join(errs...)
}

func (a *DropAdapter) translate(ev tcell.Event) ([]DropEvent, bool) {
	switch e := ev.(type) {
	case *tcell.EventPaste:
		if e.Start() {
			a.active = true
			a.buf.Reset()
			return []DropEvent{a.event(DragEnter, ev)}, true
		}
		if !a.active {
			return nil, true
		}
		a.active = false
		t := Drop
		if a.accept != nil && !a.accept(a.buf.String()) {
			t = DragExit
		}
		return []DropEvent{a.event(t, ev)}, true

	case *tcell.EventKey:
		if !a.active {
			return nil, false
		}
		switch e.Key() {
		case tcell.KeyRune:
			a.buf.WriteRune(e.Rune())
		case tcell.KeyEnter, tcell.KeyLF:
			a.buf.WriteByte('\n')
		case tcell.KeyTab:
			a.buf.WriteByte('\t')
		default:
			return nil, true
		}
		return []DropEvent{a.event(DragOver, ev)}, true
	}
	return nil, false
}

func (a *DropAdapter) event(t DropType, native tcell.Event) DropEvent {
	return DropEvent{Type: t, Source: a.source, Data: a.buf.String(), Native: native}
}
