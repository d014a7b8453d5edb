package action

import (
	"errors"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// MouseType is the kind of a mouse gesture.
type MouseType int

const (
	MouseClicked MouseType = iota
	MouseDragged
	MouseEntered
	MouseExited
	MouseMoved
	MousePressed
	MouseReleased
	MouseWheelMoved
)

// String returns the gesture name.
func (t MouseType) String() string {
	switch t {
	case MouseClicked:
		return "clicked"
	case MouseDragged:
		return "dragged"
	case MouseEntered:
		return "entered"
	case MouseExited:
		return "exited"
	case MouseMoved:
		return "moved"
	case MousePressed:
		return "pressed"
	case MouseReleased:
		return "released"
	case MouseWheelMoved:
		return "wheel-moved"
	default:
		return "unknown"
	}
}

// Button is a mouse button.
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonSecondary
	ButtonMiddle
)

// String returns the button name.
func (b Button) String() string {
	switch b {
	case ButtonPrimary:
		return "primary"
	case ButtonSecondary:
		return "secondary"
	case ButtonMiddle:
		return "middle"
	default:
		return "none"
	}
}

// Rect is a screen region in cells.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Contains reports whether the cell at x, y lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// MouseEvent is a typed mouse gesture.
type MouseEvent struct {
	Type   MouseType
	Source any
	X, Y   int
	Button Button

	// Wheel is -1 for up or left and 1 for down or right on MouseWheelMoved.
	Wheel int

	// Native is the terminal event the gesture was derived from.
	Native *tcell.EventMouse
}

// MouseAdapter turns raw terminal mouse events into gestures over a region
// and performs the action mapped to each gesture type.
//
// Enter and exit are derived from the bounds. A press inside the bounds
// starts a gesture; motion with the button held is a drag wherever the
// pointer goes; the release ends it and counts as a click when the pointer
// never moved and is still inside.
type MouseAdapter struct {
	table  *Table
	source any

	mu       sync.Mutex
	bounds   Rect
	routes   map[MouseType]string
	inside   bool
	pressed  Button
	pressX   int
	pressY   int
	dragging bool
}

// NewMouseAdapter creates an adapter for source occupying bounds.
func NewMouseAdapter(table *Table, source any, bounds Rect) *MouseAdapter {
	return &MouseAdapter{
		table:  table,
		source: source,
		bounds: bounds,
		routes: make(map[MouseType]string),
	}
}

// On maps a gesture type to an action name.
func (a *MouseAdapter) On(t MouseType, action string) *MouseAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[t] = action
	return a
}

// SetBounds moves or resizes the region.
func (a *MouseAdapter) SetBounds(r Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bounds = r
}

// Handle translates ev and performs the mapped actions in gesture order.
// Gestures without a mapping are returned but not performed. Action
// failures are joined into the returned error.
func (a *MouseAdapter) Handle(ev *tcell.EventMouse) ([]MouseEvent, error) {
	a.mu.Lock()
	gestures := a.translate(ev)
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
	return gestures, errors.Join(errs...)
}

func (a *MouseAdapter) translate(ev *tcell.EventMouse) []MouseEvent {
	x, y := ev.Position()
	mask := ev.Buttons()
	in := a.bounds.Contains(x, y)

	var out []MouseEvent
	emit := func(t MouseType, b Button, wheel int) {
		out = append(out, MouseEvent{Type: t, Source: a.source, X: x, Y: y, Button: b, Wheel: wheel, Native: ev})
	}

	if in != a.inside {
		a.inside = in
		if in {
			emit(MouseEntered, ButtonNone, 0)
		} else {
			emit(MouseExited, ButtonNone, 0)
		}
	}

	if wheel := wheelDelta(mask); wheel != 0 {
		if in {
			emit(MouseWheelMoved, ButtonNone, wheel)
		}
		return out
	}

	button := buttonOf(mask)
	switch {
	case button != ButtonNone && a.pressed == ButtonNone:
		if in {
			a.pressed = button
			a.pressX, a.pressY = x, y
			a.dragging = false
			emit(MousePressed, button, 0)
		}
	case button != ButtonNone:
		if x != a.pressX || y != a.pressY || a.dragging {
			a.dragging = true
			emit(MouseDragged, a.pressed, 0)
		}
	case a.pressed != ButtonNone:
		released := a.pressed
		a.pressed = ButtonNone
		emit(MouseReleased, released, 0)
		if !a.dragging && in && x == a.pressX && y == a.pressY {
			emit(MouseClicked, released, 0)
		}
		a.dragging = false
	case in:
		emit(MouseMoved, ButtonNone, 0)
	}
	return out
}

func buttonOf(mask tcell.ButtonMask) Button {
	switch {
	case mask&tcell.ButtonPrimary != 0:
		return ButtonPrimary
	case mask&tcell.ButtonSecondary != 0:
		return ButtonSecondary
	case mask&tcell.ButtonMiddle != 0:
		return ButtonMiddle
	default:
		return ButtonNone
	}
}

func wheelDelta(mask tcell.ButtonMask) int {
	switch {
	case mask&(tcell.WheelUp|tcell.WheelLeft) != 0:
		return -1
	case mask&(tcell.WheelDown|tcell.WheelRight) != 0:
		return 1
	default:
		return 0
	}
}
