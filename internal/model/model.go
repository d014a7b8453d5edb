// Package model defines the contract between application state and the
// binding engine.
//
// A model is any object whose observable mutations are announced through a
// change signal. The simplest way to build one is to embed Base and route every
// setter through Set:
//
//	type Person struct {
//	    model.Base
//	    Name string `json:"name"`
//	}
//
//	func (p *Person) SetName(name string) {
//	    model.Set(p, "name", &p.Name, name)
//	}
//
// Assigning p.Name directly bypasses the announcement and is invisible to
// watchers and bindings. That is a documented contract; the type system does
// not enforce it.
package model

import (
	"errors"

	"github.com/dshills/bindkit/internal/notify"
)

// ErrUnknownProperty is returned by PropertySetter implementations for names
// they do not handle. Resolution then falls back to methods and fields.
var ErrUnknownProperty = errors.New("unknown property")

// Announcer is implemented by models that can announce property changes.
type Announcer interface {
	Announce(property string, oldValue, newValue any)
}

// PropertyGetter lets a model expose properties by name without reflection.
type PropertyGetter interface {
	GetProperty(name string) (any, bool)
}

// PropertySetter lets a model accept property writes by name without
// reflection. Implementations are expected to announce the change and to
// return ErrUnknownProperty for names they do not handle.
type PropertySetter interface {
	SetProperty(name string, value any) error
}

// Base is embedded in model structs to provide a change signal.
// The zero value is ready to use. Base must not be copied after first use.
type Base struct {
	signal notify.Signal
}

// Changes returns the model's change signal.
func (b *Base) Changes() *notify.Signal {
	return &b.signal
}

// Announce notifies listeners that property changed.
func (b *Base) Announce(property string, oldValue, newValue any) {
	b.signal.Announce(property, oldValue, newValue)
}

// Set assigns value to *field and announces the change on a.
// The announcement happens even when the value is unchanged.
func Set[T any](a Announcer, property string, field *T, value T) {
	old := *field
	*field = value
	a.Announce(property, old, value)
}

// SignalOf returns the change signal of v if v is observable.
func SignalOf(v any) (*notify.Signal, bool) {
	src, ok := v.(notify.Source)
	if !ok || src == nil {
		return nil, false
	}
	s := src.Changes()
	return s, s != nil
}
