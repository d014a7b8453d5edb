package property

import (
	"github.com/dshills/bindkit/internal/model"
	"github.com/dshills/bindkit/internal/observable"
)

type address struct {
	model.Base
	street string
	Town   string `json:"town"`
}

func (a *address) Street() string { return a.street }

func (a *address) SetStreet(s string) { model.Set(a, "street", &a.street, s) }

type person struct {
	model.Base
	name    string
	address *address
	Count   int `json:"count"`
	Ratio   float64
	Tags    map[string]string
	Scores  *observable.Map[string, int]
	Items   *observable.List[string]
}

func (p *person) Name() string { return p.name }

func (p *person) SetName(n string) { model.Set(p, "name", &p.name, n) }

func (p *person) Address() *address { return p.address }

func (p *person) SetAddress(a *address) { model.Set(p, "address", &p.address, a) }

func (p *person) Greeting() string { return "hello " + p.name }

func newPerson() *person {
	return &person{
		name:    "Ann",
		address: &address{street: "Main St", Town: "Springfield"},
		Count:   1,
		Tags:    map[string]string{"color": "blue"},
		Scores:  observable.NewMap[string, int](observable.WithDefault(-1)),
		Items:   observable.NewList("a", "b"),
	}
}

// bag is a model that exposes properties through the name-based interfaces.
type bag struct {
	model.Base
	values map[string]any
}

func (b *bag) GetProperty(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

func (b *bag) SetProperty(name string, value any) error {
	if name == "fixed" {
		return model.ErrUnknownProperty
	}
	old := b.values[name]
	b.values[name] = value
	b.Announce(name, old, value)
	return nil
}

func (b *bag) Fixed() string { return "fixed" }
