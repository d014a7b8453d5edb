package controller

import (
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bindkit/internal/action"
	"github.com/dshills/bindkit/internal/binding"
	"github.com/dshills/bindkit/internal/dump"
	"github.com/dshills/bindkit/internal/model"
	"github.com/dshills/bindkit/internal/surface"
	"github.com/dshills/bindkit/internal/watch"
)

type address struct {
	model.Base
	street string
}

func (a *address) Street() string     { return a.street }
func (a *address) SetStreet(s string) { model.Set(a, "street", &a.street, s) }

type person struct {
	model.Base
	name    string
	address *address
}

func (p *person) Name() string          { return p.name }
func (p *person) SetName(n string)      { model.Set(p, "name", &p.name, n) }
func (p *person) Address() *address     { return p.address }
func (p *person) SetAddress(a *address) { model.Set(p, "address", &p.address, a) }

func newPerson() *person {
	return &person{name: "A", address: &address{street: "Main"}}
}

func TestController_StartBindsAndWatches(t *testing.T) {
	p := newPerson()
	var started int
	c := New(p, WithLogger(testr.New(t)), WithOnStart(func() { started++ }))

	field := binding.Bind(c.Binder(), "name", surface.NewTextField(), "text")
	var names []string
	require.NoError(t, c.Watch("onName", func(e watch.Event) error {
		names = append(names, e.NewValue.(string))
		return nil
	}, "name"))

	assert.Equal(t, "", field.Text(), "not bound before Start")
	require.NoError(t, c.Start(true))
	assert.True(t, c.Started())
	assert.Equal(t, "A", field.Text())
	assert.Equal(t, 1, started)

	p.SetName("B")
	assert.Equal(t, "B", field.Text())
	assert.Equal(t, []string{"B"}, names)

	field.Type("C")
	assert.Equal(t, "C", p.Name())
	assert.Equal(t, []string{"B", "C"}, names)
}

func TestController_StartTwiceDoesNotDuplicate(t *testing.T) {
	p := newPerson()
	var started int
	c := New(p, WithOnStart(func() { started++ }))

	var calls int
	require.NoError(t, c.Watch("count", func(watch.Event) error {
		calls++
		return nil
	}, "name"))

	require.NoError(t, c.Start(true))
	require.NoError(t, c.Start(true))

	p.SetName("B")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, c.Watches().Attached())
}

func TestController_StartWithoutBind(t *testing.T) {
	c := New(newPerson())
	field := binding.Bind(c.Binder(), "name", surface.NewTextField(), "text")

	require.NoError(t, c.Start(false))
	assert.Equal(t, "", field.Text())

	require.NoError(t, c.Update())
	assert.Equal(t, "A", field.Text())
}

func TestController_Scheduler(t *testing.T) {
	q := &Queue{}
	var order []string
	c := New(newPerson(), WithScheduler(q), WithOnStart(func() { order = append(order, "hook") }))
	field := binding.Bind(c.Binder(), "name", surface.NewTextField(), "text")
	require.NoError(t, c.Watch("w", func(watch.Event) error { return nil }, "name"))

	require.NoError(t, c.Start(true))
	assert.Equal(t, 1, c.Watches().Attached(), "watches resolve synchronously")
	assert.Equal(t, "", field.Text(), "update is deferred")
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, 2, q.Drain())
	assert.Equal(t, "A", field.Text())
	assert.Equal(t, []string{"hook"}, order)
}

func TestController_StartReportsResolutionErrors(t *testing.T) {
	c := New(newPerson(), WithLogger(testr.New(t)))
	field := binding.Bind(c.Binder(), "name", surface.NewTextField(), "text")
	require.NoError(t, c.Watch("bad", func(watch.Event) error { return nil }, "missing.path"))

	assert.Error(t, c.Start(true))
	assert.Equal(t, "A", field.Text(), "startup continues after a failed declaration")
}

func TestController_NamedBinders(t *testing.T) {
	c := New(newPerson(), WithDefaultGroup("form"))
	assert.Equal(t, "form", c.Binder().Name())
	assert.Same(t, c.BinderNamed("extra"), c.BinderNamed("extra"))
	assert.ElementsMatch(t, []string{"form", "extra"}, c.Binders().Names())
}

func TestController_Stop(t *testing.T) {
	p := newPerson()
	c := New(p)
	field := binding.Bind(c.Binder(), "address.street", surface.NewTextField(), "text")
	var calls int
	require.NoError(t, c.Watch("w", func(watch.Event) error { calls++; return nil }, "address.street"))
	require.NoError(t, c.Start(true))

	c.Stop()
	c.Stop()
	p.Address().SetStreet("Elm")
	assert.Equal(t, "Main", field.Text())
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, c.Start(true), ErrStopped)
}

func TestController_Actions(t *testing.T) {
	p := newPerson()
	c := New(p)
	require.NoError(t, c.Actions().Register("rename", func(e action.Event) error {
		p.SetName(e.Source.(string))
		return nil
	}))
	require.NoError(t, c.Actions().Action("rename").Perform("Z"))
	assert.Equal(t, "Z", c.Model().Name())
}

func TestController_LogObject(t *testing.T) {
	var lines []string
	logger := funcr.New(func(_, args string) { lines = append(lines, args) }, funcr.Options{})

	c := New(newPerson(), WithLogger(logger), WithDumper(dump.New(dump.WithIndent(0))))
	c.LogObject(map[string]string{"street": "Main"})

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"type"="map[string]string"`)
	assert.Contains(t, lines[0], `{\"street\":\"Main\"}`)
	assert.Equal(t, `{"street":"Main"}`, c.Dump(map[string]string{"street": "Main"}))
}
