package binding

import (
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bindkit/internal/observable"
	"github.com/dshills/bindkit/internal/surface"
)

func TestListBindingMirrorsStructure(t *testing.T) {
	p := newPerson()
	reg := NewRegistry(p, WithLogger(testr.New(t)))
	box := List(reg.Default(), "people", surface.NewListBox(), "")
	require.NoError(t, reg.BindAll())
	assert.Equal(t, []any{"ann", "bob"}, box.Items())

	p.People.Append("cid")
	require.NoError(t, p.People.InsertAll(0, []string{"zoe", "yan"}))
	_, err := p.People.RemoveAt(2)
	require.NoError(t, err)
	_, err = p.People.ReplaceAt(0, "ZOE")
	require.NoError(t, err)
	assert.Equal(t, p.People.Items(), toStrings(box.Items()))

	p.People.Clear()
	assert.Empty(t, box.Items())

	p.People.SetAll([]string{"q"})
	assert.Equal(t, []any{"q"}, box.Items())
}

func TestListBindingFollowsReplacedList(t *testing.T) {
	p := newPerson()
	reg := NewRegistry(p)
	box := List(reg.Default(), "people", surface.NewListBox(), "")
	require.NoError(t, reg.BindAll())

	old := p.People
	require.NoError(t, pathSet(p, "people", observable.NewList("new")))
	assert.Equal(t, []any{"new"}, box.Items())

	updates := box.Updates()
	old.Append("stale")
	assert.Equal(t, updates, box.Updates(), "old list is detached")

	p.People.Append("more")
	assert.Equal(t, []any{"new", "more"}, box.Items())
}

func TestListBindingSelected(t *testing.T) {
	p := newPerson()
	p.Picked = "bob"
	reg := NewRegistry(p)
	box := List(reg.Default(), "people", surface.NewListBox(), "picked")
	require.NoError(t, reg.BindAll())
	assert.Equal(t, "bob", box.Selected())

	require.NoError(t, box.Select(0))
	assert.Equal(t, "ann", p.Picked)

	require.NoError(t, pathSet(p, "picked", "bob"))
	assert.Equal(t, "bob", box.Selected())
}

func TestListBindingRequiresSequence(t *testing.T) {
	p := newPerson()
	reg := NewRegistry(p, WithLogger(testr.New(t)))
	lb, err := reg.Default().BindList("name", surface.NewListBox(), "")
	require.NoError(t, err)

	err = reg.BindAll()
	assert.ErrorIs(t, err, ErrNotSequence)
	assert.False(t, lb.Active())
	assert.Len(t, reg.Default().Lists(), 1)
}

func TestListBindingUnbind(t *testing.T) {
	p := newPerson()
	reg := NewRegistry(p)
	box := List(reg.Default(), "people", surface.NewListBox(), "")
	require.NoError(t, reg.BindAll())

	reg.UnbindAll()
	p.People.Append("late")
	assert.Equal(t, []any{"ann", "bob"}, box.Items())
}

func toStrings(items []any) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.(string)
	}
	return out
}
