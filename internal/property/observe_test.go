package property

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/notify"
	"github.com/dshills/bindkit/internal/observable"
)

func notifyFunc(fn func(name string, oldValue, newValue any)) notify.Listener {
	return notify.ListenerFunc(func(c notify.Change) {
		fn(c.Property, c.OldValue, c.NewValue)
	})
}

type recorder struct {
	changes []Change
}

func (r *recorder) record(c Change) {
	r.changes = append(r.changes, c)
}

func (r *recorder) values() []any {
	out := make([]any, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.NewValue
	}
	return out
}

func TestObserveSimple(t *testing.T) {
	p := newPerson()
	var rec recorder
	obs, err := MustParse("name").Observe(p, rec.record)
	require.NoError(t, err)
	assert.Equal(t, "Ann", obs.Value())
	assert.NotEmpty(t, obs.ID())

	p.SetName("B")
	require.Len(t, rec.changes, 1)
	c := rec.changes[0]
	assert.Equal(t, "Ann", c.OldValue)
	assert.Equal(t, "B", c.NewValue)
	assert.Equal(t, "name", c.Path.String())
	assert.IsType(t, notify.Change{}, c.Cause)
	assert.Equal(t, "B", obs.Value())
}

func TestObserveEqualValueStillDelivered(t *testing.T) {
	p := newPerson()
	var rec recorder
	_, err := MustParse("name").Observe(p, rec.record)
	require.NoError(t, err)

	p.SetName("Ann")
	assert.Len(t, rec.changes, 1)
}

func TestObserveNestedRewires(t *testing.T) {
	p := newPerson()
	oldAddr := p.address
	var rec recorder
	_, err := MustParse("address.street").Observe(p, rec.record)
	require.NoError(t, err)

	p.address.SetStreet("Elm St")
	require.Len(t, rec.changes, 1)
	assert.Equal(t, "Main St", rec.changes[0].OldValue)
	assert.Equal(t, "Elm St", rec.changes[0].NewValue)

	newAddr := &address{street: "Oak St"}
	p.SetAddress(newAddr)
	require.Len(t, rec.changes, 2)
	assert.Equal(t, "Elm St", rec.changes[1].OldValue)
	assert.Equal(t, "Oak St", rec.changes[1].NewValue)

	oldAddr.SetStreet("ignored")
	assert.Len(t, rec.changes, 2, "replaced intermediate must be detached")
	assert.Equal(t, 0, oldAddr.Changes().Len())

	newAddr.SetStreet("Pine St")
	assert.Equal(t, []any{"Elm St", "Oak St", "Pine St"}, rec.values())
}

func TestObserveNilIntermediate(t *testing.T) {
	p := newPerson()
	p.address = nil
	var rec recorder
	obs, err := MustParse("address.street").Observe(p, rec.record)
	require.NoError(t, err)
	assert.Nil(t, obs.Value())

	p.SetAddress(&address{street: "First"})
	require.Len(t, rec.changes, 1)
	assert.Nil(t, rec.changes[0].OldValue)
	assert.Equal(t, "First", rec.changes[0].NewValue)
	assert.NoError(t, rec.changes[0].Err)

	p.SetAddress(nil)
	require.Len(t, rec.changes, 2)
	assert.Nil(t, rec.changes[1].NewValue)
}

func TestObserveFieldWrittenThroughPath(t *testing.T) {
	p := newPerson()
	var rec recorder
	_, err := MustParse("count").Observe(p, rec.record)
	require.NoError(t, err)

	require.NoError(t, MustParse("count").Set(p, 3))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, 1, rec.changes[0].OldValue)
	assert.Equal(t, 3, rec.changes[0].NewValue)
}

func TestObserveMapKey(t *testing.T) {
	p := newPerson()
	var rec recorder
	_, err := MustParse("scores.math").Observe(p, rec.record)
	require.NoError(t, err)

	p.Scores.Put("art", 1)
	assert.Empty(t, rec.changes, "other keys are filtered")

	p.Scores.Put("math", 70)
	p.Scores.Remove("math")
	require.Len(t, rec.changes, 2)
	assert.Equal(t, 70, rec.changes[0].NewValue)
	assert.Equal(t, -1, rec.changes[1].NewValue)
	_, isEvent := rec.changes[0].Cause.(observable.Event)
	assert.True(t, isEvent)
}

func TestObserveExpression(t *testing.T) {
	p := newPerson()
	var rec recorder
	obs, err := MustParse(`${count > 2 && name != ""}`).Observe(p, rec.record)
	require.NoError(t, err)
	assert.Equal(t, false, obs.Value())

	require.NoError(t, MustParse("count").Set(p, 5))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, false, rec.changes[0].OldValue)
	assert.Equal(t, true, rec.changes[0].NewValue)
	inner, ok := rec.changes[0].Cause.(Change)
	require.True(t, ok)
	assert.Equal(t, 5, inner.NewValue)

	p.SetName("Zed")
	require.Len(t, rec.changes, 2)
	assert.Equal(t, true, rec.changes[1].OldValue)
	assert.Equal(t, true, rec.changes[1].NewValue)
}

func TestObserveClose(t *testing.T) {
	p := newPerson()
	var rec recorder
	obs, err := MustParse("address.street").Observe(p, rec.record)
	require.NoError(t, err)

	obs.Close()
	obs.Close()
	assert.True(t, obs.Closed())
	p.address.SetStreet("x")
	p.SetAddress(nil)
	assert.Empty(t, rec.changes)
	assert.Equal(t, 0, p.Changes().Len())
}

func TestObserveNilRoot(t *testing.T) {
	_, err := MustParse("name").Observe(nil, func(Change) {})
	assert.ErrorIs(t, err, ErrNilIntermediate)
}

func TestObserveReentrantSet(t *testing.T) {
	p := newPerson()
	path := MustParse("name")
	var seen []any
	_, err := path.Observe(p, func(c Change) {
		seen = append(seen, c.NewValue)
		if c.NewValue == "B" {
			require.NoError(t, path.Set(p, "C"))
		}
	})
	require.NoError(t, err)

	p.SetName("B")
	assert.Equal(t, []any{"B", "C"}, seen)
	assert.Equal(t, "C", p.Name())
}

func TestCache(t *testing.T) {
	m := metrics.New("test")
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)
	c := NewCache(WithMetrics(m))

	a, err := c.Parse("${count > 1}")
	require.NoError(t, err)
	b, err := c.Parse("${count > 1}")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.Parse("a..b")
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = a.Get(newPerson())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg,
		"test_binding_expression_compilation_duration_seconds",
		"test_binding_expression_evaluation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
