package observable

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordMap[K comparable, V any](m *Map[K, V]) *[]MapEvent[K, V] {
	var events []MapEvent[K, V]
	m.Observe(func(e MapEvent[K, V]) {
		events = append(events, e)
	})
	return &events
}

func TestMapPutEmitsAddedThenChanged(t *testing.T) {
	m := NewMap[string, int]()
	events := recordMap(m)

	_, existed := m.Put("a", 1)
	assert.False(t, existed)
	old, existed := m.Put("a", 2)
	assert.True(t, existed)
	assert.Equal(t, 1, old)

	require.Len(t, *events, 2)
	assert.Equal(t, EntryAdded, (*events)[0].Type)
	assert.Equal(t, "a", (*events)[0].Key)
	assert.Equal(t, 1, (*events)[0].Value)
	assert.Equal(t, EntryValueChanged, (*events)[1].Type)
	assert.Equal(t, 1, (*events)[1].OldValue)
	assert.Equal(t, 2, (*events)[1].Value)
	assert.Same(t, m, (*events)[1].Map)
}

func TestMapPutSameValueStillEmits(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("a", 1)
	events := recordMap(m)

	m.Put("a", 1)
	require.Len(t, *events, 1)
	assert.Equal(t, EntryValueChanged, (*events)[0].Type)
}

func TestMapRemove(t *testing.T) {
	m := NewMapFrom(map[string]int{"a": 1})
	events := recordMap(m)

	v, ok := m.Remove("missing")
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Empty(t, *events, "removing an absent key is not a mutation")

	v, ok = m.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	require.Len(t, *events, 1)
	assert.Equal(t, EntryRemoved, (*events)[0].Type)
	assert.Equal(t, 1, (*events)[0].OldValue)
	assert.Equal(t, 0, m.Len())
}

func TestMapDefault(t *testing.T) {
	m := NewMap[string, string](WithDefault("n/a"))
	events := recordMap(m)

	v, ok := m.Get("missing")
	assert.True(t, ok)
	assert.Equal(t, "n/a", v)

	_, ok = m.Lookup("missing")
	assert.False(t, ok)
	assert.False(t, m.Contains("missing"))
	assert.Empty(t, *events, "serving the default is a read")

	def, ok := m.Default()
	assert.True(t, ok)
	assert.Equal(t, "n/a", def)
}

func TestMapGetWithoutDefault(t *testing.T) {
	m := NewMap[string, int]()
	v, ok := m.Get("x")
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestMapBulkOperations(t *testing.T) {
	m := NewMapFrom(map[string]int{"a": 1, "b": 2})
	events := recordMap(m)

	m.ReplaceAll(map[string]int{"c": 3})
	require.Len(t, *events, 1)
	e := (*events)[0]
	assert.Equal(t, BulkReplaced, e.Type)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, e.Replaced)
	assert.Equal(t, map[string]int{"c": 3}, m.Snapshot())

	m.Clear()
	require.Len(t, *events, 2)
	assert.Equal(t, BulkReplaced, (*events)[1].Type)
	assert.Equal(t, 0, m.Len())

	m.Clear()
	assert.Len(t, *events, 2, "clearing an empty map emits nothing")
}

func TestMapPutAllOneEventPerEntry(t *testing.T) {
	m := NewMap[string, int]()
	events := recordMap(m)

	m.PutAll(map[string]int{"a": 1, "b": 2, "c": 3})
	assert.Len(t, *events, 3)

	keys := m.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestMapEventCountMatchesMutations(t *testing.T) {
	m := NewMap[int, int]()
	var count int
	m.ObserveStructure(func(Event) { count++ })

	mutations := 0
	for i := 0; i < 20; i++ {
		m.Put(i%7, i)
		mutations++
		if i%3 == 0 {
			if _, ok := m.Remove(i % 7); ok {
				mutations++
			}
		}
	}
	assert.Equal(t, mutations, count)
}

func TestMapKeyedView(t *testing.T) {
	m := NewMap[string, int](WithDefault(0))
	var k Keyed = m

	require.NoError(t, k.PutKey("x", 5))
	v, ok := k.GetKey("x")
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	v, ok = k.GetKey("absent")
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	err := k.PutKey("x", "five")
	assert.True(t, errors.Is(err, ErrValueType))

	err = k.PutKey("x", nil)
	assert.True(t, errors.Is(err, ErrValueType))
}

func TestMapKeyedNonStringKey(t *testing.T) {
	m := NewMap[int, string]()
	_, ok := m.GetKey("1")
	assert.False(t, ok)
	assert.ErrorIs(t, m.PutKey("1", "x"), ErrKeyType)
}

func TestMapKeyedNilForPointerValues(t *testing.T) {
	m := NewMap[string, *int]()
	require.NoError(t, m.PutKey("p", nil))
	v, ok := m.Lookup("p")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestMapUnsubscribe(t *testing.T) {
	m := NewMap[string, int]()
	var count int
	sub := m.ObserveStructure(func(Event) { count++ })

	m.Put("a", 1)
	sub.Unsubscribe()
	sub.Unsubscribe()
	m.Put("b", 2)
	assert.Equal(t, 1, count)
}

func TestMapMarshalJSON(t *testing.T) {
	m := NewMapFrom(map[string]int{"a": 1})
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestMapEventAffects(t *testing.T) {
	m := NewMap[string, int]()
	var got []bool
	m.ObserveStructure(func(e Event) {
		got = append(got, e.(KeyedEvent).Affects("a"))
	})

	m.Put("a", 1)
	m.Put("b", 1)
	m.ReplaceAll(nil)
	assert.Equal(t, []bool{true, false, true}, got)
}
