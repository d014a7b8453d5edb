package listeners

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_RegistrationOrder(t *testing.T) {
	var l List[string]
	l.Add("a")
	l.Add("b")
	l.Add("c")

	var got []string
	l.Each(func(_ ID, v string) { got = append(got, v) })

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 3, l.Len())
}

func TestList_Remove(t *testing.T) {
	var l List[int]
	a := l.Add(1)
	l.Add(2)

	require.True(t, l.Remove(a))
	assert.False(t, l.Remove(a), "second removal should report missing")
	assert.Equal(t, []int{2}, l.Snapshot())
}

func TestList_AddDuringEach(t *testing.T) {
	var l List[int]
	l.Add(1)

	calls := 0
	l.Each(func(_ ID, _ int) {
		calls++
		l.Add(99)
	})

	assert.Equal(t, 1, calls, "listener added mid-dispatch must not run in that dispatch")
	assert.Equal(t, 2, l.Len())
}

func TestList_RemoveDuringEach(t *testing.T) {
	var l List[string]
	var second ID
	l.Add("first")
	second = l.Add("second")
	l.Add("third")

	var got []string
	l.Each(func(_ ID, v string) {
		got = append(got, v)
		if v == "first" {
			l.Remove(second)
		}
	})

	assert.Equal(t, []string{"first", "third"}, got)
}

func TestList_Clear(t *testing.T) {
	var l List[int]
	l.Add(1)
	l.Add(2)
	l.Clear()

	assert.Equal(t, 0, l.Len())
	l.Each(func(_ ID, _ int) { t.Fatal("cleared list should not dispatch") })
}

func TestList_ConcurrentMutation(t *testing.T) {
	var l List[int]
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := l.Add(n)
				l.Remove(id)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Each(func(_ ID, _ int) {})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, l.Len())
}
