package script

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/go-logr/logr/testr"
	lua "github.com/yuin/gopher-lua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bindkit/internal/action"
	"github.com/dshills/bindkit/internal/model"
	"github.com/dshills/bindkit/internal/observable"
	"github.com/dshills/bindkit/internal/watch"
)

type person struct {
	model.Base
	Name string `json:"name"`
	Age  int    `json:"age"`
	Tags *observable.List[string]
}

func (p *person) SetName(name string) {
	model.Set(p, "name", &p.Name, name)
}

func (p *person) SetAge(age int) {
	model.Set(p, "age", &p.Age, age)
}

func newPerson() *person {
	return &person{Name: "A", Age: 30, Tags: observable.NewList("x", "y")}
}

func TestEngine_GetSet(t *testing.T) {
	p := newPerson()
	e := New(p, WithLogger(testr.New(t)))
	defer e.Close()

	err := e.DoString("getset", `
		assert(get("name") == "A")
		assert(get("age") == 30)
		assert(#get("tags") == 2)
		set("name", "Bob")
		set("age", get("age") + 1)
	`)
	require.NoError(t, err)
	assert.Equal(t, "Bob", p.Name)
	assert.Equal(t, 31, p.Age)
}

func TestEngine_Expression(t *testing.T) {
	e := New(newPerson())
	defer e.Close()

	require.NoError(t, e.DoString("expr", `greeting = get("${name + '!'}")`))
	assert.Equal(t, lua.LString("A!"), e.L.GetGlobal("greeting"))
}

func TestEngine_Watch(t *testing.T) {
	p := newPerson()
	d := watch.New(p, watch.WithLogger(testr.New(t)))
	e := New(p, WithWatcher(d))
	defer e.Close()

	require.NoError(t, e.DoString("watch", `
		seen = {}
		watch("name", function(ev)
			table.insert(seen, ev.path .. ":" .. ev.old .. "->" .. ev.new)
		end)
	`))
	assert.Equal(t, 1, e.Handlers())
	require.NoError(t, d.Start())

	p.SetName("B")

	seen := e.L.GetGlobal("seen").(*lua.LTable)
	require.Equal(t, 1, seen.Len())
	assert.Equal(t, "name:A->B", seen.RawGetInt(1).String())
}

func TestEngine_WatchHandlerErrorIsContained(t *testing.T) {
	p := newPerson()
	d := watch.New(p, watch.WithLogger(testr.New(t)))
	e := New(p, WithWatcher(d))
	defer e.Close()

	require.NoError(t, e.DoString("bad", `watch("age", function(ev) error("nope") end)`))
	require.NoError(t, d.Start())

	p.SetAge(40)
	assert.Equal(t, 40, p.Age)
	assert.Equal(t, int64(1), d.Failed())
}

func TestEngine_Action(t *testing.T) {
	p := newPerson()
	table := action.NewTable(action.WithLogger(testr.New(t)))
	e := New(p, WithActions(table))
	defer e.Close()

	require.NoError(t, e.DoString("actions", `
		action("greet", function(src) set("name", "hi " .. src) end, "wave")
	`))

	a := table.Action("greet")
	assert.Equal(t, "wave", a.Icon)
	require.NoError(t, a.Perform("there"))
	assert.Equal(t, "hi there", p.Name)

	err := e.DoString("dup", `action("greet", function() end)`)
	assert.ErrorContains(t, err, action.ErrDuplicateAction.Error())
}

func TestEngine_Unavailable(t *testing.T) {
	e := New(newPerson())
	defer e.Close()

	err := e.DoString("w", `watch("name", function() end)`)
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "w", se.Chunk)
	assert.ErrorContains(t, err, ErrUnavailable.Error())

	assert.ErrorContains(t, e.DoString("a", `action("x", function() end)`), ErrUnavailable.Error())
}

func TestEngine_PathErrors(t *testing.T) {
	e := New(newPerson())
	defer e.Close()

	assert.Error(t, e.DoString("missing", `get("nope")`))
	assert.Error(t, e.DoString("syntax", `get("")`))
	assert.Error(t, e.DoString("set", `set("name.first", "x")`))
}

func TestEngine_Sandbox(t *testing.T) {
	e := New(newPerson())
	defer e.Close()

	require.NoError(t, e.DoString("libs", `
		assert(io == nil)
		assert(os == nil)
		assert(debug == nil)
		assert(dofile == nil)
		assert(load == nil)
		assert(string.upper("a") == "A")
		assert(math.max(1, 2) == 2)
	`))
	assert.Error(t, e.DoString("require", `require("os")`))
}

func TestEngine_Print(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{})

	e := New(newPerson(), WithLogger(logger))
	defer e.Close()

	require.NoError(t, e.DoString("hello", `print("hello", 42)`))
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg"="hello\t42"`)
	assert.Contains(t, lines[0], `"script"="hello"`)
}

func TestEngine_Timeout(t *testing.T) {
	e := New(newPerson(), WithTimeout(50*time.Millisecond))
	defer e.Close()

	err := e.DoString("loop", `while true do end`)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), err.Error())
}

func TestEngine_Closed(t *testing.T) {
	e := New(newPerson())
	e.Close()
	e.Close()
	assert.ErrorIs(t, e.DoString("x", "return"), ErrClosed)
}

func TestBridge(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := toLua(L, map[string]any{"a": 1, "b": []string{"x"}})
	got := toGo(tbl).(map[string]any)
	assert.Equal(t, int64(1), got["a"])
	assert.Equal(t, []any{"x"}, got["b"])

	m := observable.NewMap[string, int]()
	m.Put("k", 2)
	assert.Equal(t, map[string]any{"k": int64(2)}, toGo(toLua(L, m)))

	p := newPerson()
	ud := toLua(L, p)
	assert.Same(t, p, toGo(ud))

	assert.Equal(t, 1.5, toGo(lua.LNumber(1.5)))
	assert.Nil(t, toGo(lua.LNil))
	assert.True(t, strings.HasPrefix(toLua(L, "s").String(), "s"))
}
