// Package script lets Lua scripts register watch handlers and actions
// against a model.
//
// Scripts run in a sandboxed gopher-lua state with only the base, table,
// string and math libraries. The following globals are provided:
//
//	get(path)            -- read a property path or expression
//	set(path, value)     -- write a property path
//	watch(path, fn)      -- call fn(event) when path changes
//	action(name, fn)     -- register fn(source) as a named action
//	print(...)           -- write to the engine's logger
//
// A watch event is a table with fields path, old and new.
//
// Like the underlying Lua state, an Engine is not safe for concurrent use.
// Handlers run on whichever goroutine announces the change, so the model
// must only be mutated from one goroutine while scripts are loaded.
package script

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/bindkit/internal/action"
	"github.com/dshills/bindkit/internal/property"
	"github.com/dshills/bindkit/internal/watch"
)

// DefaultTimeout bounds a single top-level script call.
const DefaultTimeout = 5 * time.Second

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by print and for handler failures.
func WithLogger(l logr.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithPathCache shares a parsed path cache.
func WithPathCache(c *property.Cache) Option {
	return func(e *Engine) {
		e.paths = c
	}
}

// WithWatcher enables watch() by registering handlers on d.
func WithWatcher(d *watch.Dispatcher) Option {
	return func(e *Engine) {
		e.watches = d
	}
}

// WithActions enables action() by registering handlers in t.
func WithActions(t *action.Table) Option {
	return func(e *Engine) {
		e.actions = t
	}
}

// WithTimeout sets the limit for a top-level call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// Engine runs scripts against a root model.
type Engine struct {
	L       *lua.LState
	root    any
	paths   *property.Cache
	watches *watch.Dispatcher
	actions *action.Table
	logger  logr.Logger
	timeout time.Duration

	chunk    string
	depth    int
	handlers int
	closed   bool
}

// New creates a sandboxed engine bound to root.
func New(root any, opts ...Option) *Engine {
	e := &Engine{
		root:    root,
		logger:  logr.Discard(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.paths == nil {
		e.paths = property.NewCache()
	}

	e.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		e.L.Push(e.L.NewFunction(lib.fn))
		e.L.Push(lua.LString(lib.name))
		e.L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		e.L.SetGlobal(name, lua.LNil)
	}

	e.L.SetGlobal("get", e.L.NewFunction(e.luaGet))
	e.L.SetGlobal("set", e.L.NewFunction(e.luaSet))
	e.L.SetGlobal("watch", e.L.NewFunction(e.luaWatch))
	e.L.SetGlobal("action", e.L.NewFunction(e.luaAction))
	e.L.SetGlobal("print", e.L.NewFunction(e.luaPrint))
	return e
}

// DoString runs code as a chunk named name.
func (e *Engine) DoString(name, code string) error {
	return e.run(name, func() error { return e.L.DoString(code) })
}

// DoFile runs the script at path.
func (e *Engine) DoFile(path string) error {
	return e.run(filepath.Base(path), func() error { return e.L.DoFile(path) })
}

// Handlers returns the number of watch and action handlers registered by
// scripts.
func (e *Engine) Handlers() int {
	return e.handlers
}

// Close releases the Lua state. Registered handlers become no-ops.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.L.Close()
}

// run executes fn as a top-level or nested call. Only the outermost call
// installs the timeout context.
func (e *Engine) run(chunk string, fn func() error) (err error) {
	if e.closed {
		return ErrClosed
	}
	if e.depth == 0 && e.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		e.L.SetContext(ctx)
		defer func() {
			e.L.RemoveContext()
			cancel()
		}()
	}

	prev := e.chunk
	e.chunk = chunk
	e.depth++
	defer func() {
		e.depth--
		e.chunk = prev
		if r := recover(); r != nil {
			err = &Error{Chunk: chunk, Err: fmt.Errorf("lua panic: %v", r)}
		}
	}()

	if err := fn(); err != nil {
		return &Error{Chunk: chunk, Err: err}
	}
	return nil
}

func (e *Engine) call(chunk string, fn *lua.LFunction, args ...lua.LValue) error {
	if e.closed {
		return nil
	}
	return e.run(chunk, func() error {
		return e.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	})
}

func (e *Engine) path(L *lua.LState, raw string) *property.Path {
	p, err := e.paths.Parse(raw)
	if err != nil {
		L.RaiseError("%v", err)
	}
	return p
}

func (e *Engine) luaGet(L *lua.LState) int {
	p := e.path(L, L.CheckString(1))
	v, err := p.Get(e.root)
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(toLua(L, v))
	return 1
}

func (e *Engine) luaSet(L *lua.LState) int {
	p := e.path(L, L.CheckString(1))
	if err := p.Set(e.root, toGo(L.Get(2))); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (e *Engine) luaWatch(L *lua.LState) int {
	raw := L.CheckString(1)
	fn := L.CheckFunction(2)
	if e.watches == nil {
		L.RaiseError("watch: %v", ErrUnavailable)
	}

	e.handlers++
	chunk := e.chunk
	name := fmt.Sprintf("lua:%s:%s#%d", chunk, raw, e.handlers)
	err := e.watches.Watch(name, func(ev watch.Event) error {
		t := e.L.NewTable()
		e.L.SetField(t, "path", lua.LString(ev.Path))
		e.L.SetField(t, "old", toLua(e.L, ev.OldValue))
		e.L.SetField(t, "new", toLua(e.L, ev.NewValue))
		return e.call(chunk, fn, t)
	}, raw)
	if err != nil {
		L.RaiseError("watch %s: %v", raw, err)
	}
	return 0
}

func (e *Engine) luaAction(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	icon := L.OptString(3, "")
	if e.actions == nil {
		L.RaiseError("action: %v", ErrUnavailable)
	}

	chunk := e.chunk
	err := e.actions.Register(name, func(ev action.Event) error {
		return e.call(chunk, fn, toLua(e.L, ev.Source))
	}, action.WithIcon(icon))
	if err != nil {
		L.RaiseError("action %s: %v", name, err)
	}
	e.handlers++
	return 0
}

func (e *Engine) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	e.logger.Info(strings.Join(parts, "\t"), "script", e.chunk)
	return 0
}

// IsTimeout reports whether err came from a script exceeding its time limit.
func IsTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), context.DeadlineExceeded.Error())
}
