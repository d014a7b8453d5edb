package script

import (
	"encoding/json"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/bindkit/internal/observable"
)

// maxDepth bounds nested table conversion.
const maxDepth = 16

// toGo converts a Lua value. Integral numbers become int64, tables become
// []any when they are sequences and map[string]any otherwise, and userdata
// yields its wrapped Go value.
func toGo(lv lua.LValue) any {
	return toGoDepth(lv, 0)
}

func toGoDepth(lv lua.LValue, depth int) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if depth >= maxDepth {
			return nil
		}
		return tableToGo(v, depth+1)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, depth int) any {
	n := t.MaxN()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		out := make([]any, n)
		for i := 1; i <= n; i++ {
			out[i-1] = toGoDepth(t.RawGetInt(i), depth)
		}
		return out
	}

	out := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = toGoDepth(v, depth)
	})
	return out
}

// toLua converts a Go value. Scalars, slices, maps and observable containers
// become Lua values; any other value, such as a model, is wrapped in userdata
// so that it can be handed back to Go unchanged.
func toLua(L *lua.LState, v any) lua.LValue {
	return toLuaDepth(L, v, 0)
}

func toLuaDepth(L *lua.LState, v any, depth int) lua.LValue {
	if depth > maxDepth {
		return lua.LNil
	}
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, toLuaDepth(L, rv.Index(i).Interface(), depth+1))
		}
		return t
	case reflect.Map:
		t := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(toLuaDepth(L, iter.Key().Interface(), depth+1), toLuaDepth(L, iter.Value().Interface(), depth+1))
		}
		return t
	}

	if _, ok := v.(observable.Keyed); ok {
		if m, ok := v.(json.Marshaler); ok {
			if data, err := m.MarshalJSON(); err == nil {
				var doc any
				if json.Unmarshal(data, &doc) == nil {
					return toLuaDepth(L, doc, depth+1)
				}
			}
		}
	}
	if seq, ok := v.(observable.Sequence); ok {
		t := L.NewTable()
		for i := 0; i < seq.Len(); i++ {
			t.RawSetInt(i+1, toLuaDepth(L, seq.Element(i), depth+1))
		}
		return t
	}

	ud := L.NewUserData()
	ud.Value = v
	return ud
}
