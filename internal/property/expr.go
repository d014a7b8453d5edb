package property

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"

	"github.com/dshills/bindkit/internal/metrics"
	"github.com/dshills/bindkit/internal/observable"
)

// baseEnvironment is shared by every expression. Per-expression variables are
// added with Extend.
var baseEnvironment = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		ext.Lists(),
		cel.OptionalTypes(),
		cel.CrossTypeNumericComparisons(true),
	)
})

// expression is a compiled ${...} path.
type expression struct {
	source  string
	program cel.Program
	deps    [][]string
	roots   []string
	chain   []string
}

func compileExpression(raw, source string, m *metrics.Metrics) (*expression, error) {
	start := time.Now()
	expr, err := compile(raw, source)
	m.ObserveCompilation(time.Since(start), err)
	return expr, err
}

func compile(raw, source string) (*expression, error) {
	base, err := baseEnvironment()
	if err != nil {
		return nil, resolutionError(OpParse, raw, "", err)
	}

	parsed, iss := base.Parse(source)
	if iss != nil && iss.Err() != nil {
		return nil, resolutionError(OpParse, raw, "", fmt.Errorf("%w: %v", ErrSyntax, iss.Err()))
	}

	c := &chainCollector{bound: map[string]int{}}
	root := parsed.NativeRep().Expr()
	c.walk(root)

	e := &expression{source: source, deps: c.chains}
	if chain, ok := selectChain(root); ok {
		e.chain = chain
	}

	seen := map[string]bool{}
	vars := make([]cel.EnvOption, 0, len(c.chains))
	for _, chain := range c.chains {
		if seen[chain[0]] {
			continue
		}
		seen[chain[0]] = true
		e.roots = append(e.roots, chain[0])
		vars = append(vars, cel.Variable(chain[0], cel.DynType))
	}

	env, err := base.Extend(vars...)
	if err != nil {
		return nil, resolutionError(OpParse, raw, "", err)
	}
	checked, iss := env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, resolutionError(OpParse, raw, "", fmt.Errorf("%w: %v", ErrSyntax, iss.Err()))
	}
	e.program, err = env.Program(checked)
	if err != nil {
		return nil, resolutionError(OpParse, raw, "", err)
	}
	return e, nil
}

// eval resolves every dependency chain against root and runs the program.
func (e *expression) eval(raw string, root any, m *metrics.Metrics) (any, error) {
	start := time.Now()
	v, err := e.evaluate(raw, root)
	m.ObserveEvaluation(time.Since(start), err)
	return v, err
}

func (e *expression) evaluate(raw string, root any) (any, error) {
	activation, err := e.activation(raw, root)
	if err != nil {
		return nil, err
	}
	out, _, err := e.program.Eval(activation)
	if err != nil {
		return nil, resolutionError(OpEval, raw, "", err)
	}
	v, err := nativeValue(out)
	if err != nil {
		return nil, resolutionError(OpEval, raw, "", fmt.Errorf("%w: %v", ErrTypeMismatch, err))
	}
	return v, nil
}

// activation builds nested maps so that a.b.c in the expression selects the
// resolved value of the chain a.b.c. A nil intermediate resolves to null.
func (e *expression) activation(raw string, root any) (map[string]any, error) {
	vars := make(map[string]any, len(e.roots))
	for _, chain := range e.deps {
		v, err := resolveChain(root, chain)
		switch {
		case errors.Is(err, ErrNilIntermediate):
			v = nil
		case err != nil:
			return nil, resolutionError(OpEval, raw, strings.Join(chain, "."), err)
		}
		insert(vars, chain, celValue(v))
	}
	return vars, nil
}

func resolveChain(root any, chain []string) (any, error) {
	cur := root
	for _, seg := range chain {
		v, err := getSegment(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = v
	}
	return cur, nil
}

// insert places v at chain inside vars. A deeper chain replaces a shallower
// leaf with a map; a shallower leaf never overwrites an existing map.
func insert(vars map[string]any, chain []string, v any) {
	cur := vars
	for _, seg := range chain[:len(chain)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	last := chain[len(chain)-1]
	if _, isMap := cur[last].(map[string]any); isMap {
		if _, replacing := v.(map[string]any); !replacing {
			return
		}
	}
	cur[last] = v
}

// maxStructDepth bounds the conversion of nested structs into CEL maps.
const maxStructDepth = 4

// celValue converts container and Go collection values into forms the CEL
// type adapter understands.
func celValue(v any) any {
	return celValueDepth(v, 0)
}

func celValueDepth(v any, depth int) any {
	if isNil(v) {
		return nil
	}
	switch c := v.(type) {
	case observable.Sequence:
		items := make([]any, c.Len())
		for i := range items {
			items[i] = celValueDepth(c.Element(i), depth+1)
		}
		return items
	case observable.Keyed:
		return keyedSnapshot(c, depth)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int()
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return rv.Uint()
	case reflect.Float32:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = celValueDepth(rv.Index(i).Interface(), depth+1)
		}
		return items
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = celValueDepth(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Pointer, reflect.Struct:
		ev, ok := indirect(rv)
		if !ok || ev.Kind() != reflect.Struct || depth >= maxStructDepth {
			return v
		}
		return structMap(ev, depth)
	}
	return v
}

// structMap exposes the exported fields of a struct under their path names.
func structMap(ev reflect.Value, depth int) map[string]any {
	out := map[string]any{}
	for _, f := range reflect.VisibleFields(ev.Type()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		fv, ok := fieldByIndex(ev, f.Index)
		if !ok {
			continue
		}
		name := jsonName(f)
		if name == "" {
			name = lowerFirst(f.Name)
		}
		out[name] = celValueDepth(fv.Interface(), depth+1)
	}
	return out
}

func keyedSnapshot(k observable.Keyed, depth int) any {
	snap, ok := k.(interface{ Keys() []string })
	if !ok {
		return k
	}
	out := map[string]any{}
	for _, key := range snap.Keys() {
		v, _ := k.GetKey(key)
		out[key] = celValueDepth(v, depth+1)
	}
	return out
}

// nativeValue converts a CEL result into plain Go values.
func nativeValue(v ref.Val) (any, error) {
	switch v.Type() {
	case types.BoolType, types.IntType, types.UintType, types.DoubleType,
		types.StringType, types.BytesType:
		return v.Value(), nil
	case types.NullType:
		return nil, nil
	case types.OptionalType:
		opt := v.(*types.Optional)
		if !opt.HasValue() {
			return nil, nil
		}
		return nativeValue(opt.GetValue())
	case types.ListType:
		lister, ok := v.(traits.Lister)
		if !ok {
			return v.ConvertToNative(reflect.TypeOf([]any{}))
		}
		out := []any{}
		for it := lister.Iterator(); it.HasNext() == types.True; {
			item, err := nativeValue(it.Next())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case types.MapType:
		mapper, ok := v.(traits.Mapper)
		if !ok {
			return v.ConvertToNative(reflect.TypeOf(map[string]any{}))
		}
		out := map[string]any{}
		for it := mapper.Iterator(); it.HasNext() == types.True; {
			key := it.Next()
			ks, ok := key.Value().(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", key.Value())
			}
			item, err := nativeValue(mapper.Get(key))
			if err != nil {
				return nil, err
			}
			out[ks] = item
		}
		return out, nil
	default:
		return v.Value(), nil
	}
}

// chainCollector records every identifier select chain referenced by an
// expression, skipping comprehension variables.
type chainCollector struct {
	chains [][]string
	seen   []string
	bound  map[string]int
}

func (c *chainCollector) add(chain []string) {
	if c.bound[chain[0]] > 0 {
		return
	}
	key := strings.Join(chain, ".")
	for _, s := range c.seen {
		if s == key {
			return
		}
	}
	c.seen = append(c.seen, key)
	c.chains = append(c.chains, chain)
}

func (c *chainCollector) walk(e celast.Expr) {
	if chain, ok := selectChain(e); ok {
		c.add(chain)
		return
	}
	switch e.Kind() {
	case celast.SelectKind:
		c.walk(e.AsSelect().Operand())
	case celast.CallKind:
		call := e.AsCall()
		if call.IsMemberFunction() {
			c.walk(call.Target())
		}
		for _, arg := range call.Args() {
			c.walk(arg)
		}
	case celast.ListKind:
		for _, el := range e.AsList().Elements() {
			c.walk(el)
		}
	case celast.MapKind:
		for _, entry := range e.AsMap().Entries() {
			me := entry.AsMapEntry()
			c.walk(me.Key())
			c.walk(me.Value())
		}
	case celast.StructKind:
		for _, f := range e.AsStruct().Fields() {
			c.walk(f.AsStructField().Value())
		}
	case celast.ComprehensionKind:
		comp := e.AsComprehension()
		c.walk(comp.IterRange())
		c.walk(comp.AccuInit())
		c.bound[comp.IterVar()]++
		c.bound[comp.AccuVar()]++
		c.walk(comp.LoopCondition())
		c.walk(comp.LoopStep())
		c.walk(comp.Result())
		c.bound[comp.IterVar()]--
		c.bound[comp.AccuVar()]--
	}
}

// selectChain reports whether e is a plain identifier followed by field
// selections, returning the chain root first.
func selectChain(e celast.Expr) ([]string, bool) {
	var rev []string
	for {
		switch e.Kind() {
		case celast.IdentKind:
			rev = append(rev, e.AsIdent())
			chain := make([]string, len(rev))
			for i := range rev {
				chain[i] = rev[len(rev)-1-i]
			}
			return chain, true
		case celast.SelectKind:
			sel := e.AsSelect()
			if sel.IsTestOnly() {
				return nil, false
			}
			rev = append(rev, sel.FieldName())
			e = sel.Operand()
		default:
			return nil, false
		}
	}
}
