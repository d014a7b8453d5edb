package property

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/bindkit/internal/model"
	"github.com/dshills/bindkit/internal/observable"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type valueTyped interface {
	ValueType() reflect.Type
}

// getSegment reads one segment from holder.
//
// Lookup order: observable containers, model.PropertyGetter, getter methods
// (Street, GetStreet, IsStreet), exported struct fields by lowerCamel name or
// json tag, then map and slice indexing.
func getSegment(holder any, seg string) (any, error) {
	if isNil(holder) {
		return nil, ErrNilIntermediate
	}

	if k, ok := holder.(observable.Keyed); ok {
		v, ok := k.GetKey(seg)
		if !ok {
			return nil, ErrNoSuchProperty
		}
		return v, nil
	}
	if s, ok := holder.(observable.Sequence); ok {
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= s.Len() {
			return nil, ErrNoSuchProperty
		}
		return s.Element(i), nil
	}
	if g, ok := holder.(model.PropertyGetter); ok {
		if v, ok := g.GetProperty(seg); ok {
			return v, nil
		}
	}

	rv := reflect.ValueOf(holder)
	if m, ok := getterMethod(rv, seg); ok {
		out := m.Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}

	ev, ok := indirect(rv)
	if !ok {
		return nil, ErrNilIntermediate
	}
	switch ev.Kind() {
	case reflect.Struct:
		if f, ok := structField(ev, seg); ok {
			return f.Interface(), nil
		}
	case reflect.Map:
		key, ok := mapKey(ev.Type(), seg)
		if !ok {
			break
		}
		v := ev.MapIndex(key)
		if !v.IsValid() {
			return nil, ErrNoSuchProperty
		}
		return v.Interface(), nil
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(seg)
		if err == nil && i >= 0 && i < ev.Len() {
			return ev.Index(i).Interface(), nil
		}
	}
	return nil, ErrNoSuchProperty
}

// setSegment writes one segment on holder.
//
// Write order: observable containers, model.PropertySetter, SetX methods,
// exported struct fields, then map entries. A field written directly on a
// model.Announcer is announced so plain-field models stay observable.
func setSegment(holder any, seg string, value any) error {
	if isNil(holder) {
		return ErrNilIntermediate
	}

	if k, ok := holder.(observable.Keyed); ok {
		if vt, ok := holder.(valueTyped); ok {
			cv, err := convert(value, vt.ValueType())
			if err != nil {
				return err
			}
			value = cv.Interface()
		}
		return k.PutKey(seg, value)
	}
	if _, ok := holder.(observable.Sequence); ok {
		return ErrReadOnly
	}
	if s, ok := holder.(model.PropertySetter); ok {
		err := s.SetProperty(seg, value)
		if !errors.Is(err, model.ErrUnknownProperty) {
			return err
		}
	}

	rv := reflect.ValueOf(holder)
	if m, ok := setterMethod(rv, seg); ok {
		arg, err := convert(value, m.Type().In(0))
		if err != nil {
			return err
		}
		out := m.Call([]reflect.Value{arg})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}

	ev, ok := indirect(rv)
	if !ok {
		return ErrNilIntermediate
	}
	switch ev.Kind() {
	case reflect.Struct:
		f, ok := structField(ev, seg)
		if !ok {
			break
		}
		if !f.CanSet() {
			return ErrReadOnly
		}
		nv, err := convert(value, f.Type())
		if err != nil {
			return err
		}
		old := f.Interface()
		f.Set(nv)
		if a, ok := holder.(model.Announcer); ok {
			a.Announce(seg, old, f.Interface())
		}
		return nil
	case reflect.Map:
		key, ok := mapKey(ev.Type(), seg)
		if !ok {
			break
		}
		if ev.IsNil() {
			return ErrNilIntermediate
		}
		nv, err := convert(value, ev.Type().Elem())
		if err != nil {
			return err
		}
		ev.SetMapIndex(key, nv)
		return nil
	}

	if _, ok := getterMethod(rv, seg); ok {
		return ErrReadOnly
	}
	return ErrNoSuchProperty
}

func getterMethod(rv reflect.Value, seg string) (reflect.Value, bool) {
	name := exportedName(seg)
	if name == "" {
		return reflect.Value{}, false
	}
	for _, n := range [...]string{name, "Get" + name, "Is" + name} {
		m := rv.MethodByName(n)
		if !m.IsValid() {
			continue
		}
		t := m.Type()
		if t.NumIn() != 0 {
			continue
		}
		if t.NumOut() == 1 || (t.NumOut() == 2 && t.Out(1) == errorType) {
			return m, true
		}
	}
	return reflect.Value{}, false
}

func setterMethod(rv reflect.Value, seg string) (reflect.Value, bool) {
	name := exportedName(seg)
	if name == "" {
		return reflect.Value{}, false
	}
	m := rv.MethodByName("Set" + name)
	if !m.IsValid() {
		return reflect.Value{}, false
	}
	t := m.Type()
	if t.NumIn() != 1 {
		return reflect.Value{}, false
	}
	if t.NumOut() == 0 || (t.NumOut() == 1 && t.Out(0) == errorType) {
		return m, true
	}
	return reflect.Value{}, false
}

// structField finds an exported field addressed by seg. It matches the json
// tag name first, then the field name with a lowered first letter, then the
// field name itself.
func structField(ev reflect.Value, seg string) (reflect.Value, bool) {
	var byName []int
	for _, f := range reflect.VisibleFields(ev.Type()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if tag := jsonName(f); tag == seg {
			return fieldByIndex(ev, f.Index)
		}
		if byName == nil && (lowerFirst(f.Name) == seg || f.Name == seg) {
			byName = f.Index
		}
	}
	if byName != nil {
		return fieldByIndex(ev, byName)
	}
	return reflect.Value{}, false
}

func fieldByIndex(ev reflect.Value, index []int) (reflect.Value, bool) {
	f, err := ev.FieldByIndexErr(index)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}

func jsonName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

func mapKey(t reflect.Type, seg string) (reflect.Value, bool) {
	if t.Key().Kind() != reflect.String {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(seg).Convert(t.Key()), true
}

// indirect follows pointers and interfaces. It reports false on a nil link.
func indirect(rv reflect.Value) (reflect.Value, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return rv, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func exportedName(seg string) string {
	r, size := utf8.DecodeRuneInString(seg)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return ""
	}
	return string(unicode.ToUpper(r)) + seg[size:]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
