package property

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Convert converts v to type t using the same rules as Path.Set.
//
// Assignable values pass through. Numbers convert between numeric kinds,
// strings parse into numbers and booleans, and scalars format into strings.
// A nil v becomes the zero value of t.
func Convert(v any, t reflect.Type) (any, error) {
	rv, err := convert(v, t)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func convert(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	vt := rv.Type()
	if vt.AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}

	switch {
	case isNumber(vt.Kind()) && isNumber(t.Kind()):
		return convertNumber(rv, t)
	case t.Kind() == reflect.String:
		if s, ok := formatScalar(v, rv); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case vt.Kind() == reflect.String:
		return parseScalar(rv.String(), t)
	case vt.Kind() == t.Kind() && vt.ConvertibleTo(t):
		return rv.Convert(t), nil
	case t.Kind() == reflect.Pointer && vt.AssignableTo(t.Elem()):
		p := reflect.New(t.Elem())
		p.Elem().Set(rv)
		return p, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot convert %s to %s", ErrTypeMismatch, describe(v), t)
}

func convertNumber(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch {
	case isInt(t.Kind()):
		var n int64
		switch {
		case isInt(rv.Kind()):
			n = rv.Int()
		case isUint(rv.Kind()):
			if rv.Uint() > math.MaxInt64 {
				return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, rv.Uint(), t)
			}
			n = int64(rv.Uint())
		default:
			f := rv.Float()
			if f < math.MinInt64 || f >= math.MaxInt64 || f != math.Trunc(f) {
				return reflect.Value{}, fmt.Errorf("%w: %v is not an integer", ErrTypeMismatch, f)
			}
			n = int64(f)
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, n, t)
		}
		out.SetInt(n)
	case isUint(t.Kind()):
		var n uint64
		switch {
		case isInt(rv.Kind()):
			if rv.Int() < 0 {
				return reflect.Value{}, fmt.Errorf("%w: %d is negative", ErrTypeMismatch, rv.Int())
			}
			n = uint64(rv.Int())
		case isUint(rv.Kind()):
			n = rv.Uint()
		default:
			f := rv.Float()
			if f < 0 || f >= math.MaxUint64 || f != math.Trunc(f) {
				return reflect.Value{}, fmt.Errorf("%w: %v is not an unsigned integer", ErrTypeMismatch, f)
			}
			n = uint64(f)
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, n, t)
		}
		out.SetUint(n)
	default:
		var f float64
		switch {
		case isInt(rv.Kind()):
			f = float64(rv.Int())
		case isUint(rv.Kind()):
			f = float64(rv.Uint())
		default:
			f = rv.Float()
		}
		out.SetFloat(f)
	}
	return out, nil
}

func parseScalar(s string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	var err error
	switch {
	case isInt(t.Kind()):
		var n int64
		if n, err = strconv.ParseInt(s, 10, t.Bits()); err == nil {
			out.SetInt(n)
		}
	case isUint(t.Kind()):
		var n uint64
		if n, err = strconv.ParseUint(s, 10, t.Bits()); err == nil {
			out.SetUint(n)
		}
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		var f float64
		if f, err = strconv.ParseFloat(s, t.Bits()); err == nil {
			out.SetFloat(f)
		}
	case t.Kind() == reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			out.SetBool(b)
		}
	case t.Kind() == reflect.Interface && reflect.TypeOf(s).Implements(t):
		out.Set(reflect.ValueOf(s))
	default:
		return reflect.Value{}, fmt.Errorf("%w: cannot convert string to %s", ErrTypeMismatch, t)
	}
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %q as %s: %v", ErrTypeMismatch, s, t, err)
	}
	return out, nil
}

func formatScalar(v any, rv reflect.Value) (string, bool) {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), true
	}
	switch {
	case isInt(rv.Kind()):
		return strconv.FormatInt(rv.Int(), 10), true
	case isUint(rv.Kind()):
		return strconv.FormatUint(rv.Uint(), 10), true
	case rv.Kind() == reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), true
	case rv.Kind() == reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), true
	case rv.Kind() == reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case rv.Kind() == reflect.String:
		return rv.String(), true
	}
	return "", false
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}
