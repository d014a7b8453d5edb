package property

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   any
		to   reflect.Type
		want any
	}{
		{"nil to zero", nil, reflect.TypeOf((*int)(nil)).Elem(), 0},
		{"int to int8", 12, reflect.TypeOf((*int8)(nil)).Elem(), int8(12)},
		{"uint to int", uint(7), reflect.TypeOf((*int)(nil)).Elem(), 7},
		{"max int64 from uint64", uint64(math.MaxInt64), reflect.TypeOf((*int64)(nil)).Elem(), int64(math.MaxInt64)},
		{"int to uint", 3, reflect.TypeOf((*uint)(nil)).Elem(), uint(3)},
		{"whole float to int", 4.0, reflect.TypeOf((*int)(nil)).Elem(), 4},
		{"int to float", 2, reflect.TypeOf((*float64)(nil)).Elem(), 2.0},
		{"string to int", "42", reflect.TypeOf((*int)(nil)).Elem(), 42},
		{"string to bool", "true", reflect.TypeOf((*bool)(nil)).Elem(), true},
		{"int to string", 9, reflect.TypeOf((*string)(nil)).Elem(), "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
		to   reflect.Type
	}{
		{"uint64 above int64", uint64(1 << 63), reflect.TypeOf((*int64)(nil)).Elem()},
		{"uint above int", uint(1<<63 + 5), reflect.TypeOf((*int)(nil)).Elem()},
		{"int overflows int8", 300, reflect.TypeOf((*int8)(nil)).Elem()},
		{"negative to uint", -1, reflect.TypeOf((*uint)(nil)).Elem()},
		{"fraction to int", 1.5, reflect.TypeOf((*int)(nil)).Elem()},
		{"huge float to int", 1e20, reflect.TypeOf((*int64)(nil)).Elem()},
		{"huge float to uint", 1e20, reflect.TypeOf((*uint64)(nil)).Elem()},
		{"nan to int", math.NaN(), reflect.TypeOf((*int)(nil)).Elem()},
		{"bad number string", "x", reflect.TypeOf((*int)(nil)).Elem()},
		{"slice to int", []int{1}, reflect.TypeOf((*int)(nil)).Elem()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.in, tt.to)
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}
