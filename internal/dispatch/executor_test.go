package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInvocation = Invocation{Kind: KindWatch, Name: "onName", Target: "person.name", Event: "B"}

func TestInvocationString(t *testing.T) {
	assert.Equal(t, "watch:onName@person.name", testInvocation.String())
}

func TestExecuteSuccess(t *testing.T) {
	called := false
	result := NewExecutor().Execute(testInvocation, func() error {
		called = true
		return nil
	})

	assert.True(t, called)
	assert.True(t, result.OK())
	assert.Empty(t, result.Reason())
	assert.Equal(t, testInvocation, result.Invocation)
}

func TestExecuteError(t *testing.T) {
	want := errors.New("failed")
	result := NewExecutor().Execute(testInvocation, func() error { return want })

	assert.False(t, result.OK())
	assert.False(t, result.Panicked)
	assert.Equal(t, "error", result.Reason())
	assert.ErrorIs(t, result.Err, want)
}

func TestExecuteNilHandler(t *testing.T) {
	result := NewExecutor().Execute(testInvocation, nil)
	assert.ErrorIs(t, result.Err, ErrNilHandler)
	assert.Equal(t, "error", result.Reason())
}

func TestExecutePanic(t *testing.T) {
	var seen Invocation
	var handled any
	e := NewExecutor(WithPanicHandler(func(inv Invocation, v any, stack []byte) {
		seen = inv
		handled = v
		assert.NotEmpty(t, stack)
	}))

	result := e.Execute(testInvocation, func() error { panic("boom") })

	require.True(t, result.Panicked)
	assert.Equal(t, "panic", result.Reason())
	assert.Equal(t, "boom", handled)
	assert.Equal(t, testInvocation, seen)
	assert.ErrorIs(t, result.Err, ErrHandlerPanic)

	var pe *PanicError
	require.ErrorAs(t, result.Err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestExecutePanicHandlerPanics(t *testing.T) {
	e := NewExecutor(WithPanicHandler(func(Invocation, any, []byte) {
		panic("handler")
	}))
	var result Result
	assert.NotPanics(t, func() {
		result = e.Execute(testInvocation, func() error { panic("boom") })
	})
	assert.True(t, result.Panicked)
}

func TestExecutePanicWithError(t *testing.T) {
	cause := errors.New("cause")
	result := NewExecutor().Execute(testInvocation, func() error { panic(cause) })
	assert.ErrorIs(t, result.Err, cause)
	assert.ErrorIs(t, result.Err, ErrHandlerPanic)
}
