package script

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrClosed indicates the engine has been closed.
	ErrClosed = errors.New("script engine closed")

	// ErrUnavailable indicates a script called a function whose collaborator
	// was not configured.
	ErrUnavailable = errors.New("not available")
)

// Error reports a failure while running Lua code.
type Error struct {
	// Chunk is the script file or chunk name.
	Chunk string
	// Err is the underlying Lua or Go error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Chunk, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
