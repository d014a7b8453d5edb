package observable

import "errors"

// Sentinel errors for container operations.
var (
	// ErrIndexOutOfRange is returned when a list index is outside the valid range.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrKeyType is returned when a string key cannot address a map.
	ErrKeyType = errors.New("map key is not a string")

	// ErrValueType is returned when a value cannot be stored in a container.
	ErrValueType = errors.New("value has the wrong type for container")
)
