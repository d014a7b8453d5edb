package property

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ResolutionError.
var (
	// ErrNilIntermediate indicates a segment before the last resolved to nil.
	ErrNilIntermediate = errors.New("nil intermediate value")

	// ErrNoSuchProperty indicates a segment names nothing on its holder.
	ErrNoSuchProperty = errors.New("no such property")

	// ErrReadOnly indicates a write to a property or expression that cannot be set.
	ErrReadOnly = errors.New("property is read-only")

	// ErrTypeMismatch indicates a value cannot be converted to the property type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrSyntax indicates a malformed path or expression.
	ErrSyntax = errors.New("invalid path syntax")
)

// Op names the operation that failed.
type Op string

// Operations reported in ResolutionError.
const (
	OpParse   Op = "parse"
	OpGet     Op = "get"
	OpSet     Op = "set"
	OpEval    Op = "eval"
	OpObserve Op = "observe"
)

// ResolutionError reports a path that could not be parsed, read or written.
type ResolutionError struct {
	// Path is the path string as written.
	Path string

	// Segment is the segment that failed, if the failure is segment specific.
	Segment string

	// Op is the failed operation.
	Op Op

	// Err is the underlying cause. It wraps one of the sentinel errors.
	Err error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("property %s %q at %q: %v", e.Op, e.Path, e.Segment, e.Err)
	}
	return fmt.Sprintf("property %s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func resolutionError(op Op, path, segment string, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	return &ResolutionError{Path: path, Segment: segment, Op: op, Err: err}
}

// IsResolutionError reports whether err is or wraps a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
