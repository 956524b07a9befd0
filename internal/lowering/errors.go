// Package lowering translates high-level array operations into low-level
// call sequences against an accelerated math backend, managing the
// device-resident buffers those calls require. Lowering one call site has a
// compile-time half (signature checks, symbol resolution) and a runtime half
// (normalize, validate, stage, invoke, release).
package lowering

import (
	"errors"
	"fmt"
)

// Kind classifies a lowering failure.
type Kind int

// Failure kinds. BackendUnavailable and UnsupportedTypeCombination surface
// at compile time and prevent code generation for the call site; the others
// surface from signature checks or from the runtime invocation.
const (
	ShapeMismatch Kind = iota
	EmptyInput
	UnsupportedRank
	SizeOverflow
	BackendUnavailable
	UnsupportedTypeCombination
	DeviceResourceFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case ShapeMismatch:
		return "shape mismatch"
	case EmptyInput:
		return "empty input"
	case UnsupportedRank:
		return "unsupported rank"
	case SizeOverflow:
		return "size overflow"
	case BackendUnavailable:
		return "backend unavailable"
	case UnsupportedTypeCombination:
		return "unsupported type combination"
	case DeviceResourceFailure:
		return "device resource failure"
	default:
		return "unknown"
	}
}

// Error is a lowering failure carrying its taxonomy kind.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

// Errorf builds a lowering error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WrapErr builds a lowering error of the given kind wrapping a cause.
func WrapErr(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// Error returns the failure description.
func (e *Error) Error() string {
	s := "lowering: " + e.Kind.String() + ": " + e.msg
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return 0, false
}

// IsFallback reports whether the host compiler should fall back to its
// default lowering for the call site instead of failing.
func IsFallback(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == BackendUnavailable || k == UnsupportedTypeCombination)
}
