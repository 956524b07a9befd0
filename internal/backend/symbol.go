// Package backend provides the typed foreign-call table for the accelerated
// math library: symbol keys built from an operation name and ordered
// element-type names, typed callable descriptors, and memoized resolution.
package backend

import (
	"strings"
	"unsafe"
)

// TypeNone is the sentinel type name used in a symbol key where a type is
// not applicable (e.g. the return slot of the sum and prod call forms).
const TypeNone = "none"

// Fixed backend symbol names, one per operation. Matrix forms of dot share
// the matmul symbol; argmin resolves its own symbol.
const (
	SymDot     = "aops_dot"
	SymMatMul  = "aops_matmul"
	SymSum     = "aops_sum"
	SymProd    = "aops_prod"
	SymArgmax  = "aops_argmax"
	SymArgmin  = "aops_argmin"
	SymArgsort = "aops_argsort"
	SymCov     = "aops_cov"
)

// Key identifies one backend entry point: the operation name plus the
// ordered element-type names of the call form.
type Key struct {
	Op    string
	Types string // comma-joined type names, in call order
}

// NewKey builds a key from an operation name and ordered type names.
func NewKey(op string, typeNames []string) Key {
	return Key{Op: op, Types: strings.Join(typeNames, ",")}
}

// String returns the key in "op[t0,t1,...]" form.
func (k Key) String() string {
	return k.Op + "[" + k.Types + "]"
}

// TypeNames returns the ordered type names of the key.
func (k Key) TypeNames() []string {
	if k.Types == "" {
		return nil
	}
	return strings.Split(k.Types, ",")
}

// Arg is one positional parameter of a backend call: a raw data pointer or
// an integer size/shape scalar.
type Arg struct {
	ptr    unsafe.Pointer
	scalar int64
	isPtr  bool
}

// PtrArg wraps a raw data pointer parameter.
func PtrArg(p unsafe.Pointer) Arg {
	return Arg{ptr: p, isPtr: true}
}

// ScalarArg wraps an integer size/shape parameter.
func ScalarArg(n int64) Arg {
	return Arg{scalar: n}
}

// IsPtr reports whether the argument is a pointer parameter.
func (a Arg) IsPtr() bool {
	return a.isPtr
}

// Pointer returns the pointer value of a pointer parameter.
func (a Arg) Pointer() unsafe.Pointer {
	return a.ptr
}

// Scalar returns the integer value of a scalar parameter.
func (a Arg) Scalar() int64 {
	return a.scalar
}

// Kernel is the typed callable descriptor for a resolved backend symbol.
// The argument list is fixed and positional: operand pointer(s), result
// pointer, then the size/shape scalars specific to the operation.
type Kernel func(args []Arg) error

// Resolver looks up a callable for an operation and ordered type names, or
// reports that no symbol is registered for the combination.
type Resolver interface {
	Lookup(op string, typeNames []string) (Kernel, bool)
}
