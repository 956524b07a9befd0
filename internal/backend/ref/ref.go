// Package ref provides a pure-Go reference math backend. It installs one
// kernel per (operation, element type) pair into a backend.Table, standing in
// for the external native library in tests and on hosts without one.
package ref

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/nplift-ml/nplift/internal/array"
	"github.com/nplift-ml/nplift/internal/backend"
	"github.com/nplift-ml/nplift/internal/parallel"
)

var parCfg = parallel.DefaultConfig()

// Install registers reference kernels for float32, float64, int32, and int64
// elements. Other element types are left unregistered so lowering them
// reports an unsupported type combination.
func Install(t *backend.Table) {
	installFor[float32](t, array.Float32)
	installFor[float64](t, array.Float64)
	installFor[int32](t, array.Int32)
	installFor[int64](t, array.Int64)
}

func installFor[T array.Element](t *backend.Table, dt array.DataType) {
	name := dt.String()
	index := array.Int64.String()

	t.Install(backend.SymDot, []string{name, name, name}, dotKernel[T])
	t.Install(backend.SymMatMul, []string{name, name}, matmulKernel[T])
	t.Install(backend.SymSum, []string{name, backend.TypeNone}, sumKernel[T])
	t.Install(backend.SymProd, []string{name, backend.TypeNone}, prodKernel[T])
	t.Install(backend.SymArgmax, []string{name, index}, argminmaxKernel[T](false))
	t.Install(backend.SymArgmin, []string{name, index}, argminmaxKernel[T](true))
	t.Install(backend.SymArgsort, []string{name, index}, argsortKernel[T])
	t.Install(backend.SymCov, []string{name, array.Float64.String()}, covKernel[T])
}

// checkArgs validates the positional argument list: pointer parameters
// first, scalar parameters after.
func checkArgs(args []backend.Arg, ptrs, scalars int) error {
	if len(args) != ptrs+scalars {
		return fmt.Errorf("ref: expected %d args, got %d", ptrs+scalars, len(args))
	}
	for i := 0; i < ptrs; i++ {
		if !args[i].IsPtr() || args[i].Pointer() == nil {
			return fmt.Errorf("ref: arg %d: expected pointer", i)
		}
	}
	for i := ptrs; i < len(args); i++ {
		if args[i].IsPtr() {
			return fmt.Errorf("ref: arg %d: expected scalar", i)
		}
	}
	return nil
}

// dotKernel computes out = sum(a[i] * b[i]).
// Args: a, b, out pointers; size scalar.
func dotKernel[T array.Element](args []backend.Arg) error {
	if err := checkArgs(args, 3, 1); err != nil {
		return err
	}
	n := args[3].Scalar()
	a := unsafe.Slice((*T)(args[0].Pointer()), n)
	b := unsafe.Slice((*T)(args[1].Pointer()), n)
	out := (*T)(args[2].Pointer())

	var acc T
	for i := range a {
		acc += a[i] * b[i]
	}
	*out = acc
	return nil
}

// matmulKernel computes out[m,k] = a[m,n] @ b[n,k].
// Args: a, b, out pointers; m, n, k scalars.
func matmulKernel[T array.Element](args []backend.Arg) error {
	if err := checkArgs(args, 3, 3); err != nil {
		return err
	}
	m, n, k := args[3].Scalar(), args[4].Scalar(), args[5].Scalar()
	a := unsafe.Slice((*T)(args[0].Pointer()), m*n)
	b := unsafe.Slice((*T)(args[1].Pointer()), n*k)
	out := unsafe.Slice((*T)(args[2].Pointer()), m*k)

	parallel.ForRows(int(m), int(k), func(i, j int) {
		var acc T
		for l := int64(0); l < n; l++ {
			acc += a[int64(i)*n+l] * b[l*k+int64(j)]
		}
		out[int64(i)*k+int64(j)] = acc
	}, parCfg)
	return nil
}

// sumKernel computes out = sum(a).
// Args: a, out pointers; size scalar.
func sumKernel[T array.Element](args []backend.Arg) error {
	if err := checkArgs(args, 2, 1); err != nil {
		return err
	}
	n := args[2].Scalar()
	a := unsafe.Slice((*T)(args[0].Pointer()), n)
	out := (*T)(args[1].Pointer())

	var acc T
	for _, v := range a {
		acc += v
	}
	*out = acc
	return nil
}

// prodKernel computes out = prod(a).
// Args: a, out pointers; size scalar.
func prodKernel[T array.Element](args []backend.Arg) error {
	if err := checkArgs(args, 2, 1); err != nil {
		return err
	}
	n := args[2].Scalar()
	a := unsafe.Slice((*T)(args[0].Pointer()), n)
	out := (*T)(args[1].Pointer())

	acc := T(1)
	for _, v := range a {
		acc *= v
	}
	*out = acc
	return nil
}

// argminmaxKernel returns a kernel computing the index of the extreme value.
// Args: a, out (int64) pointers; size scalar. Ties keep the first index.
func argminmaxKernel[T array.Element](min bool) backend.Kernel {
	return func(args []backend.Arg) error {
		if err := checkArgs(args, 2, 1); err != nil {
			return err
		}
		n := args[2].Scalar()
		a := unsafe.Slice((*T)(args[0].Pointer()), n)
		out := (*int64)(args[1].Pointer())

		best := int64(0)
		for i := int64(1); i < n; i++ {
			if (min && a[i] < a[best]) || (!min && a[i] > a[best]) {
				best = i
			}
		}
		*out = best
		return nil
	}
}

// argsortKernel writes the permutation that sorts a ascending.
// Args: a, out (int64) pointers; size scalar. The sort is stable.
func argsortKernel[T array.Element](args []backend.Arg) error {
	if err := checkArgs(args, 2, 1); err != nil {
		return err
	}
	n := args[2].Scalar()
	a := unsafe.Slice((*T)(args[0].Pointer()), n)
	out := unsafe.Slice((*int64)(args[1].Pointer()), n)

	for i := range out {
		out[i] = int64(i)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return a[out[i]] < a[out[j]]
	})
	return nil
}

// covKernel computes the covariance matrix of an nrows x ncols input, rows
// as variables, with divisor ncols-1. Output is float64, nrows x nrows
// (one element when nrows == 1).
// Args: a, out (float64) pointers; nrows, ncols scalars.
func covKernel[T array.Element](args []backend.Arg) error {
	if err := checkArgs(args, 2, 2); err != nil {
		return err
	}
	nrows, ncols := args[2].Scalar(), args[3].Scalar()
	a := unsafe.Slice((*T)(args[0].Pointer()), nrows*ncols)
	out := unsafe.Slice((*float64)(args[1].Pointer()), nrows*nrows)

	means := make([]float64, nrows)
	for i := int64(0); i < nrows; i++ {
		var sum float64
		for j := int64(0); j < ncols; j++ {
			sum += float64(a[i*ncols+j])
		}
		means[i] = sum / float64(ncols)
	}

	div := float64(ncols - 1)
	if ncols == 1 {
		div = 1
	}
	parallel.ForRows(int(nrows), int(nrows), func(i, j int) {
		var acc float64
		for l := int64(0); l < ncols; l++ {
			acc += (float64(a[int64(i)*ncols+l]) - means[i]) * (float64(a[int64(j)*ncols+l]) - means[j])
		}
		out[int64(i)*nrows+int64(j)] = acc / div
	}, parCfg)
	return nil
}
