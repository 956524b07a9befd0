package lowering

import (
	"math"

	"github.com/nplift-ml/nplift/internal/array"
)

// maxCallParam is the largest size accepted where the backend call takes a
// 32-bit parameter.
const maxCallParam = math.MaxInt32

// dotForm enumerates the operand-rank combinations of the dot family.
// One validator/allocator exists per case, selected by a single dispatch on
// the rank pair.
type dotForm int

const (
	dotMatMat dotForm = iota // (2,2): (m,n) x (n,k) -> (m,k)
	dotMatVec                // (2,1): (m,n) x (n,)  -> (m,)
	dotVecMat                // (1,2): (m,)  x (m,k) -> (k,)
	dotVecVec                // (1,1): (m,)  x (m,)  -> scalar
)

// String returns the rank-pair name of the form.
func (f dotForm) String() string {
	switch f {
	case dotMatMat:
		return "matrix-matrix"
	case dotMatVec:
		return "matrix-vector"
	case dotVecMat:
		return "vector-matrix"
	case dotVecVec:
		return "vector-vector"
	default:
		return "unknown"
	}
}

// classifyDot selects the dot form for a rank pair.
func classifyDot(aRank, bRank int) (dotForm, error) {
	switch {
	case aRank == 2 && bRank == 2:
		return dotMatMat, nil
	case aRank == 2 && bRank == 1:
		return dotMatVec, nil
	case aRank == 1 && bRank == 2:
		return dotVecMat, nil
	case aRank == 1 && bRank == 1:
		return dotVecVec, nil
	default:
		return 0, Errorf(UnsupportedRank, "dot of ranks (%d,%d)", aRank, bRank)
	}
}

// validateDot checks the inner-dimension match for a dot form and returns
// the result shape. The vector-vector form yields a scalar (empty shape).
// Validation always precedes result allocation; no result is allocated for
// incompatible shapes.
func validateDot(form dotForm, a, b *array.Array) (array.Shape, error) {
	as, bs := a.Shape(), b.Shape()
	switch form {
	case dotMatMat:
		if as[1] != bs[0] {
			return nil, Errorf(ShapeMismatch, "dot (%d,%d) x (%d,%d)", as[0], as[1], bs[0], bs[1])
		}
		return array.Shape{as[0], bs[1]}, nil
	case dotMatVec:
		if as[1] != bs[0] {
			return nil, Errorf(ShapeMismatch, "dot (%d,%d) x (%d,)", as[0], as[1], bs[0])
		}
		return array.Shape{as[0]}, nil
	case dotVecMat:
		if as[0] != bs[0] {
			return nil, Errorf(ShapeMismatch, "dot (%d,) x (%d,%d)", as[0], bs[0], bs[1])
		}
		return array.Shape{bs[1]}, nil
	case dotVecVec:
		if as[0] != bs[0] {
			return nil, Errorf(ShapeMismatch, "dot (%d,) x (%d,)", as[0], bs[0])
		}
		return array.Shape{}, nil
	default:
		return nil, Errorf(UnsupportedRank, "dot form %d", form)
	}
}

// validateReduce rejects empty operands to a reduction.
func validateReduce(op Op, a *array.Array) error {
	if a.NumElements() == 0 {
		return Errorf(EmptyInput, "%s of empty array", op)
	}
	return nil
}

// validateArgsort checks the operand rank and returns the result length.
func validateArgsort(a *array.Array) (int, error) {
	if a.Rank() != 1 {
		return 0, Errorf(UnsupportedRank, "argsort of rank %d", a.Rank())
	}
	return a.Shape()[0], nil
}

// validateCov returns the result shape and the (nrows, ncols) call
// parameters for a covariance operand. A rank-1 operand of length m is
// treated as one row of m observations and yields a 1-element result; a
// rank-2 (m,n) operand yields an m x m result.
func validateCov(a *array.Array) (array.Shape, int64, int64, error) {
	switch a.Rank() {
	case 1:
		return array.Shape{1}, 1, int64(a.Shape()[0]), nil
	case 2:
		m := a.Shape()[0]
		return array.Shape{m, m}, int64(m), int64(a.Shape()[1]), nil
	default:
		return nil, 0, 0, Errorf(UnsupportedRank, "cov of rank %d", a.Rank())
	}
}

// checkCallParam rejects sizes exceeding the backend's 32-bit call
// parameter limit.
func checkCallParam(n int64) error {
	if n > maxCallParam {
		return Errorf(SizeOverflow, "size %d exceeds 32-bit call parameter limit", n)
	}
	return nil
}

// allocResult allocates the result array after validation succeeded.
func allocResult(shape array.Shape, dtype array.DataType) (*array.Array, error) {
	res, err := array.New(shape, dtype)
	if err != nil {
		return nil, WrapErr(DeviceResourceFailure, err, "allocate result %v", shape)
	}
	return res, nil
}
