package lowering

import (
	"github.com/nplift-ml/nplift/internal/array"
)

// Normalize returns the operands with every array memory-contiguous.
// Operands that are already contiguous pass through unchanged. A strided
// operand is replaced by a fresh row-major copy of the same shape and type;
// the copy is registered with sc and released when the lowering exits,
// success or error. No validation errors originate here.
func Normalize(sc *Scope, operands []*array.Array) ([]*array.Array, error) {
	out := make([]*array.Array, len(operands))
	for i, op := range operands {
		if op.Layout().Contiguous() {
			out[i] = op
			continue
		}

		cp, err := array.CopyContiguous(op)
		if err != nil {
			return nil, WrapErr(DeviceResourceFailure, err, "contiguous copy of operand %d", i)
		}
		sc.Defer(func() error {
			cp.Release()
			return nil
		})
		out[i] = cp
	}
	return out, nil
}
