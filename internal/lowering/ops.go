package lowering

import (
	"github.com/nplift-ml/nplift/internal/array"
	"github.com/nplift-ml/nplift/internal/backend"
	"github.com/nplift-ml/nplift/internal/device"
)

// buildDispatch builds the operation dispatch table: one entry per supported
// operation, installed explicitly by the engine constructor.
func buildDispatch() map[Op]compileFunc {
	return map[Op]compileFunc{
		Dot:     compileDot,
		MatMul:  compileMatMul,
		Sum:     compileReduce(Sum, backend.SymSum),
		Prod:    compileReduce(Prod, backend.SymProd),
		Argmax:  compileArgExtreme(Argmax, backend.SymArgmax),
		Argmin:  compileArgExtreme(Argmin, backend.SymArgmin),
		Argsort: compileArgsort,
		Cov:     compileCov,
	}
}

// compileDot lowers dot for all four rank pairs. The vector-vector form
// resolves the dot symbol with both operand type names; the matrix forms
// share the matmul symbol and call form.
func compileDot(e *Engine, sig Signature) (*Compiled, error) {
	if err := checkSigOperands(Dot, sig, 2); err != nil {
		return nil, err
	}

	form, err := classifyDot(sig.Operands[0].Rank, sig.Operands[1].Rank)
	if err != nil {
		return nil, err
	}

	var kernel backend.Kernel
	var sym string
	if form == dotVecVec {
		sym = backend.SymDot
		kernel, err = e.resolve(sym, []string{
			sig.Operands[0].DType.String(),
			sig.Operands[1].DType.String(),
			sig.Return.String(),
		})
	} else {
		sym = backend.SymMatMul
		kernel, err = e.resolve(sym, []string{
			sig.Operands[0].DType.String(),
			sig.Return.String(),
		})
	}
	if err != nil {
		return nil, err
	}

	run := func(st *state, sc *Scope, m *device.Manager, ops []*array.Array) (*array.Array, error) {
		a, b := ops[0], ops[1]
		shape, err := validateDot(form, a, b)
		if err != nil {
			return nil, err
		}
		if form == dotVecVec {
			if err := checkCallParam(int64(a.Shape()[0])); err != nil {
				return nil, err
			}
		}

		res, err := allocResult(shape, sig.Return)
		if err != nil {
			return nil, err
		}
		*st = stateValidated

		var args []backend.Arg
		switch form {
		case dotVecVec:
			args = []backend.Arg{
				backend.PtrArg(a.Ptr()), backend.PtrArg(b.Ptr()), backend.PtrArg(res.Ptr()),
				backend.ScalarArg(int64(a.Shape()[0])),
			}
		case dotMatMat:
			args = []backend.Arg{
				backend.PtrArg(a.Ptr()), backend.PtrArg(b.Ptr()), backend.PtrArg(res.Ptr()),
				backend.ScalarArg(int64(a.Shape()[0])),
				backend.ScalarArg(int64(a.Shape()[1])),
				backend.ScalarArg(int64(b.Shape()[1])),
			}
		case dotMatVec:
			// (m,n) x (n,) is (m,n) @ (n,1)
			args = []backend.Arg{
				backend.PtrArg(a.Ptr()), backend.PtrArg(b.Ptr()), backend.PtrArg(res.Ptr()),
				backend.ScalarArg(int64(a.Shape()[0])),
				backend.ScalarArg(int64(a.Shape()[1])),
				backend.ScalarArg(1),
			}
		case dotVecMat:
			// (m,) x (m,k) is (1,m) @ (m,k)
			args = []backend.Arg{
				backend.PtrArg(a.Ptr()), backend.PtrArg(b.Ptr()), backend.PtrArg(res.Ptr()),
				backend.ScalarArg(1),
				backend.ScalarArg(int64(b.Shape()[0])),
				backend.ScalarArg(int64(b.Shape()[1])),
			}
		}

		req := &Request{Op: sym, TypeNames: nil, Args: args}
		if err := invokeKernel(kernel, req); err != nil {
			res.Release()
			return nil, err
		}
		*st = stateInvoked
		return res, nil
	}

	return &Compiled{op: Dot, sig: sig, engine: e, run: run}, nil
}

// compileMatMul lowers matmul for the (2,2) rank pair with full device
// staging: both operands are copied to device buffers, the kernel runs on
// device-resident memory, and the result is copied back.
func compileMatMul(e *Engine, sig Signature) (*Compiled, error) {
	if err := checkSigOperands(MatMul, sig, 2); err != nil {
		return nil, err
	}
	if sig.Operands[0].Rank != 2 || sig.Operands[1].Rank != 2 {
		return nil, Errorf(UnsupportedRank, "matmul of ranks (%d,%d)",
			sig.Operands[0].Rank, sig.Operands[1].Rank)
	}

	kernel, err := e.resolve(backend.SymMatMul, []string{
		sig.Operands[0].DType.String(),
		sig.Return.String(),
	})
	if err != nil {
		return nil, err
	}

	run := func(st *state, sc *Scope, m *device.Manager, ops []*array.Array) (*array.Array, error) {
		a, b := ops[0], ops[1]
		shape, err := validateDot(dotMatMat, a, b)
		if err != nil {
			return nil, err
		}

		res, err := allocResult(shape, sig.Return)
		if err != nil {
			return nil, err
		}
		*st = stateValidated

		aBuf, err := stageIn(sc, m, a)
		if err != nil {
			res.Release()
			return nil, err
		}
		bBuf, err := stageIn(sc, m, b)
		if err != nil {
			res.Release()
			return nil, err
		}
		outBuf, err := stageOut(sc, m, byteSize(res))
		if err != nil {
			res.Release()
			return nil, err
		}
		*st = stateStaged

		req := &Request{Op: backend.SymMatMul, Args: []backend.Arg{
			devicePtr(aBuf), devicePtr(bBuf), devicePtr(outBuf),
			backend.ScalarArg(int64(a.Shape()[0])),
			backend.ScalarArg(int64(a.Shape()[1])),
			backend.ScalarArg(int64(b.Shape()[1])),
		}}
		if err := invokeKernel(kernel, req); err != nil {
			res.Release()
			return nil, err
		}
		*st = stateInvoked

		if err := unstage(m, res.Ptr(), outBuf, byteSize(res)); err != nil {
			res.Release()
			return nil, err
		}
		*st = stateUnstaged
		return res, nil
	}

	return &Compiled{op: MatMul, sig: sig, engine: e, run: run}, nil
}

// compileReduce lowers sum and prod: the input is staged to a device
// buffer, the kernel reduces into a one-element device buffer, and the
// scalar is copied back. The symbol key uses the sentinel for the return
// slot; the result type equals the operand element type.
func compileReduce(op Op, sym string) compileFunc {
	return func(e *Engine, sig Signature) (*Compiled, error) {
		if err := checkSigOperands(op, sig, 1); err != nil {
			return nil, err
		}
		if sig.Return != sig.Operands[0].DType {
			return nil, Errorf(UnsupportedTypeCombination, "%s: return type %s differs from operand type %s",
				op, sig.Return, sig.Operands[0].DType)
		}

		kernel, err := e.resolve(sym, []string{
			sig.Operands[0].DType.String(),
			backend.TypeNone,
		})
		if err != nil {
			return nil, err
		}

		run := stagedReduceRun(op, sym, sig, kernel)
		return &Compiled{op: op, sig: sig, engine: e, run: run}, nil
	}
}

// compileArgExtreme lowers argmax and argmin. The call form matches the
// reductions, but the result is an index of the declared return type and
// each operation resolves its own symbol.
func compileArgExtreme(op Op, sym string) compileFunc {
	return func(e *Engine, sig Signature) (*Compiled, error) {
		if err := checkSigOperands(op, sig, 1); err != nil {
			return nil, err
		}

		kernel, err := e.resolve(sym, []string{
			sig.Operands[0].DType.String(),
			sig.Return.String(),
		})
		if err != nil {
			return nil, err
		}

		run := stagedReduceRun(op, sym, sig, kernel)
		return &Compiled{op: op, sig: sig, engine: e, run: run}, nil
	}
}

// stagedReduceRun is the shared runtime sequence of sum, prod, argmax, and
// argmin: reject empty input, stage the operand in, reduce into a
// one-element device buffer, copy the scalar back, free everything.
func stagedReduceRun(op Op, sym string, sig Signature, kernel backend.Kernel) runFunc {
	return func(st *state, sc *Scope, m *device.Manager, ops []*array.Array) (*array.Array, error) {
		a := ops[0]
		if err := validateReduce(op, a); err != nil {
			return nil, err
		}

		res, err := allocResult(array.Shape{}, sig.Return)
		if err != nil {
			return nil, err
		}
		*st = stateValidated

		aBuf, err := stageIn(sc, m, a)
		if err != nil {
			res.Release()
			return nil, err
		}
		outBuf, err := stageOut(sc, m, int64(sig.Return.Size()))
		if err != nil {
			res.Release()
			return nil, err
		}
		*st = stateStaged

		req := &Request{Op: sym, Args: []backend.Arg{
			devicePtr(aBuf), devicePtr(outBuf),
			backend.ScalarArg(int64(a.NumElements())),
		}}
		if err := invokeKernel(kernel, req); err != nil {
			res.Release()
			return nil, err
		}
		*st = stateInvoked

		if err := unstage(m, res.Ptr(), outBuf, int64(sig.Return.Size())); err != nil {
			res.Release()
			return nil, err
		}
		*st = stateUnstaged
		return res, nil
	}
}

// compileArgsort lowers argsort on a rank-1 operand. The call passes host
// pointers; the result is a freshly allocated index array of the operand's
// length holding a permutation of [0, m).
func compileArgsort(e *Engine, sig Signature) (*Compiled, error) {
	if err := checkSigOperands(Argsort, sig, 1); err != nil {
		return nil, err
	}
	if sig.Operands[0].Rank != 1 {
		return nil, Errorf(UnsupportedRank, "argsort of rank %d", sig.Operands[0].Rank)
	}

	kernel, err := e.resolve(backend.SymArgsort, []string{
		sig.Operands[0].DType.String(),
		sig.Return.String(),
	})
	if err != nil {
		return nil, err
	}

	run := func(st *state, sc *Scope, m *device.Manager, ops []*array.Array) (*array.Array, error) {
		a := ops[0]
		n, err := validateArgsort(a)
		if err != nil {
			return nil, err
		}

		res, err := allocResult(array.Shape{n}, sig.Return)
		if err != nil {
			return nil, err
		}
		*st = stateValidated

		if n == 0 {
			// Nothing to sort; the empty permutation is already correct.
			return res, nil
		}

		req := &Request{Op: backend.SymArgsort, Args: []backend.Arg{
			backend.PtrArg(a.Ptr()), backend.PtrArg(res.Ptr()),
			backend.ScalarArg(int64(n)),
		}}
		if err := invokeKernel(kernel, req); err != nil {
			res.Release()
			return nil, err
		}
		*st = stateInvoked
		return res, nil
	}

	return &Compiled{op: Argsort, sig: sig, engine: e, run: run}, nil
}

// compileCov lowers covariance for rank-1 and rank-2 operands; any other
// rank is rejected at compile time. The call passes host pointers with
// (nrows, ncols) shape scalars; a rank-1 operand is one row.
func compileCov(e *Engine, sig Signature) (*Compiled, error) {
	if err := checkSigOperands(Cov, sig, 1); err != nil {
		return nil, err
	}
	if r := sig.Operands[0].Rank; r != 1 && r != 2 {
		return nil, Errorf(UnsupportedRank, "cov of rank %d", r)
	}

	kernel, err := e.resolve(backend.SymCov, []string{
		sig.Operands[0].DType.String(),
		sig.Return.String(),
	})
	if err != nil {
		return nil, err
	}

	run := func(st *state, sc *Scope, m *device.Manager, ops []*array.Array) (*array.Array, error) {
		a := ops[0]
		shape, nrows, ncols, err := validateCov(a)
		if err != nil {
			return nil, err
		}

		res, err := allocResult(shape, sig.Return)
		if err != nil {
			return nil, err
		}
		*st = stateValidated

		req := &Request{Op: backend.SymCov, Args: []backend.Arg{
			backend.PtrArg(a.Ptr()), backend.PtrArg(res.Ptr()),
			backend.ScalarArg(nrows), backend.ScalarArg(ncols),
		}}
		if err := invokeKernel(kernel, req); err != nil {
			res.Release()
			return nil, err
		}
		*st = stateInvoked
		return res, nil
	}

	return &Compiled{op: Cov, sig: sig, engine: e, run: run}, nil
}
