package lowering

import (
	"errors"
	"log/slog"

	"github.com/nplift-ml/nplift/internal/array"
	"github.com/nplift-ml/nplift/internal/backend"
	"github.com/nplift-ml/nplift/internal/device"
)

// Op names a supported high-level array operation.
type Op string

// The fixed operation set this layer lowers.
const (
	Dot     Op = "dot"
	MatMul  Op = "matmul"
	Sum     Op = "sum"
	Prod    Op = "prod"
	Argmax  Op = "argmax"
	Argmin  Op = "argmin"
	Argsort Op = "argsort"
	Cov     Op = "cov"
)

// Operand describes one operand of a call-site signature.
type Operand struct {
	DType array.DataType
	Rank  int
}

// Signature describes one call site: ordered operand types plus the declared
// return element type. It is immutable for the duration of one lowering.
type Signature struct {
	Operands []Operand
	Return   array.DataType
}

// state tracks the per-call-site invocation sequence. Staging states are
// skipped for operations whose call form takes host pointers.
type state int

const (
	statePending state = iota
	stateNormalized
	stateValidated
	stateStaged
	stateInvoked
	stateUnstaged
	stateDone
	stateErrored
)

// String returns the state name.
func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateNormalized:
		return "normalized"
	case stateValidated:
		return "validated"
	case stateStaged:
		return "staged-to-device"
	case stateInvoked:
		return "invoked"
	case stateUnstaged:
		return "staged-from-device"
	case stateDone:
		return "done"
	case stateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// compileFunc builds the compiled form of one operation for a signature.
type compileFunc func(e *Engine, sig Signature) (*Compiled, error)

// runFunc executes the runtime half of a lowering on normalized operands.
type runFunc func(st *state, sc *Scope, m *device.Manager, operands []*array.Array) (*array.Array, error)

// Engine composes the dispatch table, the backend symbol table, and the
// device runtime into per-call-site lowerings.
type Engine struct {
	table    *backend.Table
	runtime  device.Runtime
	log      *slog.Logger
	dispatch map[Op]compileFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an engine over a symbol table and a device runtime.
func New(table *backend.Table, rt device.Runtime, opts ...Option) *Engine {
	e := &Engine{
		table:    table,
		runtime:  rt,
		log:      slog.Default(),
		dispatch: buildDispatch(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lower compiles one call site: it verifies backend availability, classifies
// the operand ranks, and resolves the backend symbol once. The resolved
// kernel is embedded in the returned Compiled; at runtime the call is a
// direct invocation through it.
func (e *Engine) Lower(op Op, sig Signature) (*Compiled, error) {
	if !e.table.Available() {
		return nil, Errorf(BackendUnavailable, "%s: no math backend installed", op)
	}

	compile, ok := e.dispatch[op]
	if !ok {
		return nil, Errorf(UnsupportedTypeCombination, "operation %q has no accelerated lowering", op)
	}

	c, err := compile(e, sig)
	if err != nil {
		if IsFallback(err) {
			e.log.Warn("lowering falls back to host default", "op", string(op), "err", err)
		} else {
			e.log.Debug("lowering rejected", "op", string(op), "err", err)
		}
		return nil, err
	}
	e.log.Debug("lowered call site", "op", string(op), "operands", len(sig.Operands))
	return c, nil
}

// Supports reports whether Lower would succeed for the operation and
// signature. A false result means the host should use its default lowering.
func (e *Engine) Supports(op Op, sig Signature) bool {
	_, err := e.Lower(op, sig)
	return err == nil
}

// resolve maps symbol-table failures onto the lowering taxonomy.
func (e *Engine) resolve(sym string, typeNames []string) (backend.Kernel, error) {
	k, err := e.table.Resolve(sym, typeNames)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			return nil, WrapErr(BackendUnavailable, err, "resolve %s", sym)
		}
		return nil, WrapErr(UnsupportedTypeCombination, err, "resolve %s", sym)
	}
	return k, nil
}

// Compiled is one lowered call site: the resolved kernel plus the fixed
// runtime sequence for the operation's call form.
type Compiled struct {
	op     Op
	sig    Signature
	engine *Engine
	run    runFunc
}

// Op returns the operation this call site lowers.
func (c *Compiled) Op() Op {
	return c.op
}

// Invoke executes the compiled call sequence on the given operands:
// normalize contiguity, validate shapes and allocate the result, stage to
// device where the call form requires it, invoke the kernel, stage results
// back, and release every temporary on any exit path. The caller owns the
// returned array.
func (c *Compiled) Invoke(operands ...*array.Array) (res *array.Array, err error) {
	if err := c.checkOperands(operands); err != nil {
		return nil, err
	}

	m, err := device.NewManager(c.engine.runtime)
	if err != nil {
		return nil, WrapErr(DeviceResourceFailure, err, "%s: bind device queue", c.op)
	}

	st := statePending
	sc := NewScope()
	defer func() {
		cerr := sc.Close()
		if cerr != nil && err == nil {
			res, err = nil, WrapErr(DeviceResourceFailure, cerr, "%s: release temporaries", c.op)
		}
		if err != nil {
			st = stateErrored
		} else {
			st = stateDone
		}
		c.engine.log.Debug("lowering invoked", "op", string(c.op), "state", st.String())
	}()

	ops, err := Normalize(sc, operands)
	if err != nil {
		return nil, err
	}
	st = stateNormalized

	return c.run(&st, sc, m, ops)
}

// checkOperands verifies the actual operands against the compiled signature.
func (c *Compiled) checkOperands(operands []*array.Array) error {
	if len(operands) != len(c.sig.Operands) {
		return Errorf(ShapeMismatch, "%s: got %d operands, signature has %d",
			c.op, len(operands), len(c.sig.Operands))
	}
	for i, a := range operands {
		want := c.sig.Operands[i]
		if a.DType() != want.DType {
			return Errorf(UnsupportedTypeCombination, "%s: operand %d is %s, signature says %s",
				c.op, i, a.DType(), want.DType)
		}
		if a.Rank() != want.Rank {
			return Errorf(UnsupportedRank, "%s: operand %d has rank %d, signature says %d",
				c.op, i, a.Rank(), want.Rank)
		}
	}
	return nil
}

// checkSigOperands verifies the operand count at compile time.
func checkSigOperands(op Op, sig Signature, want int) error {
	if len(sig.Operands) != want {
		return Errorf(UnsupportedTypeCombination, "%s: signature has %d operands, want %d",
			op, len(sig.Operands), want)
	}
	return nil
}
