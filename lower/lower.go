// Copyright 2025 nplift Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package lower provides the public API for lowering high-level array
// operations onto an accelerated math backend.
//
// Lowering is two-phase: Engine.Lower compiles one call site (availability
// check, rank classification, symbol resolution), and the returned Compiled
// executes the fixed call sequence on concrete operands.
//
// Example:
//
//	table := lower.NewTable(nil)
//	lower.InstallReference(table)
//	eng := lower.New(table, host.New())
//
//	c, err := eng.Lower(lower.Dot, lower.Signature{
//		Operands: []lower.Operand{
//			{DType: array.Float64, Rank: 1},
//			{DType: array.Float64, Rank: 1},
//		},
//		Return: array.Float64,
//	})
//	if err != nil {
//		// fall back to the default lowering
//	}
//	res, err := c.Invoke(a, b)
package lower

import (
	"github.com/nplift-ml/nplift/internal/backend"
	"github.com/nplift-ml/nplift/internal/backend/ref"
	"github.com/nplift-ml/nplift/internal/device"
	"github.com/nplift-ml/nplift/internal/lowering"
)

// Op names a supported high-level array operation.
type Op = lowering.Op

// The fixed operation set this layer lowers.
const (
	Dot     Op = lowering.Dot
	MatMul  Op = lowering.MatMul
	Sum     Op = lowering.Sum
	Prod    Op = lowering.Prod
	Argmax  Op = lowering.Argmax
	Argmin  Op = lowering.Argmin
	Argsort Op = lowering.Argsort
	Cov     Op = lowering.Cov
)

// Operand describes one operand of a call-site signature.
type Operand = lowering.Operand

// Signature describes one call site: ordered operand types plus the declared
// return element type.
type Signature = lowering.Signature

// Engine composes the backend symbol table and the device runtime into
// per-call-site lowerings.
type Engine = lowering.Engine

// Compiled is one lowered call site.
type Compiled = lowering.Compiled

// Option configures an Engine.
type Option = lowering.Option

// WithLogger sets the engine's structured logger.
var WithLogger = lowering.WithLogger

// New creates an engine over a symbol table and a device runtime.
func New(table *Table, rt Runtime, opts ...Option) *Engine {
	return lowering.New(table, rt, opts...)
}

// Registry is the host compiler's dispatch surface for accelerated
// lowerings.
type Registry = lowering.Registry

// Entry is one lowering exposed to the compiler host.
type Entry = lowering.Entry

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return lowering.NewRegistry()
}

// RegisterAll installs one registry entry per supported operation.
func RegisterAll(r *Registry, e *Engine) {
	lowering.RegisterAll(r, e)
}

// Table maps backend symbol keys to kernels.
type Table = backend.Table

// Resolver looks up a kernel for an operation and ordered type names.
type Resolver = backend.Resolver

// NewTable creates a symbol table backed by an optional late-bound resolver.
func NewTable(r Resolver) *Table {
	return backend.NewTable(r)
}

// InstallReference installs the in-process reference kernels into a table.
func InstallReference(t *Table) {
	ref.Install(t)
}

// Runtime is the device runtime the engine stages buffers against.
type Runtime = device.Runtime

// Kind classifies lowering failures.
type Kind = lowering.Kind

// Failure kinds. Fallback kinds mean the host should keep its default
// lowering for the call site; the rest are hard errors.
const (
	ShapeMismatch              Kind = lowering.ShapeMismatch
	EmptyInput                 Kind = lowering.EmptyInput
	UnsupportedRank            Kind = lowering.UnsupportedRank
	SizeOverflow               Kind = lowering.SizeOverflow
	BackendUnavailable         Kind = lowering.BackendUnavailable
	UnsupportedTypeCombination Kind = lowering.UnsupportedTypeCombination
	DeviceResourceFailure      Kind = lowering.DeviceResourceFailure
)

// KindOf extracts the failure kind from an error chain.
var KindOf = lowering.KindOf

// IsFallback reports whether the error means the host should keep its
// default lowering.
var IsFallback = lowering.IsFallback
