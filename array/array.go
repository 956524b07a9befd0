// Copyright 2025 nplift Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package array provides the public API for the host-side array model:
// shapes, element types, and contiguity-aware arrays backed by refcounted
// buffers.
//
// Example:
//
//	a, err := array.FromSlice([]float64{1, 2, 3, 4, 5, 6}, array.Shape{2, 3})
//	if err != nil {
//		// handle
//	}
//	defer a.Release()
package array

import (
	"github.com/nplift-ml/nplift/internal/array"
)

// Element is a constraint for array element types.
// Supported types: float32, float64, int32, int64, uint32, uint64.
type Element = array.Element

// DataType represents the element type of an array.
type DataType = array.DataType

// Data type constants.
const (
	Float32 DataType = array.Float32
	Float64 DataType = array.Float64
	Int32   DataType = array.Int32
	Int64   DataType = array.Int64
	Uint32  DataType = array.Uint32
	Uint64  DataType = array.Uint64
)

// Shape represents the dimensions of an array.
// Example: Shape{2, 3} represents a 2×3 matrix; an empty Shape is a scalar.
type Shape = array.Shape

// Layout describes the memory order of an array.
type Layout = array.Layout

// Layout constants.
const (
	RowMajor Layout = array.RowMajor
	ColMajor Layout = array.ColMajor
	Strided  Layout = array.Strided
)

// Array is a shaped view over a refcounted element buffer.
type Array = array.Array

// New creates a zero-filled array with the given shape and element type.
func New(shape Shape, dtype DataType) (*Array, error) {
	return array.New(shape, dtype)
}

// Zeros creates a zero-filled array of T with the given shape.
func Zeros[T Element](shape Shape) (*Array, error) {
	return array.Zeros[T](shape)
}

// FromSlice creates an array of T from a flat slice. The slice length must
// match the shape's element count.
func FromSlice[T Element](data []T, shape Shape) (*Array, error) {
	return array.FromSlice[T](data, shape)
}

// ToSlice copies an array's elements out as a slice of T.
// Panics if T does not match the array's element type.
func ToSlice[T Element](a *Array) []T {
	return array.ToSlice[T](a)
}
