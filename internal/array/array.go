package array

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Layout tags the memory arrangement of an array.
type Layout int

// Supported memory layouts. Backend calls require a contiguous layout;
// Strided arrays must be normalized (copied) before being passed down.
const (
	RowMajor Layout = iota
	ColMajor
	Strided
)

// String returns a human-readable layout name.
func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "col-major"
	case Strided:
		return "strided"
	default:
		return "unknown"
	}
}

// Contiguous reports whether the layout is row- or column-major.
func (l Layout) Contiguous() bool {
	return l == RowMajor || l == ColMajor
}

// arrayBuffer is a reference-counted backing buffer shared between an array
// and its views. The last release drops the memory.
type arrayBuffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex
}

// newArrayBuffer creates a new reference-counted buffer with refCount = 1.
func newArrayBuffer(size int) *arrayBuffer {
	buf := &arrayBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

func (ab *arrayBuffer) addRef() {
	ab.refCount.Add(1)
}

func (ab *arrayBuffer) release() {
	if ab.refCount.Add(-1) == 0 {
		ab.mu.Lock()
		defer ab.mu.Unlock()
		ab.data = nil
	}
}

// Array is the operand descriptor passed through the lowering pipeline:
// shape, element type, layout tag, and a pointer into backing memory.
// Input arrays are borrowed from the caller; copies made by the contiguity
// normalizer are owned by the lowering and released when it exits.
type Array struct {
	buffer *arrayBuffer
	shape  Shape
	stride []int // element strides
	dtype  DataType
	layout Layout
	offset int // element offset into the buffer
}

// New creates a contiguous row-major array with the given shape and type.
// Memory is allocated and zero-initialized.
func New(shape Shape, dtype DataType) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &Array{
		buffer: newArrayBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.RowMajorStrides(),
		dtype:  dtype,
		layout: RowMajor,
		offset: 0,
	}, nil
}

// Shape returns the array's shape.
func (a *Array) Shape() Shape {
	return a.shape
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Strides returns the array's element strides.
func (a *Array) Strides() []int {
	return a.stride
}

// DType returns the array's element type.
func (a *Array) DType() DataType {
	return a.dtype
}

// Layout returns the array's memory layout tag.
func (a *Array) Layout() Layout {
	return a.layout
}

// NumElements returns the total number of elements.
func (a *Array) NumElements() int {
	return a.shape.NumElements()
}

// ByteSize returns the dense memory size in bytes (elements x element size).
func (a *Array) ByteSize() int {
	return a.NumElements() * a.dtype.Size()
}

// Data returns the raw bytes of a contiguous array.
// Panics on strided arrays, whose elements are not dense in memory.
func (a *Array) Data() []byte {
	if a.layout == Strided {
		panic("array: Data on strided array")
	}
	base := a.offset * a.dtype.Size()
	return a.buffer.data[base : base+a.ByteSize()]
}

// Ptr returns a raw pointer to the first element, as passed to backend calls.
// Returns nil for zero-element arrays.
func (a *Array) Ptr() unsafe.Pointer {
	base := a.offset * a.dtype.Size()
	if base >= len(a.buffer.data) {
		return nil
	}
	return unsafe.Pointer(&a.buffer.data[base])
}

// Retain increments the reference count of the backing buffer.
func (a *Array) Retain() {
	a.buffer.addRef()
}

// Release decrements the reference count and drops the memory at zero.
func (a *Array) Release() {
	a.buffer.release()
}

// View returns a strided view into the array's buffer without copying.
// The view shares (and retains) the backing buffer.
func (a *Array) View(shape Shape, stride []int, offset int) *Array {
	a.buffer.addRef()
	return &Array{
		buffer: a.buffer,
		shape:  shape.Clone(),
		stride: append([]int(nil), stride...),
		dtype:  a.dtype,
		layout: Strided,
		offset: a.offset + offset,
	}
}

// elemOffset returns the element offset for a logical row-major index.
func (a *Array) elemOffset(index int) int {
	off := a.offset
	rem := index
	for i := len(a.shape) - 1; i >= 0; i-- {
		if a.shape[i] == 0 {
			continue
		}
		off += (rem % a.shape[i]) * a.stride[i]
		rem /= a.shape[i]
	}
	return off
}

// CopyContiguous allocates a fresh row-major array with the same shape and
// type and copies the source elements into it, whatever the source layout.
func CopyContiguous(src *Array) (*Array, error) {
	dst, err := New(src.shape, src.dtype)
	if err != nil {
		return nil, err
	}

	elemSize := src.dtype.Size()
	if src.layout == RowMajor {
		copy(dst.buffer.data, src.Data())
		return dst, nil
	}

	n := src.NumElements()
	for i := 0; i < n; i++ {
		so := src.elemOffset(i) * elemSize
		do := i * elemSize
		copy(dst.buffer.data[do:do+elemSize], src.buffer.data[so:so+elemSize])
	}
	return dst, nil
}

// AsFloat32 interprets a contiguous array's data as []float32.
// Panics if the dtype is not Float32.
func (a *Array) AsFloat32() []float32 {
	if a.dtype != Float32 {
		panic(fmt.Sprintf("array dtype is %s, not float32", a.dtype))
	}
	data := a.Data()
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), a.NumElements())
}

// AsFloat64 interprets a contiguous array's data as []float64.
// Panics if the dtype is not Float64.
func (a *Array) AsFloat64() []float64 {
	if a.dtype != Float64 {
		panic(fmt.Sprintf("array dtype is %s, not float64", a.dtype))
	}
	data := a.Data()
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), a.NumElements())
}

// AsInt32 interprets a contiguous array's data as []int32.
// Panics if the dtype is not Int32.
func (a *Array) AsInt32() []int32 {
	if a.dtype != Int32 {
		panic(fmt.Sprintf("array dtype is %s, not int32", a.dtype))
	}
	data := a.Data()
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), a.NumElements())
}

// AsInt64 interprets a contiguous array's data as []int64.
// Panics if the dtype is not Int64.
func (a *Array) AsInt64() []int64 {
	if a.dtype != Int64 {
		panic(fmt.Sprintf("array dtype is %s, not int64", a.dtype))
	}
	data := a.Data()
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), a.NumElements())
}
