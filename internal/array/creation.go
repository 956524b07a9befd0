package array

import (
	"fmt"
	"unsafe"
)

// Zeros creates a zero-initialized contiguous array of the given shape.
func Zeros[T Element](shape Shape) (*Array, error) {
	var dummy T
	return New(shape, inferDataType(dummy))
}

// FromSlice creates a contiguous row-major array from a flat slice.
// The data is copied; the slice is not retained.
func FromSlice[T Element](data []T, shape Shape) (*Array, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}

	var dummy T
	a, err := New(shape, inferDataType(dummy))
	if err != nil {
		return nil, err
	}

	dst := a.buffer.data
	elemSize := a.dtype.Size()
	for i, v := range data {
		putElement(dst[i*elemSize:], v)
	}
	return a, nil
}

// ToSlice copies a contiguous array's elements into a new typed slice.
// Panics if T does not match the array's dtype.
func ToSlice[T Element](a *Array) []T {
	var dummy T
	if inferDataType(dummy) != a.dtype {
		panic(fmt.Sprintf("array dtype is %s, not %s", a.dtype, inferDataType(dummy)))
	}

	out := make([]T, a.NumElements())
	src := a.Data()
	elemSize := a.dtype.Size()
	for i := range out {
		out[i] = getElement[T](src[i*elemSize:])
	}
	return out
}

// putElement stores one element at the start of dst.
func putElement[T Element](dst []byte, v T) {
	*(*T)(unsafe.Pointer(&dst[0])) = v
}

// getElement loads one element from the start of src.
func getElement[T Element](src []byte) T {
	return *(*T)(unsafe.Pointer(&src[0]))
}
