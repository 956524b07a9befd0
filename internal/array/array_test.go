package array

import (
	"testing"
)

func TestNewZeroInitialized(t *testing.T) {
	a, err := New(Shape{2, 3}, Float64)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Release()

	for i, v := range a.AsFloat64() {
		if v != 0 {
			t.Errorf("element %d = %v, want 0", i, v)
		}
	}
	if a.Layout() != RowMajor {
		t.Errorf("Layout = %v, want row-major", a.Layout())
	}
}

func TestNewInvalidShape(t *testing.T) {
	if _, err := New(Shape{2, -1}, Float32); err == nil {
		t.Error("New with negative dimension should fail")
	}
}

func TestScalarArray(t *testing.T) {
	a, err := New(Shape{}, Float64)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Release()

	if a.NumElements() != 1 {
		t.Errorf("scalar NumElements = %d, want 1", a.NumElements())
	}
	if a.Ptr() == nil {
		t.Error("scalar array should have a data pointer")
	}
}

func TestEmptyArrayPtr(t *testing.T) {
	a, err := New(Shape{0}, Float32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Release()

	if a.Ptr() != nil {
		t.Error("zero-element array should have nil data pointer")
	}
}

func TestFromSliceToSlice(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	a, err := FromSlice(data, Shape{2, 3})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	defer a.Release()

	got := ToSlice[float32](a)
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], data[i])
		}
	}

	// The source slice is copied, not retained.
	data[0] = 99
	if a.AsFloat32()[0] == 99 {
		t.Error("FromSlice should copy the data")
	}
}

func TestFromSliceLengthMismatch(t *testing.T) {
	if _, err := FromSlice([]int32{1, 2, 3}, Shape{2, 2}); err == nil {
		t.Error("FromSlice with mismatched length should fail")
	}
}

func TestViewIsStrided(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	defer a.Release()

	// Column view: elements 1, 4.
	v := a.View(Shape{2}, []int{3}, 1)
	defer v.Release()

	if v.Layout() != Strided {
		t.Errorf("view layout = %v, want strided", v.Layout())
	}
	if v.Layout().Contiguous() {
		t.Error("strided view must not be contiguous")
	}
}

func TestCopyContiguousFromView(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	defer a.Release()

	// Second column of the 2x3 matrix: 2, 5.
	v := a.View(Shape{2}, []int{3}, 1)
	defer v.Release()

	cp, err := CopyContiguous(v)
	if err != nil {
		t.Fatalf("CopyContiguous failed: %v", err)
	}
	defer cp.Release()

	if cp.Layout() != RowMajor {
		t.Errorf("copy layout = %v, want row-major", cp.Layout())
	}
	got := cp.AsFloat64()
	if got[0] != 2 || got[1] != 5 {
		t.Errorf("copy = %v, want [2 5]", got)
	}
}

func TestCopyContiguousRowMajor(t *testing.T) {
	a, _ := FromSlice([]int32{1, 2, 3, 4}, Shape{2, 2})
	defer a.Release()

	cp, err := CopyContiguous(a)
	if err != nil {
		t.Fatalf("CopyContiguous failed: %v", err)
	}
	defer cp.Release()

	got := cp.AsInt32()
	for i, want := range []int32{1, 2, 3, 4} {
		if got[i] != want {
			t.Errorf("element %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestViewSharesBuffer(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{4})
	v := a.View(Shape{2}, []int{2}, 0)

	// Releasing the parent keeps the buffer alive through the view.
	a.Release()
	cp, err := CopyContiguous(v)
	if err != nil {
		t.Fatalf("CopyContiguous after parent release failed: %v", err)
	}
	got := cp.AsFloat32()
	if got[0] != 1 || got[1] != 3 {
		t.Errorf("copy = %v, want [1 3]", got)
	}
	cp.Release()
	v.Release()
}

func TestDataPanicsOnStrided(t *testing.T) {
	a, _ := FromSlice([]float64{1, 2, 3, 4}, Shape{4})
	defer a.Release()
	v := a.View(Shape{2}, []int{2}, 0)
	defer v.Release()

	defer func() {
		if recover() == nil {
			t.Error("Data on strided array should panic")
		}
	}()
	_ = v.Data()
}

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dt   DataType
		want int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Int64, 8},
		{Uint32, 4},
		{Uint64, 8},
	}
	for _, tt := range tests {
		if got := tt.dt.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.dt, got, tt.want)
		}
	}
}
