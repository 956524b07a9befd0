// Package array provides the operand model for the lowering layer: shapes,
// element types, memory layouts, and reference-counted array descriptors.
package array

// Element is a constraint for supported array element types.
type Element interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint32 | ~uint64
}

// DataType represents runtime type information for arrays.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint32
	Uint64
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns the element-type name used in backend symbol keys.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	default:
		return "unknown"
	}
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T Element](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	default:
		panic("unsupported type")
	}
}
