// Package tensor provides the core tensor types for the Kino ML framework.
package tensor

// DType is the generic constraint for supported tensor element types.
//
// Video volumes and model parameters are float32 or float64; int32 is used
// for index results (argmax, labels).
type DType interface {
	~float32 | ~float64 | ~int32
}

// DataType carries runtime type information for a RawTensor.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
	Int32
)

// Size returns the element size in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns the Go name of the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// inferDataType maps a generic element type onto its DataType tag.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	default:
		panic("unsupported type")
	}
}
