package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("mul_scalar", x, scalar, func(a, s float64) float64 { return a * s })
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("add_scalar", x, scalar, func(a, s float64) float64 { return a + s })
}

// SubScalar subtracts a scalar from every element.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("sub_scalar", x, scalar, func(a, s float64) float64 { return a - s })
}

// DivScalar divides every element by a scalar.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := toFloat64(x.DType(), scalar)
	if s == 0 {
		panic("div_scalar: division by zero")
	}
	return cpu.scalarOp("div_scalar", x, scalar, func(a, s float64) float64 { return a / s })
}

func (cpu *CPUBackend) scalarOp(name string, x *tensor.RawTensor, scalar any, op func(a, s float64) float64) *tensor.RawTensor {
	s := toFloat64(x.DType(), scalar)

	switch x.DType() {
	case tensor.Float32:
		return unaryOp(cpu, name, x, func(v float32) float32 { return float32(op(float64(v), s)) })
	case tensor.Float64:
		return unaryOp(cpu, name, x, func(v float64) float64 { return op(v, s) })
	case tensor.Int32:
		return unaryOp(cpu, name, x, func(v int32) int32 { return int32(op(float64(v), s)) })
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
}

// toFloat64 widens the accepted scalar types. The tensor dtype is only
// used for the error message.
func toFloat64(dtype tensor.DataType, scalar any) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int:
		return float64(s)
	case int32:
		return float64(s)
	case int64:
		return float64(s)
	default:
		panic(fmt.Sprintf("scalar op on %s tensor: unsupported scalar type %T", dtype, scalar))
	}
}
