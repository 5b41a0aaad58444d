package cpu

import (
	"fmt"
	"math"

	"github.com/kino-ml/kino/internal/tensor"
)

// ReLU clamps negative values to zero.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		return unaryOp(cpu, "relu", x, func(v float32) float32 {
			if v < 0 {
				return 0
			}
			return v
		})
	case tensor.Float64:
		return unaryOp(cpu, "relu", x, func(v float64) float64 {
			if v < 0 {
				return 0
			}
			return v
		})
	case tensor.Int32:
		return unaryOp(cpu, "relu", x, func(v int32) int32 {
			if v < 0 {
				return 0
			}
			return v
		})
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		return unaryOp(cpu, "sqrt", x, func(v float32) float32 { return float32(math.Sqrt(float64(v))) })
	case tensor.Float64:
		return unaryOp(cpu, "sqrt", x, math.Sqrt)
	default:
		panic(fmt.Sprintf("sqrt: unsupported dtype %s", x.DType()))
	}
}

// Rsqrt computes the element-wise reciprocal square root, 1/sqrt(x).
// Batch normalization uses it to scale by the inverse standard deviation.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	switch x.DType() {
	case tensor.Float32:
		return unaryOp(cpu, "rsqrt", x, func(v float32) float32 { return float32(1.0 / math.Sqrt(float64(v))) })
	case tensor.Float64:
		return unaryOp(cpu, "rsqrt", x, func(v float64) float64 { return 1.0 / math.Sqrt(v) })
	default:
		panic(fmt.Sprintf("rsqrt: unsupported dtype %s", x.DType()))
	}
}
