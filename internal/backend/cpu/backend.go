// Package cpu implements the pure-Go CPU backend for the Kino ML framework.
package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/parallel"
	"github.com/kino-ml/kino/internal/tensor"
)

// CPUBackend implements tensor operations on the CPU. Convolution and
// pooling loops fan out over batch x channel planes via the parallel
// package.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// NewSequential creates a CPU backend with parallelism disabled.
// Deterministic single-goroutine execution, useful in tests.
func NewSequential() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.Config{},
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	switch a.DType() {
	case tensor.Float32:
		return binaryOp(cpu, "add", a, b, func(x, y float32) float32 { return x + y })
	case tensor.Float64:
		return binaryOp(cpu, "add", a, b, func(x, y float64) float64 { return x + y })
	case tensor.Int32:
		return binaryOp(cpu, "add", a, b, func(x, y int32) int32 { return x + y })
	default:
		panic(fmt.Sprintf("add: unsupported dtype %s", a.DType()))
	}
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	switch a.DType() {
	case tensor.Float32:
		return binaryOp(cpu, "sub", a, b, func(x, y float32) float32 { return x - y })
	case tensor.Float64:
		return binaryOp(cpu, "sub", a, b, func(x, y float64) float64 { return x - y })
	case tensor.Int32:
		return binaryOp(cpu, "sub", a, b, func(x, y int32) int32 { return x - y })
	default:
		panic(fmt.Sprintf("sub: unsupported dtype %s", a.DType()))
	}
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	switch a.DType() {
	case tensor.Float32:
		return binaryOp(cpu, "mul", a, b, func(x, y float32) float32 { return x * y })
	case tensor.Float64:
		return binaryOp(cpu, "mul", a, b, func(x, y float64) float64 { return x * y })
	case tensor.Int32:
		return binaryOp(cpu, "mul", a, b, func(x, y int32) int32 { return x * y })
	default:
		panic(fmt.Sprintf("mul: unsupported dtype %s", a.DType()))
	}
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	switch a.DType() {
	case tensor.Float32:
		return binaryOp(cpu, "div", a, b, func(x, y float32) float32 { return x / y })
	case tensor.Float64:
		return binaryOp(cpu, "div", a, b, func(x, y float64) float64 { return x / y })
	case tensor.Int32:
		return binaryOp(cpu, "div", a, b, func(x, y int32) int32 { return x / y })
	default:
		panic(fmt.Sprintf("div: unsupported dtype %s", a.DType()))
	}
}
