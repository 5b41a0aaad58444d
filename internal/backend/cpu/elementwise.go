package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// dataOf returns a typed view of a RawTensor's memory.
func dataOf[T tensor.DType](r *tensor.RawTensor) []T {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return any(r.AsFloat32()).([]T)
	case float64:
		return any(r.AsFloat64()).([]T)
	case int32:
		return any(r.AsInt32()).([]T)
	default:
		panic("unsupported type")
	}
}

// binaryOp applies op element-wise over a and b with broadcasting.
//
// Same-shape operands take a vectorized path; when a holds the only
// reference to its buffer the result is written into a in place.
func binaryOp[T tensor.DType](cpu *CPUBackend, name string, a, b *tensor.RawTensor, op func(T, T) T) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			ad, bd := dataOf[T](a), dataOf[T](b)
			for i := range ad {
				ad[i] = op(ad[i], bd[i])
			}
			return a
		}

		result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
		if err != nil {
			panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
		}
		rd, ad, bd := dataOf[T](result), dataOf[T](a), dataOf[T](b)
		for i := range rd {
			rd[i] = op(ad[i], bd[i])
		}
		return result
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}
	broadcastBinary(dataOf[T](result), dataOf[T](a), dataOf[T](b), outShape, a.Shape(), b.Shape(), op)
	return result
}

// broadcastBinary walks the output coordinate space, mapping each output
// position back to (possibly broadcast) input positions.
func broadcastBinary[T tensor.DType](out, a, b []T, outShape, aShape, bShape tensor.Shape, op func(T, T) T) {
	rank := len(outShape)
	aStrides := broadcastStrides(aShape, rank)
	bStrides := broadcastStrides(bShape, rank)

	coords := make([]int, rank)
	for i := range out {
		aIdx, bIdx := 0, 0
		for d := 0; d < rank; d++ {
			aIdx += coords[d] * aStrides[d]
			bIdx += coords[d] * bStrides[d]
		}
		out[i] = op(a[aIdx], b[bIdx])

		// Advance the output coordinate, rightmost dimension first.
		for d := rank - 1; d >= 0; d-- {
			coords[d]++
			if coords[d] < outShape[d] {
				break
			}
			coords[d] = 0
		}
	}
}

// broadcastStrides computes effective strides for reading a tensor of
// shape s as if it had the given rank: missing leading dimensions and
// size-1 dimensions get stride 0 so they repeat.
func broadcastStrides(s tensor.Shape, rank int) []int {
	strides := make([]int, rank)
	real := s.ComputeStrides()
	offset := rank - len(s)
	for d := 0; d < len(s); d++ {
		if s[d] == 1 {
			strides[offset+d] = 0
		} else {
			strides[offset+d] = real[d]
		}
	}
	return strides
}

// unaryOp applies op element-wise into a fresh tensor.
func unaryOp[T tensor.DType](cpu *CPUBackend, name string, x *tensor.RawTensor, op func(T) T) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}
	rd, xd := dataOf[T](result), dataOf[T](x)
	for i := range rd {
		rd[i] = op(xd[i])
	}
	return result
}
