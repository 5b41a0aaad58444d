package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// Sum reduces the whole tensor to a single-element tensor of shape [1].
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumAll(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumAll(x.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = sumAll(x.AsInt32())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

func sumAll[T tensor.DType](data []T) T {
	var sum T
	for _, v := range data {
		sum += v
	}
	return sum
}

// SumDim sums along one dimension. With keepDim the reduced dimension
// stays as size 1, otherwise it is removed.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	outShape, outer, dimSize, inner := reduceGeom(x.Shape(), dim, keepDim)

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum_dim: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		sumDim(result.AsFloat32(), x.AsFloat32(), outer, dimSize, inner)
	case tensor.Float64:
		sumDim(result.AsFloat64(), x.AsFloat64(), outer, dimSize, inner)
	case tensor.Int32:
		sumDim(result.AsInt32(), x.AsInt32(), outer, dimSize, inner)
	default:
		panic(fmt.Sprintf("sum_dim: unsupported dtype %s", x.DType()))
	}

	return result
}

// MeanDim averages along one dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("mean_dim: invalid dim %d for %dD tensor", dim, len(shape)))
	}

	result := cpu.SumDim(x, dim, keepDim)
	n := shape[dim]

	switch result.DType() {
	case tensor.Float32:
		data := result.AsFloat32()
		inv := 1.0 / float32(n)
		for i := range data {
			data[i] *= inv
		}
	case tensor.Float64:
		data := result.AsFloat64()
		inv := 1.0 / float64(n)
		for i := range data {
			data[i] *= inv
		}
	default:
		panic(fmt.Sprintf("mean_dim: unsupported dtype %s", result.DType()))
	}

	return result
}

// Argmax returns the index of the maximum value along a dimension as an
// Int32 tensor with that dimension removed.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	outShape, outer, dimSize, inner := reduceGeom(x.Shape(), dim, false)

	result, err := tensor.NewRaw(outShape, tensor.Int32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("argmax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		argmaxDim(result.AsInt32(), x.AsFloat32(), outer, dimSize, inner)
	case tensor.Float64:
		argmaxDim(result.AsInt32(), x.AsFloat64(), outer, dimSize, inner)
	case tensor.Int32:
		argmaxDim(result.AsInt32(), x.AsInt32(), outer, dimSize, inner)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}

	return result
}

// reduceGeom splits a shape around the reduced dimension: outer is the
// product of dimensions before it, inner the product after.
func reduceGeom(shape tensor.Shape, dim int, keepDim bool) (tensor.Shape, int, int, int) {
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("reduce: invalid dim %d for %dD tensor", dim, len(shape)))
	}

	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, len(shape)-1)
		outShape = append(outShape, shape[:dim]...)
		outShape = append(outShape, shape[dim+1:]...)
		if len(outShape) == 0 {
			outShape = tensor.Shape{1}
		}
	}

	return outShape, outer, shape[dim], inner
}

func sumDim[T tensor.DType](out, in []T, outer, dimSize, inner int) {
	for o := 0; o < outer; o++ {
		outBase := o * inner
		for k := 0; k < dimSize; k++ {
			inBase := (o*dimSize + k) * inner
			for i := 0; i < inner; i++ {
				out[outBase+i] += in[inBase+i]
			}
		}
	}
}

func argmaxDim[T tensor.DType](out []int32, in []T, outer, dimSize, inner int) {
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			best := in[o*dimSize*inner+i]
			bestIdx := int32(0)
			for k := 1; k < dimSize; k++ {
				v := in[(o*dimSize+k)*inner+i]
				if v > best {
					best = v
					bestIdx = int32(k)
				}
			}
			out[o*inner+i] = bestIdx
		}
	}
}
