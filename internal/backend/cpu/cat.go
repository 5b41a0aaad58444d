package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// Cat concatenates tensors along the given dimension. All inputs must
// share dtype and every dimension except the concatenated one.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors to concatenate")
	}

	first := tensors[0]
	ndim := len(first.Shape())
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: invalid dim %d for %dD tensor", dim, ndim))
	}

	catSize := 0
	for i, t := range tensors {
		shape := t.Shape()
		if len(shape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dims, want %d", i, len(shape), ndim))
		}
		if t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, want %s", i, t.DType(), first.DType()))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && shape[d] != first.Shape()[d] {
				panic(fmt.Sprintf("cat: tensor %d shape %v incompatible with %v along dim %d",
					i, shape, first.Shape(), dim))
			}
		}
		catSize += shape[dim]
	}

	outShape := first.Shape().Clone()
	outShape[dim] = catSize
	result, err := tensor.NewRaw(outShape, first.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// Dtype-agnostic byte copy: each tensor contributes one contiguous
	// chunk per outer index.
	elemSize := first.DType().Size()
	inner := elemSize
	for d := dim + 1; d < ndim; d++ {
		inner *= outShape[d]
	}
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= outShape[d]
	}

	out := result.Data()
	outStride := catSize * inner

	offset := 0
	for _, t := range tensors {
		chunk := t.Shape()[dim] * inner
		src := t.Data()
		for o := 0; o < outer; o++ {
			copy(out[o*outStride+offset:o*outStride+offset+chunk], src[o*chunk:(o+1)*chunk])
		}
		offset += chunk
	}

	return result
}
