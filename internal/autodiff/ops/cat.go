package ops

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// CatOp records a concatenation along one dimension. The backward pass
// slices the output gradient back apart at the input boundaries.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
	sizes  []int
}

func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	sizes := make([]int, len(inputs))
	for i, in := range inputs {
		sizes[i] = in.Shape()[dim]
	}
	return &CatOp{inputs: inputs, output: output, dim: dim, sizes: sizes}
}

func (op *CatOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	gradShape := outputGrad.Shape()
	ndim := len(gradShape)

	elemSize := outputGrad.DType().Size()
	inner := elemSize
	for d := op.dim + 1; d < ndim; d++ {
		inner *= gradShape[d]
	}
	outer := 1
	for d := 0; d < op.dim; d++ {
		outer *= gradShape[d]
	}
	outStride := gradShape[op.dim] * inner

	src := outputGrad.Data()
	grads := make([]*tensor.RawTensor, len(op.inputs))

	offset := 0
	for i, in := range op.inputs {
		grad, err := tensor.NewRaw(in.Shape(), outputGrad.DType(), outputGrad.Device())
		if err != nil {
			panic(fmt.Sprintf("cat: failed to create gradient: %v", err))
		}
		chunk := op.sizes[i] * inner
		dst := grad.Data()
		for o := 0; o < outer; o++ {
			copy(dst[o*chunk:(o+1)*chunk], src[o*outStride+offset:o*outStride+offset+chunk])
		}
		grads[i] = grad
		offset += chunk
	}

	return grads
}

func (op *CatOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *CatOp) Output() *tensor.RawTensor   { return op.output }
