package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// MaxPool3DBackward routes each output gradient value to the input
// position that produced the max. maxIndices holds one flat input index
// per output element, as computed by the forward pass.
//
// Gradients accumulate: overlapping windows can select the same input
// position more than once.
func (cpu *CPUBackend) MaxPool3DBackward(input, grad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	if len(maxIndices) != grad.NumElements() {
		panic(fmt.Sprintf("maxpool3d: maxIndices length %d != output elements %d",
			len(maxIndices), grad.NumElements()))
	}

	inputGrad, err := tensor.NewRaw(input.Shape(), grad.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool3d: failed to create input gradient: %v", err))
	}

	switch grad.DType() {
	case tensor.Float32:
		maxPool3dBackward(inputGrad.AsFloat32(), grad.AsFloat32(), maxIndices)
	case tensor.Float64:
		maxPool3dBackward(inputGrad.AsFloat64(), grad.AsFloat64(), maxIndices)
	default:
		panic(fmt.Sprintf("maxpool3d: unsupported dtype %s", grad.DType()))
	}

	return inputGrad
}

func maxPool3dBackward[T float32 | float64](inputGrad, grad []T, maxIndices []int) {
	// Scatter is sequential: different output positions can hit the same
	// input index, so a parallel version would race on the accumulation.
	for i, g := range grad {
		inputGrad[maxIndices[i]] += g
	}
}
