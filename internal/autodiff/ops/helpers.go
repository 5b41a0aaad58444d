package ops

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// reduceBroadcast reduces a gradient to the shape of a forward-pass
// input that was broadcast. Dimensions the input did not have are summed
// away; size-1 dimensions are summed with keepDim.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		// Clone so gradient accumulation cannot alias the tape's copy.
		return grad.Clone()
	}

	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	shape := result.Shape()
	for i := 0; i < len(targetShape); i++ {
		if targetShape[i] == 1 && shape[i] > 1 {
			result = backend.SumDim(result, i, true)
			shape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// broadcastTo expands a gradient to a larger shape by adding a zero
// tensor of the target shape; the backend's broadcasting does the work.
func broadcastTo(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}
	return backend.Add(grad, zerosRaw(targetShape, grad.DType(), backend.Device()))
}

// unsqueezeDim reinserts a reduced dimension as size 1 so the gradient
// broadcasts against the original input shape.
func unsqueezeDim(grad *tensor.RawTensor, dim int, inputShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if dim < 0 {
		dim += len(inputShape)
	}
	newShape := inputShape.Clone()
	newShape[dim] = 1
	return backend.Reshape(grad, newShape)
}

func zerosRaw(shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("autodiff: failed to create zeros: %v", err))
	}
	return raw
}
