package ops

import "github.com/kino-ml/kino/internal/tensor"

// AvgPool3DOp records a 3D average pooling. The backward pass spreads
// each output gradient uniformly over its window.
type AvgPool3DOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	kernel [3]int
	stride [3]int
}

func NewAvgPool3DOp(input, output *tensor.RawTensor, kernel, stride [3]int) *AvgPool3DOp {
	return &AvgPool3DOp{input: input, output: output, kernel: kernel, stride: stride}
}

func (op *AvgPool3DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.AvgPool3DBackward(op.input, outputGrad, op.kernel, op.stride)}
}

func (op *AvgPool3DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *AvgPool3DOp) Output() *tensor.RawTensor   { return op.output }
