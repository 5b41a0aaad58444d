package ops

import "github.com/kino-ml/kino/internal/tensor"

// Conv3DOp records a 3D convolution. Both gradients delegate to the
// backend: the input gradient is a transposed convolution of the output
// gradient with the kernel, the kernel gradient a correlation of the
// input with the output gradient.
type Conv3DOp struct {
	input   *tensor.RawTensor
	kernel  *tensor.RawTensor
	output  *tensor.RawTensor
	stride  [3]int
	padding [3]int
}

func NewConv3DOp(input, kernel, output *tensor.RawTensor, stride, padding [3]int) *Conv3DOp {
	return &Conv3DOp{
		input:   input,
		kernel:  kernel,
		output:  output,
		stride:  stride,
		padding: padding,
	}
}

func (op *Conv3DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputGrad := backend.Conv3DInputBackward(op.input, op.kernel, outputGrad, op.stride, op.padding)
	kernelGrad := backend.Conv3DKernelBackward(op.input, op.kernel, outputGrad, op.stride, op.padding)
	return []*tensor.RawTensor{inputGrad, kernelGrad}
}

func (op *Conv3DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}

func (op *Conv3DOp) Output() *tensor.RawTensor { return op.output }
