package ops

import "github.com/kino-ml/kino/internal/tensor"

// SqrtOp records y = sqrt(x).
//
// dy/dx = 1/(2*sqrt(x)) = 0.5/y, expressed through the output.
type SqrtOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

func NewSqrtOp(input, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{input: input, output: output}
}

func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := backend.Div(outputGrad, op.output)
	grad = backend.MulScalar(grad, 0.5)
	return []*tensor.RawTensor{grad}
}

func (op *SqrtOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *SqrtOp) Output() *tensor.RawTensor   { return op.output }

// RsqrtOp records y = 1/sqrt(x).
//
// dy/dx = -0.5 * x^(-3/2) = -0.5 * y³.
type RsqrtOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

func NewRsqrtOp(input, output *tensor.RawTensor) *RsqrtOp {
	return &RsqrtOp{input: input, output: output}
}

func (op *RsqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	cubed := backend.Mul(backend.Mul(op.output, op.output), op.output)
	grad := backend.Mul(outputGrad, cubed)
	grad = backend.MulScalar(grad, -0.5)
	return []*tensor.RawTensor{grad}
}

func (op *RsqrtOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *RsqrtOp) Output() *tensor.RawTensor   { return op.output }
