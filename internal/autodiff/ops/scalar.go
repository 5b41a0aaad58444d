package ops

import "github.com/kino-ml/kino/internal/tensor"

// MulScalarOp records output = x * s. The gradient scales by s.
type MulScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

func NewMulScalarOp(input, output *tensor.RawTensor, scalar any) *MulScalarOp {
	return &MulScalarOp{input: input, output: output, scalar: scalar}
}

func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *MulScalarOp) Output() *tensor.RawTensor   { return op.output }

// DivScalarOp records output = x / s. The gradient scales by 1/s.
type DivScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

func NewDivScalarOp(input, output *tensor.RawTensor, scalar any) *DivScalarOp {
	return &DivScalarOp{input: input, output: output, scalar: scalar}
}

func (op *DivScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.DivScalar(outputGrad, op.scalar)}
}

func (op *DivScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *DivScalarOp) Output() *tensor.RawTensor   { return op.output }

// ShiftScalarOp records output = x + s or x - s. Either way the gradient
// passes through unchanged.
type ShiftScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

func NewShiftScalarOp(input, output *tensor.RawTensor) *ShiftScalarOp {
	return &ShiftScalarOp{input: input, output: output}
}

func (op *ShiftScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

func (op *ShiftScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *ShiftScalarOp) Output() *tensor.RawTensor   { return op.output }
