package ops

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// MaxPool3DOp records a 3D max pooling. The forward pass's winning
// positions are recomputed here as flat input indices; the backward pass
// scatters the output gradient through them.
type MaxPool3DOp struct {
	input      *tensor.RawTensor
	output     *tensor.RawTensor
	maxIndices []int
}

func NewMaxPool3DOp(input, output *tensor.RawTensor, kernel, stride, padding [3]int) *MaxPool3DOp {
	return &MaxPool3DOp{
		input:      input,
		output:     output,
		maxIndices: computeMaxIndices(input, output, kernel, stride, padding),
	}
}

func (op *MaxPool3DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MaxPool3DBackward(op.input, outputGrad, op.maxIndices)}
}

func (op *MaxPool3DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *MaxPool3DOp) Output() *tensor.RawTensor   { return op.output }

// computeMaxIndices finds, for every output element, the flat index of
// the input element that produced the max. Padded positions cannot win.
func computeMaxIndices(input, output *tensor.RawTensor, kernel, stride, padding [3]int) []int {
	switch input.DType() {
	case tensor.Float32:
		return maxIndices(input.AsFloat32(), input.Shape(), output.Shape(), kernel, stride, padding)
	case tensor.Float64:
		return maxIndices(input.AsFloat64(), input.Shape(), output.Shape(), kernel, stride, padding)
	default:
		panic(fmt.Sprintf("maxpool3d: unsupported dtype %s", input.DType()))
	}
}

func maxIndices[T float32 | float64](in []T, inShape, outShape tensor.Shape, kernel, stride, padding [3]int) []int {
	n, c, d, h, w := inShape[0], inShape[1], inShape[2], inShape[3], inShape[4]
	dOut, hOut, wOut := outShape[2], outShape[3], outShape[4]

	indices := make([]int, outShape.NumElements())
	inVolume := d * h * w

	oi := 0
	for ni := 0; ni < n; ni++ {
		for ci := 0; ci < c; ci++ {
			base := (ni*c + ci) * inVolume

			for od := 0; od < dOut; od++ {
				dStart := od*stride[0] - padding[0]
				for oh := 0; oh < hOut; oh++ {
					hStart := oh*stride[1] - padding[1]
					for ow := 0; ow < wOut; ow++ {
						wStart := ow*stride[2] - padding[2]

						bestIdx := -1
						var bestVal T
						for kd := 0; kd < kernel[0]; kd++ {
							di := dStart + kd
							if di < 0 || di >= d {
								continue
							}
							for kh := 0; kh < kernel[1]; kh++ {
								hi := hStart + kh
								if hi < 0 || hi >= h {
									continue
								}
								for kw := 0; kw < kernel[2]; kw++ {
									wi := wStart + kw
									if wi < 0 || wi >= w {
										continue
									}
									idx := base + (di*h+hi)*w + wi
									if bestIdx < 0 || in[idx] > bestVal {
										bestIdx = idx
										bestVal = in[idx]
									}
								}
							}
						}
						indices[oi] = bestIdx
						oi++
					}
				}
			}
		}
	}

	return indices
}
