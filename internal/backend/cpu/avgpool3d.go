package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/parallel"
	"github.com/kino-ml/kino/internal/tensor"
)

// AvgPool3D averages over kernel windows. Unlike max pooling there is no
// padding: the windows must tile inside the input. A 1x1x1 kernel with
// stride s reduces to a strided subsample.
func (cpu *CPUBackend) AvgPool3D(input *tensor.RawTensor, kernel, stride [3]int) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 5 {
		panic(fmt.Sprintf("avgpool3d: input must be 5D [N, C, D, H, W], got %v", shape))
	}

	n, c, d, h, w := shape[0], shape[1], shape[2], shape[3], shape[4]
	dOut := (d-kernel[0])/stride[0] + 1
	hOut := (h-kernel[1])/stride[1] + 1
	wOut := (w-kernel[2])/stride[2] + 1
	if dOut <= 0 || hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("avgpool3d: invalid output size %dx%dx%d for input %v kernel %v stride %v",
			dOut, hOut, wOut, shape, kernel, stride))
	}

	outShape := tensor.Shape{n, c, dOut, hOut, wOut}
	output, err := tensor.NewRaw(outShape, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("avgpool3d: failed to create output: %v", err))
	}

	g := poolGeom{
		n: n, c: c, d: d, h: h, w: w,
		dOut: dOut, hOut: hOut, wOut: wOut,
		kernel: kernel, stride: stride,
	}

	switch input.DType() {
	case tensor.Float32:
		avgPool3dForward(cpu, output.AsFloat32(), input.AsFloat32(), g)
	case tensor.Float64:
		avgPool3dForward(cpu, output.AsFloat64(), input.AsFloat64(), g)
	default:
		panic(fmt.Sprintf("avgpool3d: unsupported dtype %s", input.DType()))
	}

	return output
}

// AvgPool3DBackward spreads each output gradient uniformly over the
// window it averaged.
func (cpu *CPUBackend) AvgPool3DBackward(input, grad *tensor.RawTensor, kernel, stride [3]int) *tensor.RawTensor {
	inShape, gShape := input.Shape(), grad.Shape()

	inputGrad, err := tensor.NewRaw(inShape, grad.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("avgpool3d: failed to create input gradient: %v", err))
	}

	g := poolGeom{
		n: inShape[0], c: inShape[1], d: inShape[2], h: inShape[3], w: inShape[4],
		dOut: gShape[2], hOut: gShape[3], wOut: gShape[4],
		kernel: kernel, stride: stride,
	}

	switch grad.DType() {
	case tensor.Float32:
		avgPool3dBackward(cpu, inputGrad.AsFloat32(), grad.AsFloat32(), g)
	case tensor.Float64:
		avgPool3dBackward(cpu, inputGrad.AsFloat64(), grad.AsFloat64(), g)
	default:
		panic(fmt.Sprintf("avgpool3d: unsupported dtype %s", grad.DType()))
	}

	return inputGrad
}

func avgPool3dForward[T float32 | float64](cpu *CPUBackend, out, in []T, g poolGeom) {
	windowSize := T(g.kernel[0] * g.kernel[1] * g.kernel[2])

	parallel.ForPlanes(g.n, g.c, func(n, c int) {
		plane := in[(n*g.c+c)*g.inVolume() : (n*g.c+c+1)*g.inVolume()]
		outPlane := out[(n*g.c+c)*g.outVolume() : (n*g.c+c+1)*g.outVolume()]

		oi := 0
		for od := 0; od < g.dOut; od++ {
			dStart := od * g.stride[0]
			for oh := 0; oh < g.hOut; oh++ {
				hStart := oh * g.stride[1]
				for ow := 0; ow < g.wOut; ow++ {
					wStart := ow * g.stride[2]

					var sum T
					for kd := 0; kd < g.kernel[0]; kd++ {
						for kh := 0; kh < g.kernel[1]; kh++ {
							row := ((dStart+kd)*g.h + hStart + kh) * g.w
							for kw := 0; kw < g.kernel[2]; kw++ {
								sum += plane[row+wStart+kw]
							}
						}
					}
					outPlane[oi] = sum / windowSize
					oi++
				}
			}
		}
	}, cpu.parallel)
}

func avgPool3dBackward[T float32 | float64](cpu *CPUBackend, inputGrad, grad []T, g poolGeom) {
	windowSize := T(g.kernel[0] * g.kernel[1] * g.kernel[2])

	parallel.ForPlanes(g.n, g.c, func(n, c int) {
		igPlane := inputGrad[(n*g.c+c)*g.inVolume() : (n*g.c+c+1)*g.inVolume()]
		gradPlane := grad[(n*g.c+c)*g.outVolume() : (n*g.c+c+1)*g.outVolume()]

		oi := 0
		for od := 0; od < g.dOut; od++ {
			dStart := od * g.stride[0]
			for oh := 0; oh < g.hOut; oh++ {
				hStart := oh * g.stride[1]
				for ow := 0; ow < g.wOut; ow++ {
					wStart := ow * g.stride[2]
					share := gradPlane[oi] / windowSize
					oi++

					for kd := 0; kd < g.kernel[0]; kd++ {
						for kh := 0; kh < g.kernel[1]; kh++ {
							row := ((dStart+kd)*g.h + hStart + kh) * g.w
							for kw := 0; kw < g.kernel[2]; kw++ {
								igPlane[row+wStart+kw] += share
							}
						}
					}
				}
			}
		}
	}, cpu.parallel)
}
