package cpu

import (
	"fmt"
	"math"

	"github.com/kino-ml/kino/internal/parallel"
	"github.com/kino-ml/kino/internal/tensor"
)

// MaxPool3D pools the input [N, C, D, H, W] with the given kernel, stride
// and padding triples (depth, height, width order). Padded positions act
// as -inf so they never win the max.
func (cpu *CPUBackend) MaxPool3D(input *tensor.RawTensor, kernel, stride, padding [3]int) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 5 {
		panic(fmt.Sprintf("maxpool3d: input must be 5D [N, C, D, H, W], got %v", shape))
	}

	n, c, d, h, w := shape[0], shape[1], shape[2], shape[3], shape[4]
	dOut := (d+2*padding[0]-kernel[0])/stride[0] + 1
	hOut := (h+2*padding[1]-kernel[1])/stride[1] + 1
	wOut := (w+2*padding[2]-kernel[2])/stride[2] + 1
	if dOut <= 0 || hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("maxpool3d: invalid output size %dx%dx%d for input %v kernel %v stride %v padding %v",
			dOut, hOut, wOut, shape, kernel, stride, padding))
	}

	outShape := tensor.Shape{n, c, dOut, hOut, wOut}
	output, err := tensor.NewRaw(outShape, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool3d: failed to create output: %v", err))
	}

	g := poolGeom{
		n: n, c: c, d: d, h: h, w: w,
		dOut: dOut, hOut: hOut, wOut: wOut,
		kernel: kernel, stride: stride, padding: padding,
	}

	switch input.DType() {
	case tensor.Float32:
		maxPool3dForward(cpu, output.AsFloat32(), input.AsFloat32(), g)
	case tensor.Float64:
		maxPool3dForward(cpu, output.AsFloat64(), input.AsFloat64(), g)
	default:
		panic(fmt.Sprintf("maxpool3d: unsupported dtype %s", input.DType()))
	}

	return output
}

// poolGeom carries the dimensions shared by the pooling kernels.
type poolGeom struct {
	n, c, d, h, w    int
	dOut, hOut, wOut int
	kernel           [3]int
	stride           [3]int
	padding          [3]int
}

func (g poolGeom) inVolume() int  { return g.d * g.h * g.w }
func (g poolGeom) outVolume() int { return g.dOut * g.hOut * g.wOut }

func maxPool3dForward[T float32 | float64](cpu *CPUBackend, out, in []T, g poolGeom) {
	negInf := T(math.Inf(-1))

	parallel.ForPlanes(g.n, g.c, func(n, c int) {
		plane := in[(n*g.c+c)*g.inVolume() : (n*g.c+c+1)*g.inVolume()]
		outPlane := out[(n*g.c+c)*g.outVolume() : (n*g.c+c+1)*g.outVolume()]

		oi := 0
		for od := 0; od < g.dOut; od++ {
			dStart := od*g.stride[0] - g.padding[0]
			for oh := 0; oh < g.hOut; oh++ {
				hStart := oh*g.stride[1] - g.padding[1]
				for ow := 0; ow < g.wOut; ow++ {
					wStart := ow*g.stride[2] - g.padding[2]

					maxVal := negInf
					for kd := 0; kd < g.kernel[0]; kd++ {
						d := dStart + kd
						if d < 0 || d >= g.d {
							continue
						}
						for kh := 0; kh < g.kernel[1]; kh++ {
							h := hStart + kh
							if h < 0 || h >= g.h {
								continue
							}
							row := (d*g.h + h) * g.w
							for kw := 0; kw < g.kernel[2]; kw++ {
								w := wStart + kw
								if w < 0 || w >= g.w {
									continue
								}
								if v := plane[row+w]; v > maxVal {
									maxVal = v
								}
							}
						}
					}
					outPlane[oi] = maxVal
					oi++
				}
			}
		}
	}, cpu.parallel)
}
