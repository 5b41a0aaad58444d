package cpu

import (
	"fmt"

	"github.com/kino-ml/kino/internal/parallel"
	"github.com/kino-ml/kino/internal/tensor"
)

// Conv3DInputBackward computes the gradient with respect to the input:
// each output gradient value is scattered back through the kernel onto
// the input positions its receptive field covered (transposed
// convolution). Batch items are independent and run in parallel.
func (cpu *CPUBackend) Conv3DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding [3]int) *tensor.RawTensor {
	g := backwardGeom(input, kernel, grad, stride, padding)

	inputGrad, err := tensor.NewRaw(input.Shape(), grad.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv3d: failed to create input gradient: %v", err))
	}

	switch grad.DType() {
	case tensor.Float32:
		conv3dInputBackward(cpu, inputGrad.AsFloat32(), grad.AsFloat32(), kernel.AsFloat32(), g)
	case tensor.Float64:
		conv3dInputBackward(cpu, inputGrad.AsFloat64(), grad.AsFloat64(), kernel.AsFloat64(), g)
	default:
		panic(fmt.Sprintf("conv3d: unsupported dtype %s", grad.DType()))
	}

	return inputGrad
}

// Conv3DKernelBackward computes the gradient with respect to the kernel:
// the correlation of the input with the output gradient. Output channels
// are independent and run in parallel.
func (cpu *CPUBackend) Conv3DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding [3]int) *tensor.RawTensor {
	g := backwardGeom(input, kernel, grad, stride, padding)

	kernelGrad, err := tensor.NewRaw(kernel.Shape(), grad.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv3d: failed to create kernel gradient: %v", err))
	}

	switch grad.DType() {
	case tensor.Float32:
		conv3dKernelBackward(cpu, kernelGrad.AsFloat32(), input.AsFloat32(), grad.AsFloat32(), g)
	case tensor.Float64:
		conv3dKernelBackward(cpu, kernelGrad.AsFloat64(), input.AsFloat64(), grad.AsFloat64(), g)
	default:
		panic(fmt.Sprintf("conv3d: unsupported dtype %s", grad.DType()))
	}

	return kernelGrad
}

func backwardGeom(input, kernel, grad *tensor.RawTensor, stride, padding [3]int) conv3dGeom {
	inShape, kShape, gShape := input.Shape(), kernel.Shape(), grad.Shape()
	return conv3dGeom{
		n: inShape[0], cin: inShape[1], d: inShape[2], h: inShape[3], w: inShape[4],
		cout: kShape[0], kd: kShape[2], kh: kShape[3], kw: kShape[4],
		dOut: gShape[2], hOut: gShape[3], wOut: gShape[4],
		stride: stride, padding: padding,
	}
}

func conv3dInputBackward[T float32 | float64](cpu *CPUBackend, inputGrad, grad, ker []T, g conv3dGeom) {
	sd, sh, sw := g.stride[0], g.stride[1], g.stride[2]
	pd, ph, pw := g.padding[0], g.padding[1], g.padding[2]
	kv := g.kernelVol()

	parallel.For(g.n, func(n int) {
		igBatch := inputGrad[n*g.cin*g.inVolume() : (n+1)*g.cin*g.inVolume()]
		gradBatch := grad[n*g.cout*g.outVolume() : (n+1)*g.cout*g.outVolume()]

		for cout := 0; cout < g.cout; cout++ {
			kerCout := ker[cout*g.cin*kv : (cout+1)*g.cin*kv]
			gradPlane := gradBatch[cout*g.outVolume() : (cout+1)*g.outVolume()]

			gi := 0
			for od := 0; od < g.dOut; od++ {
				for oh := 0; oh < g.hOut; oh++ {
					for ow := 0; ow < g.wOut; ow++ {
						gv := gradPlane[gi]
						gi++
						if gv == 0 {
							continue
						}

						for cin := 0; cin < g.cin; cin++ {
							igChan := igBatch[cin*g.inVolume() : (cin+1)*g.inVolume()]
							kerChan := kerCout[cin*kv : (cin+1)*kv]

							ki := 0
							for kd := 0; kd < g.kd; kd++ {
								d := od*sd - pd + kd
								for kh := 0; kh < g.kh; kh++ {
									h := oh*sh - ph + kh
									inBounds := d >= 0 && d < g.d && h >= 0 && h < g.h
									for kw := 0; kw < g.kw; kw++ {
										w := ow*sw - pw + kw
										if inBounds && w >= 0 && w < g.w {
											igChan[(d*g.h+h)*g.w+w] += gv * kerChan[ki]
										}
										ki++
									}
								}
							}
						}
					}
				}
			}
		}
	}, cpu.parallel)
}

func conv3dKernelBackward[T float32 | float64](cpu *CPUBackend, kernelGrad, in, grad []T, g conv3dGeom) {
	sd, sh, sw := g.stride[0], g.stride[1], g.stride[2]
	pd, ph, pw := g.padding[0], g.padding[1], g.padding[2]
	kv := g.kernelVol()

	parallel.For(g.cout, func(cout int) {
		kgCout := kernelGrad[cout*g.cin*kv : (cout+1)*g.cin*kv]

		for n := 0; n < g.n; n++ {
			inBatch := in[n*g.cin*g.inVolume() : (n+1)*g.cin*g.inVolume()]
			gradPlane := grad[(n*g.cout+cout)*g.outVolume() : (n*g.cout+cout+1)*g.outVolume()]

			gi := 0
			for od := 0; od < g.dOut; od++ {
				for oh := 0; oh < g.hOut; oh++ {
					for ow := 0; ow < g.wOut; ow++ {
						gv := gradPlane[gi]
						gi++
						if gv == 0 {
							continue
						}

						for cin := 0; cin < g.cin; cin++ {
							inChan := inBatch[cin*g.inVolume() : (cin+1)*g.inVolume()]
							kgChan := kgCout[cin*kv : (cin+1)*kv]

							ki := 0
							for kd := 0; kd < g.kd; kd++ {
								d := od*sd - pd + kd
								for kh := 0; kh < g.kh; kh++ {
									h := oh*sh - ph + kh
									inBounds := d >= 0 && d < g.d && h >= 0 && h < g.h
									for kw := 0; kw < g.kw; kw++ {
										w := ow*sw - pw + kw
										if inBounds && w >= 0 && w < g.w {
											kgChan[ki] += gv * inChan[(d*g.h+h)*g.w+w]
										}
										ki++
									}
								}
							}
						}
					}
				}
			}
		}
	}, cpu.parallel)
}
