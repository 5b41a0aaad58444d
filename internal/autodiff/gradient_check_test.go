package autodiff_test

import (
	"math"
	"testing"

	"github.com/kino-ml/kino/internal/autodiff"
	"github.com/kino-ml/kino/internal/backend/cpu"
	"github.com/kino-ml/kino/internal/tensor"
)

// checkGradient compares an autodiff gradient against central finite
// differences of a scalar-valued forward function.
func checkGradient(t *testing.T, name string, params []float64, forward func(p []float64) float64, analytic []float64) {
	t.Helper()

	const epsilon = 1e-5
	const tolerance = 1e-4

	for i := range params {
		orig := params[i]

		params[i] = orig + epsilon
		plus := forward(params)
		params[i] = orig - epsilon
		minus := forward(params)
		params[i] = orig

		numeric := (plus - minus) / (2 * epsilon)
		if math.Abs(numeric-analytic[i]) > tolerance {
			t.Errorf("%s: grad[%d] = %v, numerical %v", name, i, analytic[i], numeric)
		}
	}
}

func toF64(data []float64) []float64 { return append([]float64(nil), data...) }

func TestGradientCheck_Conv3D(t *testing.T) {
	backend := autodiff.New(cpu.NewSequential())
	plain := cpu.NewSequential()

	inputData := []float64{0.5, -1.2, 0.3, 2.1, -0.7, 1.4, 0.9, -0.4}
	kernelData := []float64{1.5, -0.5, 0.25, 0.75, -1.0, 0.5, 2.0, -0.25}
	inShape := tensor.Shape{1, 1, 2, 2, 2}
	kShape := tensor.Shape{1, 1, 2, 2, 2}
	stride := [3]int{1, 1, 1}
	padding := [3]int{1, 1, 1}

	backend.Tape().StartRecording()
	input, _ := tensor.FromSlice(toF64(inputData), inShape, backend)
	kernel, _ := tensor.FromSlice(toF64(kernelData), kShape, backend)

	out := backend.Conv3D(input.Raw(), kernel.Raw(), stride, padding)
	loss := tensor.New[float64](backend.Sum(out), backend)

	grads := autodiff.Backward(loss, backend)
	inputGrad := grads[input.Raw()].AsFloat64()
	kernelGrad := grads[kernel.Raw()].AsFloat64()

	lossWith := func(in, ker []float64) float64 {
		rawIn, _ := tensor.NewRaw(inShape, tensor.Float64, tensor.CPU)
		copy(rawIn.AsFloat64(), in)
		rawKer, _ := tensor.NewRaw(kShape, tensor.Float64, tensor.CPU)
		copy(rawKer.AsFloat64(), ker)
		return plain.Sum(plain.Conv3D(rawIn, rawKer, stride, padding)).AsFloat64()[0]
	}

	checkGradient(t, "conv3d/input", toF64(inputData), func(p []float64) float64 {
		return lossWith(p, kernelData)
	}, inputGrad)

	checkGradient(t, "conv3d/kernel", toF64(kernelData), func(p []float64) float64 {
		return lossWith(inputData, p)
	}, kernelGrad)
}

func TestGradientCheck_MaxPool3D(t *testing.T) {
	backend := autodiff.New(cpu.NewSequential())
	plain := cpu.NewSequential()

	// Distinct values keep the argmax stable under perturbation.
	inputData := []float64{0.1, 0.9, 0.3, 0.5, 0.7, 0.2, 0.8, 0.4}
	inShape := tensor.Shape{1, 1, 2, 2, 2}
	kernel := [3]int{2, 2, 2}
	stride := [3]int{1, 1, 1}
	padding := [3]int{1, 1, 1}

	backend.Tape().StartRecording()
	input, _ := tensor.FromSlice(toF64(inputData), inShape, backend)

	out := backend.MaxPool3D(input.Raw(), kernel, stride, padding)
	loss := tensor.New[float64](backend.Sum(out), backend)

	grads := autodiff.Backward(loss, backend)
	inputGrad := grads[input.Raw()].AsFloat64()

	checkGradient(t, "maxpool3d", toF64(inputData), func(p []float64) float64 {
		raw, _ := tensor.NewRaw(inShape, tensor.Float64, tensor.CPU)
		copy(raw.AsFloat64(), p)
		return plain.Sum(plain.MaxPool3D(raw, kernel, stride, padding)).AsFloat64()[0]
	}, inputGrad)
}

func TestGradientCheck_AvgPool3D(t *testing.T) {
	backend := autodiff.New(cpu.NewSequential())
	plain := cpu.NewSequential()

	inputData := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	inShape := tensor.Shape{1, 1, 2, 2, 2}
	kernel := [3]int{2, 2, 2}
	stride := [3]int{1, 1, 1}

	backend.Tape().StartRecording()
	input, _ := tensor.FromSlice(toF64(inputData), inShape, backend)

	out := backend.AvgPool3D(input.Raw(), kernel, stride)
	loss := tensor.New[float64](backend.Sum(out), backend)

	grads := autodiff.Backward(loss, backend)
	inputGrad := grads[input.Raw()].AsFloat64()

	checkGradient(t, "avgpool3d", toF64(inputData), func(p []float64) float64 {
		raw, _ := tensor.NewRaw(inShape, tensor.Float64, tensor.CPU)
		copy(raw.AsFloat64(), p)
		return plain.Sum(plain.AvgPool3D(raw, kernel, stride)).AsFloat64()[0]
	}, inputGrad)
}

func TestGradientCheck_NormalizationChain(t *testing.T) {
	backend := autodiff.New(cpu.NewSequential())
	plain := cpu.NewSequential()

	// The batch-norm core: y = (x - mean) * rsqrt(var + eps), built from
	// recorded ops only.
	inputData := []float64{0.5, 1.5, -0.5, 2.5}
	inShape := tensor.Shape{4}
	const eps = 1e-5

	// The centered term is recomputed for the final product: a plain
	// backend may consume a uniquely-referenced operand in place, so the
	// first centered tensor does not survive the variance product.
	normalize := func(b tensor.Backend, raw *tensor.RawTensor) *tensor.RawTensor {
		mean := b.MeanDim(raw, 0, true)
		centered := b.Sub(raw, mean)
		variance := b.MeanDim(b.Mul(centered, centered), 0, true)
		invStd := b.Rsqrt(b.AddScalar(variance, eps))
		return b.Mul(b.Sub(raw, mean), invStd)
	}

	backend.Tape().StartRecording()
	input, _ := tensor.FromSlice(toF64(inputData), inShape, backend)

	// Weight the output so gradients are not identically zero.
	weights, _ := tensor.FromSlice([]float64{1, -2, 3, -4}, inShape, backend)
	out := backend.Mul(normalize(backend, input.Raw()), weights.Raw())
	loss := tensor.New[float64](backend.Sum(out), backend)

	grads := autodiff.Backward(loss, backend)
	inputGrad := grads[input.Raw()].AsFloat64()

	checkGradient(t, "normalization", toF64(inputData), func(p []float64) float64 {
		raw, _ := tensor.NewRaw(inShape, tensor.Float64, tensor.CPU)
		copy(raw.AsFloat64(), p)
		w, _ := tensor.NewRaw(inShape, tensor.Float64, tensor.CPU)
		copy(w.AsFloat64(), []float64{1, -2, 3, -4})
		return plain.Sum(plain.Mul(normalize(plain, raw), w)).AsFloat64()[0]
	}, inputGrad)
}
