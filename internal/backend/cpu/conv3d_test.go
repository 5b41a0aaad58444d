package cpu

import (
	"testing"

	"github.com/kino-ml/kino/internal/tensor"
)

func rawFloat32(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestConv3D_BasicForward(t *testing.T) {
	backend := NewSequential()

	// Input: [1, 1, 2, 2, 2] cube with values 1..8.
	input := rawFloat32(t, tensor.Shape{1, 1, 2, 2, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})

	// All-ones 2x2x2 kernel sums the cube.
	kernel := rawFloat32(t, tensor.Shape{1, 1, 2, 2, 2}, []float32{1, 1, 1, 1, 1, 1, 1, 1})

	output := backend.Conv3D(input, kernel, [3]int{1, 1, 1}, [3]int{0, 0, 0})

	wantShape := tensor.Shape{1, 1, 1, 1, 1}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}
	if got := output.AsFloat32()[0]; got != 36 {
		t.Errorf("output = %v, want 36", got)
	}
}

func TestConv3D_StrideAndPadding(t *testing.T) {
	backend := NewSequential()

	// Input: [1, 1, 1, 3, 3], a single depth slice 1..9.
	input := rawFloat32(t, tensor.Shape{1, 1, 1, 3, 3},
		[]float32{1, 2, 3, 4, 5, 6, 7, 8, 9})

	// 1x1x1 identity kernel: padding with stride 2 subsamples the
	// zero-padded grid.
	kernel := rawFloat32(t, tensor.Shape{1, 1, 1, 1, 1}, []float32{1})

	output := backend.Conv3D(input, kernel, [3]int{1, 2, 2}, [3]int{0, 1, 1})

	wantShape := tensor.Shape{1, 1, 1, 3, 3}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}

	// Sampled rows/cols are -1, 1, 3 of the original grid; only (1, 1)
	// lands in bounds.
	want := []float32{0, 0, 0, 0, 5, 0, 0, 0, 0}
	got := output.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestConv3D_MultiChannel(t *testing.T) {
	backend := NewSequential()

	// Input: [1, 2, 1, 1, 1], two input channels.
	input := rawFloat32(t, tensor.Shape{1, 2, 1, 1, 1}, []float32{3, 5})

	// Kernel: [2, 2, 1, 1, 1], two output channels mixing both inputs.
	kernel := rawFloat32(t, tensor.Shape{2, 2, 1, 1, 1}, []float32{
		1, 1, // cout 0: sum
		1, -1, // cout 1: difference
	})

	output := backend.Conv3D(input, kernel, [3]int{1, 1, 1}, [3]int{0, 0, 0})

	wantShape := tensor.Shape{1, 2, 1, 1, 1}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}
	got := output.AsFloat32()
	if got[0] != 8 || got[1] != -2 {
		t.Errorf("output = %v, want [8 -2]", got)
	}
}

func TestConv3D_Backward(t *testing.T) {
	backend := NewSequential()

	input := rawFloat32(t, tensor.Shape{1, 1, 1, 1, 2}, []float32{3, 5})
	kernel := rawFloat32(t, tensor.Shape{1, 1, 1, 1, 2}, []float32{2, 7})
	stride := [3]int{1, 1, 1}
	padding := [3]int{0, 0, 0}

	output := backend.Conv3D(input, kernel, stride, padding)
	if got := output.AsFloat32()[0]; got != 41 {
		t.Fatalf("forward = %v, want 41", got)
	}

	grad := rawFloat32(t, tensor.Shape{1, 1, 1, 1, 1}, []float32{1})

	inputGrad := backend.Conv3DInputBackward(input, kernel, grad, stride, padding)
	ig := inputGrad.AsFloat32()
	if ig[0] != 2 || ig[1] != 7 {
		t.Errorf("input grad = %v, want [2 7]", ig)
	}

	kernelGrad := backend.Conv3DKernelBackward(input, kernel, grad, stride, padding)
	kg := kernelGrad.AsFloat32()
	if kg[0] != 3 || kg[1] != 5 {
		t.Errorf("kernel grad = %v, want [3 5]", kg)
	}
}

func TestConv3D_ParallelMatchesSequential(t *testing.T) {
	seq := NewSequential()
	par := New()

	input, err := tensor.NewRaw(tensor.Shape{2, 3, 4, 5, 5}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	data := input.AsFloat32()
	for i := range data {
		data[i] = float32(i%13) - 6
	}

	kernel, err := tensor.NewRaw(tensor.Shape{4, 3, 3, 3, 3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	kdata := kernel.AsFloat32()
	for i := range kdata {
		kdata[i] = float32(i%7) * 0.25
	}

	stride := [3]int{1, 2, 2}
	padding := [3]int{1, 1, 1}

	a := seq.Conv3D(input, kernel, stride, padding).AsFloat32()
	b := par.Conv3D(input, kernel, stride, padding).AsFloat32()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("parallel output diverges at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
