package cpu

import (
	"testing"

	"github.com/kino-ml/kino/internal/tensor"
)

func TestMaxPool3D_BasicForward(t *testing.T) {
	backend := NewSequential()

	// Input: [1, 1, 2, 2, 2] with a distinct max per pooling window.
	input := rawFloat32(t, tensor.Shape{1, 1, 2, 2, 2}, []float32{1, 9, 3, 4, 5, 6, 7, 2})

	output := backend.MaxPool3D(input, [3]int{2, 2, 2}, [3]int{2, 2, 2}, [3]int{0, 0, 0})

	wantShape := tensor.Shape{1, 1, 1, 1, 1}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}
	if got := output.AsFloat32()[0]; got != 9 {
		t.Errorf("output = %v, want 9", got)
	}
}

func TestMaxPool3D_PaddingNeverWins(t *testing.T) {
	backend := NewSequential()

	// All-negative input: the -inf padding border must not leak zeros
	// into the max.
	input := rawFloat32(t, tensor.Shape{1, 1, 1, 2, 2}, []float32{-4, -3, -2, -1})

	output := backend.MaxPool3D(input, [3]int{1, 3, 3}, [3]int{1, 2, 2}, [3]int{0, 1, 1})

	wantShape := tensor.Shape{1, 1, 1, 1, 1}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}
	if got := output.AsFloat32()[0]; got != -1 {
		t.Errorf("output = %v, want -1", got)
	}
}

func TestMaxPool3D_StemGeometry(t *testing.T) {
	backend := NewSequential()

	// The stem pool: 3x3x3 kernel, stride 2, padding 1 halves each axis.
	input, err := tensor.NewRaw(tensor.Shape{1, 4, 8, 16, 16}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}

	output := backend.MaxPool3D(input, [3]int{3, 3, 3}, [3]int{2, 2, 2}, [3]int{1, 1, 1})

	wantShape := tensor.Shape{1, 4, 4, 8, 8}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}
}

func TestMaxPool3DBackward_RoutesToMax(t *testing.T) {
	backend := NewSequential()

	input := rawFloat32(t, tensor.Shape{1, 1, 2, 2, 2}, []float32{1, 9, 3, 4, 5, 6, 7, 2})
	grad := rawFloat32(t, tensor.Shape{1, 1, 1, 1, 1}, []float32{2.5})

	// Index 1 held the max in the forward pass.
	inputGrad := backend.MaxPool3DBackward(input, grad, []int{1})

	ig := inputGrad.AsFloat32()
	for i, v := range ig {
		want := float32(0)
		if i == 1 {
			want = 2.5
		}
		if v != want {
			t.Errorf("inputGrad[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestAvgPool3D_BasicForward(t *testing.T) {
	backend := NewSequential()

	input := rawFloat32(t, tensor.Shape{1, 1, 2, 2, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})

	output := backend.AvgPool3D(input, [3]int{2, 2, 2}, [3]int{2, 2, 2})

	if got := output.AsFloat32()[0]; got != 4.5 {
		t.Errorf("output = %v, want 4.5", got)
	}
}

func TestAvgPool3D_UnitKernelSubsamples(t *testing.T) {
	backend := NewSequential()

	// 1x1x1 kernel with stride 2: the parameter-free shortcut downsample.
	input := rawFloat32(t, tensor.Shape{1, 1, 1, 2, 4},
		[]float32{0, 1, 2, 3, 4, 5, 6, 7})

	output := backend.AvgPool3D(input, [3]int{1, 1, 1}, [3]int{1, 2, 2})

	wantShape := tensor.Shape{1, 1, 1, 1, 2}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}
	got := output.AsFloat32()
	if got[0] != 0 || got[1] != 2 {
		t.Errorf("output = %v, want [0 2]", got)
	}
}

func TestAvgPool3DBackward_SpreadsEvenly(t *testing.T) {
	backend := NewSequential()

	input := rawFloat32(t, tensor.Shape{1, 1, 2, 2, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	grad := rawFloat32(t, tensor.Shape{1, 1, 1, 1, 1}, []float32{8})

	inputGrad := backend.AvgPool3DBackward(input, grad, [3]int{2, 2, 2}, [3]int{2, 2, 2})

	for i, v := range inputGrad.AsFloat32() {
		if v != 1 {
			t.Errorf("inputGrad[%d] = %v, want 1", i, v)
		}
	}
}
