package nn

import (
	"testing"

	"github.com/kino-ml/kino/internal/backend/cpu"
	"github.com/kino-ml/kino/internal/tensor"
)

func TestLinear_Forward(t *testing.T) {
	backend := cpu.NewSequential()

	layer := NewLinear(2, 3, backend)
	// Fixed weights: row i of W is [i+1, i+1].
	w := layer.Weight().Tensor().Data()
	copy(w, []float32{1, 1, 2, 2, 3, 3})
	b := layer.Bias().Tensor().Data()
	copy(b, []float32{0.5, 0.5, 0.5})

	input, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	if err != nil {
		t.Fatal(err)
	}

	output := layer.Forward(input)
	want := []float32{3.5, 6.5, 9.5}
	got := output.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSequential_ForwardAndParameters(t *testing.T) {
	backend := cpu.NewSequential()

	model := NewSequential[*cpu.CPUBackend](
		NewConv3D(1, 2, [3]int{1, 1, 1}, [3]int{1, 1, 1}, [3]int{0, 0, 0}, false, backend),
		NewBatchNorm3D(2, backend),
		NewReLU[*cpu.CPUBackend](),
	)

	// conv weight + bn weight + bn bias.
	if got := len(model.Parameters()); got != 3 {
		t.Errorf("parameter count = %d, want 3", got)
	}

	input := tensor.Ones[float32](tensor.Shape{2, 1, 2, 2, 2}, backend)
	output := model.Forward(input)

	wantShape := tensor.Shape{2, 2, 2, 2, 2}
	if !output.Shape().Equal(wantShape) {
		t.Errorf("output shape = %v, want %v", output.Shape(), wantShape)
	}
}

func TestSequential_SetTrainingPropagates(t *testing.T) {
	backend := cpu.NewSequential()

	bn := NewBatchNorm3D(1, backend)
	model := NewSequential[*cpu.CPUBackend](bn, NewReLU[*cpu.CPUBackend]())

	model.SetTraining(false)

	input, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1, 1, 1, 1, 1}, backend)
	_ = model.Forward(input)

	// In eval mode the forward must not move the running stats.
	if got := bn.RunningMean().AsFloat32()[0]; got != 0 {
		t.Errorf("running mean = %v, want 0 (eval mode)", got)
	}
}

func TestAdaptiveAvgPool3D_CollapsesToSingleFeature(t *testing.T) {
	backend := cpu.NewSequential()

	pool := NewAdaptiveAvgPool3D([3]int{1, 1, 1}, backend)

	input, err := tensor.FromSlice([]float32{
		1, 2, 3, 4, 5, 6, 7, 8, // channel 0, mean 4.5
		10, 20, 30, 40, 50, 60, 70, 80, // channel 1, mean 45
	}, tensor.Shape{1, 2, 2, 2, 2}, backend)
	if err != nil {
		t.Fatal(err)
	}

	output := pool.Forward(input)

	wantShape := tensor.Shape{1, 2, 1, 1, 1}
	if !output.Shape().Equal(wantShape) {
		t.Fatalf("output shape = %v, want %v", output.Shape(), wantShape)
	}
	got := output.Data()
	if got[0] != 4.5 || got[1] != 45 {
		t.Errorf("output = %v, want [4.5 45]", got)
	}
}

func TestMaxPool3D_Module(t *testing.T) {
	backend := cpu.NewSequential()

	pool := NewMaxPool3D([3]int{3, 3, 3}, [3]int{2, 2, 2}, [3]int{1, 1, 1}, backend)
	if got := len(pool.Parameters()); got != 0 {
		t.Errorf("pool has %d parameters, want 0", got)
	}

	input := tensor.Zeros[float32](tensor.Shape{1, 2, 4, 8, 8}, backend)
	output := pool.Forward(input)

	wantShape := tensor.Shape{1, 2, 2, 4, 4}
	if !output.Shape().Equal(wantShape) {
		t.Errorf("output shape = %v, want %v", output.Shape(), wantShape)
	}
}
