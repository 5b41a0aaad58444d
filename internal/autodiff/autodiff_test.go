package autodiff_test

import (
	"math"
	"testing"

	"github.com/kino-ml/kino/internal/autodiff"
	"github.com/kino-ml/kino/internal/backend/cpu"
	"github.com/kino-ml/kino/internal/tensor"
)

func TestBackward_Square(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	if err != nil {
		t.Fatal(err)
	}

	y := x.Mul(x)

	grads := autodiff.Backward(y, backend)
	got := grads[x.Raw()].AsFloat32()[0]
	if got != 6 {
		t.Errorf("d(x²)/dx at x=3 = %v, want 6", got)
	}
}

func TestBackward_BroadcastReducesGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// a [1] broadcasts against b [3]; a's gradient must sum back to [1].
	a, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	b, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)

	y := a.Mul(b)

	grads := autodiff.Backward(y, backend)

	gradA := grads[a.Raw()]
	if !gradA.Shape().Equal(tensor.Shape{1}) {
		t.Fatalf("grad a shape = %v, want [1]", gradA.Shape())
	}
	if got := gradA.AsFloat32()[0]; got != 6 {
		t.Errorf("grad a = %v, want 1+2+3 = 6", got)
	}

	gradB := grads[b.Raw()].AsFloat32()
	for i, v := range gradB {
		if v != 2 {
			t.Errorf("grad b[%d] = %v, want 2", i, v)
		}
	}
}

func TestBackward_ReLUMasksGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice([]float32{-1, 2, -3, 4}, tensor.Shape{4}, backend)
	y := x.ReLU()

	grads := autodiff.Backward(y, backend)
	got := grads[x.Raw()].AsFloat32()
	want := []float32{0, 1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("grad[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBackward_GradientAccumulation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// x used twice: y = x + x, so dy/dx = 2.
	x, _ := tensor.FromSlice([]float32{5}, tensor.Shape{1}, backend)
	y := x.Add(x)

	grads := autodiff.Backward(y, backend)
	if got := grads[x.Raw()].AsFloat32()[0]; got != 2 {
		t.Errorf("grad = %v, want 2", got)
	}
}

func TestTape_ClearKeepsRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
	_ = x.Add(x)

	if tape.NumOps() != 1 {
		t.Fatalf("NumOps = %d, want 1", tape.NumOps())
	}

	tape.Clear()
	if tape.NumOps() != 0 {
		t.Fatalf("NumOps after Clear = %d, want 0", tape.NumOps())
	}
	if !tape.IsRecording() {
		t.Fatal("Clear must preserve the recording flag")
	}

	_ = x.Add(x)
	if tape.NumOps() != 1 {
		t.Fatalf("NumOps after Clear+op = %d, want 1", tape.NumOps())
	}
}

func TestBackward_NotRecordingRecordsNothing(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x, _ := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
	_ = x.Add(x)

	if got := backend.Tape().NumOps(); got != 0 {
		t.Errorf("NumOps = %d, want 0 when not recording", got)
	}
}

func TestBackward_MeanDimChain(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// mean over dim 0 of [2, 2]: each input contributes 1/2.
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	y := x.MeanDim(0, false)

	grads := autodiff.Backward(y, backend)
	for i, v := range grads[x.Raw()].AsFloat32() {
		if math.Abs(float64(v-0.5)) > 1e-6 {
			t.Errorf("grad[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestBackward_CatSplitsGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4, 5}, tensor.Shape{1, 3}, backend)

	y := tensor.Cat([]*tensor.Tensor[float32, *autodiff.AutodiffBackend[*cpu.CPUBackend]]{a, b}, 1)
	if !y.Shape().Equal(tensor.Shape{1, 5}) {
		t.Fatalf("cat shape = %v", y.Shape())
	}

	// Weight the concatenated output so the split is observable.
	w, _ := tensor.FromSlice([]float32{10, 20, 30, 40, 50}, tensor.Shape{1, 5}, backend)
	z := y.Mul(w)

	grads := autodiff.Backward(z, backend)

	gradA := grads[a.Raw()].AsFloat32()
	if gradA[0] != 10 || gradA[1] != 20 {
		t.Errorf("grad a = %v, want [10 20]", gradA)
	}
	gradB := grads[b.Raw()].AsFloat32()
	if gradB[0] != 30 || gradB[1] != 40 || gradB[2] != 50 {
		t.Errorf("grad b = %v, want [30 40 50]", gradB)
	}
}
