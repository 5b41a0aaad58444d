package cpu

import (
	"math"
	"testing"

	"github.com/kino-ml/kino/internal/tensor"
)

func TestAdd_Broadcast(t *testing.T) {
	backend := NewSequential()

	// [1, 2, 1] + [2, 1, 2] broadcasts to [2, 2, 2], the same pattern a
	// per-channel batch-norm shift uses on [N, C, D, H, W] tensors.
	a := rawFloat32(t, tensor.Shape{1, 2, 1}, []float32{10, 20})
	b := rawFloat32(t, tensor.Shape{2, 1, 2}, []float32{1, 2, 3, 4})

	out := backend.Add(a, b)

	wantShape := tensor.Shape{2, 2, 2}
	if !out.Shape().Equal(wantShape) {
		t.Fatalf("shape = %v, want %v", out.Shape(), wantShape)
	}
	want := []float32{11, 12, 21, 22, 13, 14, 23, 24}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMul_SameShapeAndScalar(t *testing.T) {
	backend := NewSequential()

	a := rawFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
	b := rawFloat32(t, tensor.Shape{4}, []float32{2, 2, 2, 2})

	// a is uniquely referenced, so Mul consumes it as the result's storage.
	out := backend.Mul(a, b)
	for i, v := range out.AsFloat32() {
		if v != float32(i+1)*2 {
			t.Errorf("mul[%d] = %v", i, v)
		}
	}

	c := rawFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
	scaled := backend.MulScalar(c, 0.5)
	want := []float32{0.5, 1, 1.5, 2}
	for i, v := range scaled.AsFloat32() {
		if v != want[i] {
			t.Errorf("mul_scalar[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestReLU(t *testing.T) {
	backend := NewSequential()

	x := rawFloat32(t, tensor.Shape{5}, []float32{-2, -0.5, 0, 0.5, 2})
	out := backend.ReLU(x)

	want := []float32{0, 0, 0, 0.5, 2}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("relu[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestRsqrt(t *testing.T) {
	backend := NewSequential()

	x := rawFloat32(t, tensor.Shape{3}, []float32{1, 4, 16})
	out := backend.Rsqrt(x)

	want := []float32{1, 0.5, 0.25}
	for i, v := range out.AsFloat32() {
		if math.Abs(float64(v-want[i])) > 1e-6 {
			t.Errorf("rsqrt[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestMatMul(t *testing.T) {
	backend := NewSequential()

	a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := rawFloat32(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	out := backend.MatMul(a, b)

	wantShape := tensor.Shape{2, 2}
	if !out.Shape().Equal(wantShape) {
		t.Fatalf("shape = %v, want %v", out.Shape(), wantShape)
	}
	want := []float32{58, 64, 139, 154}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("matmul[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTranspose(t *testing.T) {
	backend := NewSequential()

	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	out := backend.Transpose(x)

	wantShape := tensor.Shape{3, 2}
	if !out.Shape().Equal(wantShape) {
		t.Fatalf("shape = %v, want %v", out.Shape(), wantShape)
	}
	want := []float32{1, 4, 2, 5, 3, 6}
	got := out.AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transpose[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMul_InplaceConsumesUniqueOperand(t *testing.T) {
	backend := NewSequential()

	a := rawFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})
	b := rawFloat32(t, tensor.Shape{3}, []float32{4, 5, 6})

	out := backend.Mul(a, b)
	if out != a {
		t.Error("unique same-shape operand should be reused as the result")
	}
	want := []float32{4, 10, 18}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("mul[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestAdd_InplaceNotAppliedToSharedBuffer(t *testing.T) {
	backend := NewSequential()

	a := rawFloat32(t, tensor.Shape{2}, []float32{1, 2})
	b := rawFloat32(t, tensor.Shape{2}, []float32{10, 20})

	shared := a.Clone()
	defer shared.Release()

	out := backend.Add(a, b)

	// a's buffer is shared with the clone, so Add must not write through it.
	if a.AsFloat32()[0] != 1 || a.AsFloat32()[1] != 2 {
		t.Errorf("shared operand mutated: %v", a.AsFloat32())
	}
	if out.AsFloat32()[0] != 11 || out.AsFloat32()[1] != 22 {
		t.Errorf("add = %v, want [11 22]", out.AsFloat32())
	}
}
