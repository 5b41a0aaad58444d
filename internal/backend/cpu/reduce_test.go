package cpu

import (
	"testing"

	"github.com/kino-ml/kino/internal/tensor"
)

func TestSumDim(t *testing.T) {
	backend := NewSequential()

	// [2, 3] matrix:
	// 1 2 3
	// 4 5 6
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	rows := backend.SumDim(x, 1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("row sum shape = %v, want [2]", rows.Shape())
	}
	got := rows.AsFloat32()
	if got[0] != 6 || got[1] != 15 {
		t.Errorf("row sums = %v, want [6 15]", got)
	}

	cols := backend.SumDim(x, 0, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("col sum shape = %v, want [1 3]", cols.Shape())
	}
	got = cols.AsFloat32()
	want := []float32{5, 7, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("col sums[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMeanDim_BatchNormPattern(t *testing.T) {
	backend := NewSequential()

	// Per-channel mean over a [N, C, D, H, W] tensor, reduced one axis
	// at a time the way batch norm statistics are computed.
	x := rawFloat32(t, tensor.Shape{2, 2, 1, 1, 2}, []float32{
		1, 3, // n0 c0
		10, 30, // n0 c1
		5, 7, // n1 c0
		50, 70, // n1 c1
	})

	m := backend.MeanDim(x, 0, true)
	m = backend.MeanDim(m, 2, true)
	m = backend.MeanDim(m, 3, true)
	m = backend.MeanDim(m, 4, true)

	if !m.Shape().Equal(tensor.Shape{1, 2, 1, 1, 1}) {
		t.Fatalf("mean shape = %v, want [1 2 1 1 1]", m.Shape())
	}
	got := m.AsFloat32()
	if got[0] != 4 || got[1] != 40 {
		t.Errorf("channel means = %v, want [4 40]", got)
	}
}

func TestSum(t *testing.T) {
	backend := NewSequential()

	x := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	s := backend.Sum(x)
	if !s.Shape().Equal(tensor.Shape{1}) {
		t.Fatalf("sum shape = %v, want [1]", s.Shape())
	}
	if got := s.AsFloat32()[0]; got != 10 {
		t.Errorf("sum = %v, want 10", got)
	}
}

func TestArgmax(t *testing.T) {
	backend := NewSequential()

	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 5, 2, 9, 0, 3})
	idx := backend.Argmax(x, 1)

	if !idx.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("argmax shape = %v, want [2]", idx.Shape())
	}
	got := idx.AsInt32()
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("argmax = %v, want [1 0]", got)
	}
}

func TestCat_ChannelDim(t *testing.T) {
	backend := NewSequential()

	// Concatenating a zero tensor along dim 1 widens the channels, which
	// is how the parameter-free shortcut pads.
	a := rawFloat32(t, tensor.Shape{1, 2, 1, 1, 2}, []float32{1, 2, 3, 4})
	zeros, err := tensor.NewRaw(tensor.Shape{1, 2, 1, 1, 2}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}

	out := backend.Cat([]*tensor.RawTensor{a, zeros}, 1)

	wantShape := tensor.Shape{1, 4, 1, 1, 2}
	if !out.Shape().Equal(wantShape) {
		t.Fatalf("cat shape = %v, want %v", out.Shape(), wantShape)
	}
	got := out.AsFloat32()
	want := []float32{1, 2, 3, 4, 0, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cat[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
