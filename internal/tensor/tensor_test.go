package tensor

import (
	"testing"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{1, 3, 8, 32, 32}, 24576},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("NumElements(%v) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShape_Validate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (Shape{2, 0}).Validate(); err == nil {
		t.Error("zero dimension accepted")
	}
	if err := (Shape{-1, 3}).Validate(); err == nil {
		t.Error("negative dimension accepted")
	}
}

func TestShape_ComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Fatalf("strides = %v, want %v", strides, want)
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b    Shape
		want    Shape
		needs   bool
		wantErr bool
	}{
		{Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false, false},
		{Shape{2, 1}, Shape{1, 3}, Shape{2, 3}, true, false},
		{Shape{1, 64, 1, 1, 1}, Shape{2, 64, 4, 8, 8}, Shape{2, 64, 4, 8, 8}, true, false},
		{Shape{3}, Shape{2, 3}, Shape{2, 3}, true, false},
		{Shape{2, 3}, Shape{2, 4}, nil, false, true},
	}
	for _, tt := range tests {
		got, needs, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v): expected error", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v): %v", tt.a, tt.b, err)
			continue
		}
		if !got.Equal(tt.want) || needs != tt.needs {
			t.Errorf("BroadcastShapes(%v, %v) = %v (needs=%v), want %v (needs=%v)",
				tt.a, tt.b, got, needs, tt.want, tt.needs)
		}
	}
}

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{3, 2}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize = %d, want 24", raw.ByteSize())
	}
	if len(raw.AsFloat32()) != 6 {
		t.Errorf("AsFloat32 length = %d, want 6", len(raw.AsFloat32()))
	}

	if _, err := NewRaw(Shape{2, -1}, Float32, CPU); err == nil {
		t.Error("invalid shape accepted")
	}
}

func TestRawTensor_CloneSharesBuffer(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	raw.AsFloat32()[0] = 42

	if !raw.IsUnique() {
		t.Fatal("fresh tensor should own its buffer")
	}

	clone := raw.Clone()
	if raw.IsUnique() || clone.IsUnique() {
		t.Fatal("clone must share the buffer")
	}
	if clone.AsFloat32()[0] != 42 {
		t.Errorf("clone data = %f, want 42", clone.AsFloat32()[0])
	}

	clone.Release()
	if !raw.IsUnique() {
		t.Error("release must return ownership")
	}
}

func TestRawTensor_CopyIsWriteIsolated(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	raw.AsFloat32()[0] = 42

	snapshot := raw.Copy()
	if !raw.IsUnique() || !snapshot.IsUnique() {
		t.Fatal("copy must own a separate buffer")
	}
	if snapshot.AsFloat32()[0] != 42 {
		t.Errorf("copy data = %f, want 42", snapshot.AsFloat32()[0])
	}

	snapshot.AsFloat32()[0] = 1
	if raw.AsFloat32()[0] != 42 {
		t.Errorf("write through copy reached the original: got %f, want 42", raw.AsFloat32()[0])
	}

	raw.AsFloat32()[1] = 7
	if snapshot.AsFloat32()[1] != 0 {
		t.Errorf("write through original reached the copy: got %f, want 0", snapshot.AsFloat32()[1])
	}
}

func TestRawTensor_ForceNonUnique(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}

	restore := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Fatal("pinned tensor must not report unique")
	}
	restore()
	if !raw.IsUnique() {
		t.Error("restore must undo the pin")
	}
}

func TestDataType_Size(t *testing.T) {
	if Float32.Size() != 4 || Int32.Size() != 4 {
		t.Error("32-bit types must be 4 bytes")
	}
	if Float64.Size() != 8 {
		t.Error("Float64 must be 8 bytes")
	}
}
