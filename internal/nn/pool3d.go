package nn

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// MaxPool3D is a volumetric max pooling layer. It has no parameters.
type MaxPool3D[B tensor.Backend] struct {
	kernel  [3]int
	stride  [3]int
	padding [3]int
	backend B
}

// NewMaxPool3D creates a max pooling layer. Triples are ordered
// (depth, height, width).
func NewMaxPool3D[B tensor.Backend](kernel, stride, padding [3]int, backend B) *MaxPool3D[B] {
	return &MaxPool3D[B]{kernel: kernel, stride: stride, padding: padding, backend: backend}
}

// Forward pools the input.
func (m *MaxPool3D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := m.backend.MaxPool3D(input.Raw(), m.kernel, m.stride, m.padding)
	return tensor.New[float32](raw, m.backend)
}

// Parameters returns an empty slice.
func (m *MaxPool3D[B]) Parameters() []*Parameter[B] { return nil }

// AvgPool3D is a volumetric average pooling layer. A 1x1x1 kernel with a
// non-unit stride acts as a strided subsample.
type AvgPool3D[B tensor.Backend] struct {
	kernel  [3]int
	stride  [3]int
	backend B
}

// NewAvgPool3D creates an average pooling layer.
func NewAvgPool3D[B tensor.Backend](kernel, stride [3]int, backend B) *AvgPool3D[B] {
	return &AvgPool3D[B]{kernel: kernel, stride: stride, backend: backend}
}

// Forward pools the input.
func (a *AvgPool3D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := a.backend.AvgPool3D(input.Raw(), a.kernel, a.stride)
	return tensor.New[float32](raw, a.backend)
}

// Parameters returns an empty slice.
func (a *AvgPool3D[B]) Parameters() []*Parameter[B] { return nil }

// AdaptiveAvgPool3D averages each channel down to a fixed output size
// regardless of the input's spatial extent. The usual target is
// (1, 1, 1), collapsing each channel to a single feature.
type AdaptiveAvgPool3D[B tensor.Backend] struct {
	outputSize [3]int
	backend    B
}

// NewAdaptiveAvgPool3D creates an adaptive average pooling layer.
func NewAdaptiveAvgPool3D[B tensor.Backend](outputSize [3]int, backend B) *AdaptiveAvgPool3D[B] {
	for i := 0; i < 3; i++ {
		if outputSize[i] <= 0 {
			panic(fmt.Sprintf("adaptive_avgpool3d: invalid output size %v", outputSize))
		}
	}
	return &AdaptiveAvgPool3D[B]{outputSize: outputSize, backend: backend}
}

// Forward pools the input down to the target size. Each input extent
// must be a multiple of the corresponding output extent.
func (a *AdaptiveAvgPool3D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 5 {
		panic(fmt.Sprintf("adaptive_avgpool3d: expected 5D input, got %v", shape))
	}

	var kernel [3]int
	for i := 0; i < 3; i++ {
		in, out := shape[2+i], a.outputSize[i]
		if in%out != 0 {
			panic(fmt.Sprintf("adaptive_avgpool3d: input extent %d not divisible by output extent %d", in, out))
		}
		kernel[i] = in / out
	}

	raw := a.backend.AvgPool3D(input.Raw(), kernel, kernel)
	return tensor.New[float32](raw, a.backend)
}

// Parameters returns an empty slice.
func (a *AdaptiveAvgPool3D[B]) Parameters() []*Parameter[B] { return nil }
