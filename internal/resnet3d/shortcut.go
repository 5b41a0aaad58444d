package resnet3d

import (
	"fmt"

	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// ShortcutType selects how a residual block reshapes its input when the
// main path changes channel count or spatial stride.
type ShortcutType string

const (
	// ShortcutTypeA subsamples the input with average pooling and
	// zero-pads the channel dimension. Parameter-free.
	ShortcutTypeA ShortcutType = "A"

	// ShortcutTypeB projects the input with a 1x1x1 convolution
	// followed by batch normalization. Trainable.
	ShortcutTypeB ShortcutType = "B"
)

// Shortcut carries the residual input around a block's main transform.
type Shortcut[B tensor.Backend] interface {
	nn.Module[B]
}

// ZeroPadShortcut implements shortcut type A: a strided 1x1x1 average
// pool subsamples the input, then zero channels are concatenated to
// reach the target width.
type ZeroPadShortcut[B tensor.Backend] struct {
	outChannels int
	pool        *nn.AvgPool3D[B]
	backend     B
}

// NewZeroPadShortcut creates a parameter-free shortcut widening to
// outChannels while subsampling by stride.
func NewZeroPadShortcut[B tensor.Backend](outChannels int, stride [3]int, backend B) *ZeroPadShortcut[B] {
	return &ZeroPadShortcut[B]{
		outChannels: outChannels,
		pool:        nn.NewAvgPool3D([3]int{1, 1, 1}, stride, backend),
		backend:     backend,
	}
}

func (s *ZeroPadShortcut[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := s.pool.Forward(input)

	shape := out.Shape()
	if shape[1] > s.outChannels {
		panic(fmt.Sprintf("shortcut: cannot pad %d channels down to %d", shape[1], s.outChannels))
	}
	if shape[1] == s.outChannels {
		return out
	}

	padShape := tensor.Shape{shape[0], s.outChannels - shape[1], shape[2], shape[3], shape[4]}
	pad := tensor.Zeros[float32](padShape, s.backend)
	return tensor.Cat([]*tensor.Tensor[float32, B]{out, pad}, 1)
}

func (s *ZeroPadShortcut[B]) Parameters() []*nn.Parameter[B] { return nil }

// ProjectionShortcut implements shortcut type B: a strided 1x1x1
// convolution projects the input to the target width, followed by
// batch normalization.
type ProjectionShortcut[B tensor.Backend] struct {
	conv *nn.Conv3D[B]
	bn   *nn.BatchNorm3D[B]
}

// NewProjectionShortcut creates a trainable projection shortcut.
func NewProjectionShortcut[B tensor.Backend](inChannels, outChannels int, stride [3]int, backend B) *ProjectionShortcut[B] {
	return &ProjectionShortcut[B]{
		conv: conv1x1x1(inChannels, outChannels, stride, backend),
		bn:   nn.NewBatchNorm3D(outChannels, backend),
	}
}

func (s *ProjectionShortcut[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return s.bn.Forward(s.conv.Forward(input))
}

func (s *ProjectionShortcut[B]) Parameters() []*nn.Parameter[B] {
	return append(s.conv.Parameters(), s.bn.Parameters()...)
}

// SetTraining switches the projection's batch normalization between
// batch and running statistics.
func (s *ProjectionShortcut[B]) SetTraining(training bool) { s.bn.SetTraining(training) }

// StateDict exports the projection's tensors under "0" (conv) and "1"
// (norm) prefixes.
func (s *ProjectionShortcut[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeState(stateDict, "0", s.conv.StateDict())
	mergeState(stateDict, "1", s.bn.StateDict())
	return stateDict
}

// LoadStateDict restores the projection's tensors.
func (s *ProjectionShortcut[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := s.conv.LoadStateDict(extractState(stateDict, "0")); err != nil {
		return fmt.Errorf("shortcut conv: %w", err)
	}
	if err := s.bn.LoadStateDict(extractState(stateDict, "1")); err != nil {
		return fmt.Errorf("shortcut norm: %w", err)
	}
	return nil
}

// newShortcut builds the shortcut a block needs, or returns nil when
// the input already matches the block's output shape and the identity
// can be used directly.
func newShortcut[B tensor.Backend](
	shortcutType ShortcutType,
	inChannels, outChannels int,
	stride [3]int,
	backend B,
) Shortcut[B] {
	if inChannels == outChannels && stride == [3]int{1, 1, 1} {
		return nil
	}
	switch shortcutType {
	case ShortcutTypeA:
		return NewZeroPadShortcut[B](outChannels, stride, backend)
	case ShortcutTypeB:
		return NewProjectionShortcut(inChannels, outChannels, stride, backend)
	default:
		panic(fmt.Sprintf("resnet3d: unknown shortcut type %q", shortcutType))
	}
}

// mergeState copies src entries into dst under "prefix.name" keys.
func mergeState(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	for name, raw := range src {
		dst[prefix+"."+name] = raw
	}
}

// extractState collects the "prefix.name" entries of src keyed by the
// bare names.
func extractState(src map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for name, raw := range src {
		if len(name) > len(prefix)+1 && name[:len(prefix)+1] == prefix+"." {
			out[name[len(prefix)+1:]] = raw
		}
	}
	return out
}
