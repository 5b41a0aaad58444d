package resnet3d

import (
	"fmt"

	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// BottleneckExpansion is the channel multiplier of a Bottleneck: the
// final pointwise convolution restores four times the stage's nominal
// width.
const BottleneckExpansion = 4

// Bottleneck is the three-convolution residual unit used by the deep
// variants (50 layers and up). The pointwise convolutions reduce and
// restore the channel count around the spatial convolution, keeping
// the 3x3x3 work cheap:
//
//	x → conv1x1x1 → BN → ReLU → conv3x3x3 → BN → ReLU → conv1x1x1 → BN → + → ReLU
//	 \_____________________________shortcut___________________________________↑
type Bottleneck[B tensor.Backend] struct {
	conv1    *nn.Conv3D[B]
	bn1      *nn.BatchNorm3D[B]
	conv2    *nn.Conv3D[B]
	bn2      *nn.BatchNorm3D[B]
	conv3    *nn.Conv3D[B]
	bn3      *nn.BatchNorm3D[B]
	shortcut Shortcut[B]
}

// NewBottleneck creates a residual unit mapping inChannels to
// planes*BottleneckExpansion channels. The middle convolution carries
// the stride.
func NewBottleneck[B tensor.Backend](
	inChannels, planes int,
	stride [3]int,
	shortcutType ShortcutType,
	backend B,
) *Bottleneck[B] {
	outChannels := planes * BottleneckExpansion
	return &Bottleneck[B]{
		conv1:    conv1x1x1(inChannels, planes, [3]int{1, 1, 1}, backend),
		bn1:      nn.NewBatchNorm3D(planes, backend),
		conv2:    conv3x3x3(planes, planes, stride, backend),
		bn2:      nn.NewBatchNorm3D(planes, backend),
		conv3:    conv1x1x1(planes, outChannels, [3]int{1, 1, 1}, backend),
		bn3:      nn.NewBatchNorm3D(outChannels, backend),
		shortcut: newShortcut(shortcutType, inChannels, outChannels, stride, backend),
	}
}

// Forward computes activation(transform(x) + shortcut(x)).
func (b *Bottleneck[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := b.bn1.Forward(b.conv1.Forward(input)).ReLU()
	out = b.bn2.Forward(b.conv2.Forward(out)).ReLU()
	out = b.bn3.Forward(b.conv3.Forward(out))

	residual := input
	if b.shortcut != nil {
		residual = b.shortcut.Forward(input)
	}
	return out.Add(residual).ReLU()
}

// Parameters returns the block's trainable parameters, including the
// projection shortcut's when present.
func (b *Bottleneck[B]) Parameters() []*nn.Parameter[B] {
	params := append(b.conv1.Parameters(), b.bn1.Parameters()...)
	params = append(params, b.conv2.Parameters()...)
	params = append(params, b.bn2.Parameters()...)
	params = append(params, b.conv3.Parameters()...)
	params = append(params, b.bn3.Parameters()...)
	if b.shortcut != nil {
		params = append(params, b.shortcut.Parameters()...)
	}
	return params
}

// OutChannels returns the block's output channel count.
func (b *Bottleneck[B]) OutChannels() int { return b.bn3.Weight().Tensor().NumElements() }

// SetTraining switches every batch normalization in the block between
// batch and running statistics.
func (b *Bottleneck[B]) SetTraining(training bool) {
	b.bn1.SetTraining(training)
	b.bn2.SetTraining(training)
	b.bn3.SetTraining(training)
	if ta, ok := b.shortcut.(nn.TrainingAware); ok {
		ta.SetTraining(training)
	}
}

// StateDict exports the block's tensors.
func (b *Bottleneck[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeState(stateDict, "conv1", b.conv1.StateDict())
	mergeState(stateDict, "bn1", b.bn1.StateDict())
	mergeState(stateDict, "conv2", b.conv2.StateDict())
	mergeState(stateDict, "bn2", b.bn2.StateDict())
	mergeState(stateDict, "conv3", b.conv3.StateDict())
	mergeState(stateDict, "bn3", b.bn3.StateDict())
	if sm, ok := b.shortcut.(nn.StatefulModule[B]); ok {
		mergeState(stateDict, "downsample", sm.StateDict())
	}
	return stateDict
}

// LoadStateDict restores the block's tensors.
func (b *Bottleneck[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	loads := []struct {
		prefix string
		module nn.StatefulModule[B]
	}{
		{"conv1", b.conv1},
		{"bn1", b.bn1},
		{"conv2", b.conv2},
		{"bn2", b.bn2},
		{"conv3", b.conv3},
		{"bn3", b.bn3},
	}
	for _, l := range loads {
		if err := l.module.LoadStateDict(extractState(stateDict, l.prefix)); err != nil {
			return fmt.Errorf("%s: %w", l.prefix, err)
		}
	}
	if sm, ok := b.shortcut.(nn.StatefulModule[B]); ok {
		if err := sm.LoadStateDict(extractState(stateDict, "downsample")); err != nil {
			return fmt.Errorf("downsample: %w", err)
		}
	}
	return nil
}
