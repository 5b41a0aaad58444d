package resnet3d

import (
	"fmt"

	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// BasicBlockExpansion is the channel multiplier of a BasicBlock: its
// output width equals the stage's nominal width.
const BasicBlockExpansion = 1

// BasicBlock is the two-convolution residual unit used by the shallow
// variants (10, 18 and 34 layers):
//
//	x → conv3x3x3 → BN → ReLU → conv3x3x3 → BN → + → ReLU
//	 \___________________shortcut________________↑
//
// The shortcut is the identity unless the block changes channel count
// or stride.
type BasicBlock[B tensor.Backend] struct {
	conv1    *nn.Conv3D[B]
	bn1      *nn.BatchNorm3D[B]
	conv2    *nn.Conv3D[B]
	bn2      *nn.BatchNorm3D[B]
	shortcut Shortcut[B]
}

// NewBasicBlock creates a residual unit mapping inChannels to planes
// channels. The first convolution carries the stride.
func NewBasicBlock[B tensor.Backend](
	inChannels, planes int,
	stride [3]int,
	shortcutType ShortcutType,
	backend B,
) *BasicBlock[B] {
	outChannels := planes * BasicBlockExpansion
	return &BasicBlock[B]{
		conv1:    conv3x3x3(inChannels, planes, stride, backend),
		bn1:      nn.NewBatchNorm3D(planes, backend),
		conv2:    conv3x3x3(planes, planes, [3]int{1, 1, 1}, backend),
		bn2:      nn.NewBatchNorm3D(planes, backend),
		shortcut: newShortcut(shortcutType, inChannels, outChannels, stride, backend),
	}
}

// Forward computes activation(transform(x) + shortcut(x)).
func (b *BasicBlock[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := b.bn1.Forward(b.conv1.Forward(input)).ReLU()
	out = b.bn2.Forward(b.conv2.Forward(out))

	residual := input
	if b.shortcut != nil {
		residual = b.shortcut.Forward(input)
	}
	return out.Add(residual).ReLU()
}

// Parameters returns the block's trainable parameters, including the
// projection shortcut's when present.
func (b *BasicBlock[B]) Parameters() []*nn.Parameter[B] {
	params := append(b.conv1.Parameters(), b.bn1.Parameters()...)
	params = append(params, b.conv2.Parameters()...)
	params = append(params, b.bn2.Parameters()...)
	if b.shortcut != nil {
		params = append(params, b.shortcut.Parameters()...)
	}
	return params
}

// OutChannels returns the block's output channel count.
func (b *BasicBlock[B]) OutChannels() int { return b.bn2.Weight().Tensor().NumElements() }

// SetTraining switches every batch normalization in the block between
// batch and running statistics.
func (b *BasicBlock[B]) SetTraining(training bool) {
	b.bn1.SetTraining(training)
	b.bn2.SetTraining(training)
	if ta, ok := b.shortcut.(nn.TrainingAware); ok {
		ta.SetTraining(training)
	}
}

// StateDict exports the block's tensors.
func (b *BasicBlock[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeState(stateDict, "conv1", b.conv1.StateDict())
	mergeState(stateDict, "bn1", b.bn1.StateDict())
	mergeState(stateDict, "conv2", b.conv2.StateDict())
	mergeState(stateDict, "bn2", b.bn2.StateDict())
	if sm, ok := b.shortcut.(nn.StatefulModule[B]); ok {
		mergeState(stateDict, "downsample", sm.StateDict())
	}
	return stateDict
}

// LoadStateDict restores the block's tensors.
func (b *BasicBlock[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	loads := []struct {
		prefix string
		module nn.StatefulModule[B]
	}{
		{"conv1", b.conv1},
		{"bn1", b.bn1},
		{"conv2", b.conv2},
		{"bn2", b.bn2},
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
