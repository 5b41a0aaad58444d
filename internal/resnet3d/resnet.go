// Package resnet3d implements a family of 3D convolutional residual
// networks over spatiotemporal input, used as feature-extraction
// backbones for video understanding.
//
// The architecture follows the ResNet design with volumetric kernels:
// a convolutional stem, four stages of residual blocks with channel
// widths {64, 128, 256, 512}, an average pool collapsing the remaining
// spatiotemporal extent, and an optional linear classifier head.
// Variants from 10 to 200 layers differ only in block type (BasicBlock
// or Bottleneck) and per-stage block counts.
package resnet3d

import (
	"fmt"

	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// Config describes the input geometry and output surface of a model.
// Zero values fall back to the standard video-clip setup.
type Config struct {
	SampleSize     int          // spatial side of input clips (default 112)
	SampleDuration int          // frames per clip (default 16)
	Shortcut       ShortcutType // residual downsample strategy (default B)
	NumClasses     int          // classifier width (default 400)
	NoHead         bool         // skip the classifier, return pooled features
}

func (c Config) withDefaults() Config {
	if c.SampleSize == 0 {
		c.SampleSize = 112
	}
	if c.SampleDuration == 0 {
		c.SampleDuration = 16
	}
	if c.Shortcut == "" {
		c.Shortcut = ShortcutTypeB
	}
	if c.NumClasses == 0 {
		c.NumClasses = 400
	}
	return c
}

// blockKind distinguishes the two residual unit layouts.
type blockKind int

const (
	basicKind blockKind = iota
	bottleneckKind
)

func (k blockKind) expansion() int {
	if k == bottleneckKind {
		return BottleneckExpansion
	}
	return BasicBlockExpansion
}

// ResNet is the backbone container: stem, four stages, pooling and an
// optional head. Construct it through the named variant constructors.
type ResNet[B tensor.Backend] struct {
	config Config

	conv1   *nn.Conv3D[B]
	bn1     *nn.BatchNorm3D[B]
	maxpool *nn.MaxPool3D[B]
	stages  [4]*nn.Sequential[B]
	avgpool *nn.AvgPool3D[B]
	fc      *nn.Linear[B] // nil in feature-extractor mode

	featureDim int
	backend    B
}

// stageWidths are the nominal channel counts of the four stages,
// multiplied by the block expansion factor at the stage output.
var stageWidths = [4]int{64, 128, 256, 512}

func newResNet[B tensor.Backend](kind blockKind, blocks [4]int, config Config, backend B) *ResNet[B] {
	config = config.withDefaults()
	if config.SampleSize < 32 {
		panic(fmt.Sprintf("resnet3d: sample size %d too small, minimum 32", config.SampleSize))
	}
	if config.SampleDuration < 8 {
		panic(fmt.Sprintf("resnet3d: sample duration %d too small, minimum 8", config.SampleDuration))
	}

	m := &ResNet[B]{
		config: config,

		// The stem halves height and width but keeps the full temporal
		// extent, so short clips survive the four stride-2 stages.
		conv1:   nn.NewConv3D(3, 64, [3]int{7, 7, 7}, [3]int{1, 2, 2}, [3]int{3, 3, 3}, false, backend),
		bn1:     nn.NewBatchNorm3D(64, backend),
		maxpool: nn.NewMaxPool3D([3]int{3, 3, 3}, [3]int{2, 2, 2}, [3]int{1, 1, 1}, backend),
		backend: backend,
	}

	inChannels := 64
	for i := 0; i < 4; i++ {
		stride := [3]int{2, 2, 2}
		if i == 0 {
			stride = [3]int{1, 1, 1}
		}
		m.stages[i], inChannels = makeStage(kind, inChannels, stageWidths[i], blocks[i], stride, config.Shortcut, backend)
	}
	m.featureDim = inChannels

	// After the stem and stages the temporal extent is duration/16 and
	// the spatial extent size/32, rounded up. Pooling over exactly that
	// window collapses the features to a single cell per channel.
	lastDuration := ceilDiv(config.SampleDuration, 16)
	lastSize := ceilDiv(config.SampleSize, 32)
	pool := [3]int{lastDuration, lastSize, lastSize}
	m.avgpool = nn.NewAvgPool3D(pool, pool, backend)

	if !config.NoHead {
		m.fc = nn.NewLinear(m.featureDim, config.NumClasses, backend)
	}
	return m
}

// makeStage stacks blocks of one stage. Only the first block changes
// channels or stride; the rest preserve the stage's output shape.
func makeStage[B tensor.Backend](
	kind blockKind,
	inChannels, planes, blocks int,
	stride [3]int,
	shortcutType ShortcutType,
	backend B,
) (*nn.Sequential[B], int) {
	if blocks < 1 {
		panic(fmt.Sprintf("resnet3d: stage needs at least one block, got %d", blocks))
	}
	outChannels := planes * kind.expansion()

	modules := make([]nn.Module[B], 0, blocks)
	modules = append(modules, newBlock(kind, inChannels, planes, stride, shortcutType, backend))
	for i := 1; i < blocks; i++ {
		modules = append(modules, newBlock(kind, outChannels, planes, [3]int{1, 1, 1}, shortcutType, backend))
	}
	return nn.NewSequential(modules...), outChannels
}

func newBlock[B tensor.Backend](
	kind blockKind,
	inChannels, planes int,
	stride [3]int,
	shortcutType ShortcutType,
	backend B,
) nn.Module[B] {
	if kind == bottleneckKind {
		return NewBottleneck(inChannels, planes, stride, shortcutType, backend)
	}
	return NewBasicBlock(inChannels, planes, stride, shortcutType, backend)
}

// Forward maps a clip batch (batch, 3, duration, height, width) to
// class logits (batch, numClasses), or to pooled feature vectors
// (batch, featureDim) in feature-extractor mode.
func (m *ResNet[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 5 {
		panic(fmt.Sprintf("resnet3d: expected 5D input (batch, channels, depth, height, width), got %v", shape))
	}
	if shape[1] != 3 {
		panic(fmt.Sprintf("resnet3d: expected 3 input channels, got %d", shape[1]))
	}

	x := m.maxpool.Forward(m.bn1.Forward(m.conv1.Forward(input)).ReLU())
	for _, stage := range m.stages {
		x = stage.Forward(x)
	}
	x = m.avgpool.Forward(x)
	x = x.Reshape(shape[0], m.featureDim)

	if m.fc != nil {
		x = m.fc.Forward(x)
	}
	return x
}

// Parameters returns every trainable parameter of the model.
func (m *ResNet[B]) Parameters() []*nn.Parameter[B] {
	params := m.StemParameters()
	for i := range m.stages {
		params = append(params, m.stages[i].Parameters()...)
	}
	return append(params, m.HeadParameters()...)
}

// StemParameters returns the parameters of the stem convolution and
// normalization, the part of the model before the first stage.
func (m *ResNet[B]) StemParameters() []*nn.Parameter[B] {
	return append(m.conv1.Parameters(), m.bn1.Parameters()...)
}

// StageParameters returns the parameters of stage index 0..3.
func (m *ResNet[B]) StageParameters(stage int) []*nn.Parameter[B] {
	if stage < 0 || stage >= len(m.stages) {
		panic(fmt.Sprintf("resnet3d: stage index %d out of range [0, 4)", stage))
	}
	return m.stages[stage].Parameters()
}

// HeadParameters returns the classifier parameters, or nil in
// feature-extractor mode.
func (m *ResNet[B]) HeadParameters() []*nn.Parameter[B] {
	if m.fc == nil {
		return nil
	}
	return m.fc.Parameters()
}

// SetTraining switches every batch normalization in the model between
// batch and running statistics.
func (m *ResNet[B]) SetTraining(training bool) {
	m.bn1.SetTraining(training)
	for _, stage := range m.stages {
		stage.SetTraining(training)
	}
}

// Config returns the configuration the model was built with, defaults
// applied.
func (m *ResNet[B]) Config() Config { return m.config }

// FeatureDim returns the width of the pooled feature vector, 512 times
// the block expansion factor.
func (m *ResNet[B]) FeatureDim() int { return m.featureDim }

// BlocksPerStage returns the number of residual blocks in each stage.
func (m *ResNet[B]) BlocksPerStage() [4]int {
	var counts [4]int
	for i, stage := range m.stages {
		counts[i] = stage.Len()
	}
	return counts
}

// Stage returns the block sequence of stage index 0..3.
func (m *ResNet[B]) Stage(stage int) *nn.Sequential[B] {
	if stage < 0 || stage >= len(m.stages) {
		panic(fmt.Sprintf("resnet3d: stage index %d out of range [0, 4)", stage))
	}
	return m.stages[stage]
}

// StateDict exports the model's tensors under PyTorch-style keys
// ("conv1.weight", "layer2.0.bn1.running_mean", "fc.bias", ...).
func (m *ResNet[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	mergeState(stateDict, "conv1", m.conv1.StateDict())
	mergeState(stateDict, "bn1", m.bn1.StateDict())
	for i, stage := range m.stages {
		mergeState(stateDict, fmt.Sprintf("layer%d", i+1), stage.StateDict())
	}
	if m.fc != nil {
		mergeState(stateDict, "fc", m.fc.StateDict())
	}
	return stateDict
}

// LoadStateDict restores the model's tensors. A missing head section is
// only an error when the model has a head.
func (m *ResNet[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := m.conv1.LoadStateDict(extractState(stateDict, "conv1")); err != nil {
		return fmt.Errorf("conv1: %w", err)
	}
	if err := m.bn1.LoadStateDict(extractState(stateDict, "bn1")); err != nil {
		return fmt.Errorf("bn1: %w", err)
	}
	for i, stage := range m.stages {
		name := fmt.Sprintf("layer%d", i+1)
		if err := stage.LoadStateDict(extractState(stateDict, name)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if m.fc != nil {
		if err := m.fc.LoadStateDict(extractState(stateDict, "fc")); err != nil {
			return fmt.Errorf("fc: %w", err)
		}
	}
	return nil
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
