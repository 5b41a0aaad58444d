package resnet3d_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kino-ml/kino/internal/backend/cpu"
	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/optim"
	"github.com/kino-ml/kino/internal/resnet3d"
	"github.com/kino-ml/kino/internal/tensor"
)

// countParams collects the parameters of all groups into a set,
// failing on duplicates across groups.
func countParams(t *testing.T, groups []optim.ParamGroup[*cpu.CPUBackend]) map[*nn.Parameter[*cpu.CPUBackend]]bool {
	t.Helper()
	seen := make(map[*nn.Parameter[*cpu.CPUBackend]]bool)
	for _, group := range groups {
		for _, p := range group.Params {
			require.False(t, seen[p], "parameter %s appears in more than one group", p.Name())
			seen[p] = true
		}
	}
	return seen
}

func TestFineTuneParameters_AllStages(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)

	groups := resnet3d.FineTuneParameters(model, 0)
	require.Len(t, groups, 1)
	assert.Equal(t, float32(1), groups[0].LRScale)
	assert.Len(t, groups[0].Params, len(model.Parameters()))
}

// The union of the returned groups must cover the model's parameters
// exactly once, regardless of the split point.
func TestFineTuneParameters_ExactPartition(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet18(smallConfig(), backend)
	all := model.Parameters()

	for beginStage := 1; beginStage <= resnet3d.HeadStage; beginStage++ {
		groups := resnet3d.FineTuneParameters(model, beginStage)
		seen := countParams(t, groups)

		require.Len(t, seen, len(all), "beginStage %d", beginStage)
		for _, p := range all {
			assert.True(t, seen[p], "beginStage %d lost parameter %s", beginStage, p.Name())
		}
	}
}

func TestFineTuneParameters_FreezesEarlierStages(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)

	groups := resnet3d.FineTuneParameters(model, 3)
	require.Len(t, groups, 2)
	assert.Equal(t, float32(1), groups[0].LRScale)
	assert.Equal(t, float32(0), groups[1].LRScale)

	// Frozen: stem, stage 1, stage 2. Trainable: stages 3, 4 and head.
	wantFrozen := len(model.StemParameters()) +
		len(model.StageParameters(0)) + len(model.StageParameters(1))
	wantTrainable := len(model.StageParameters(2)) +
		len(model.StageParameters(3)) + len(model.HeadParameters())

	assert.Len(t, groups[1].Params, wantFrozen)
	assert.Len(t, groups[0].Params, wantTrainable)
}

func TestFineTuneParameters_HeadOnly(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)

	groups := resnet3d.FineTuneParameters(model, resnet3d.HeadStage)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Params, len(model.HeadParameters()))
	assert.Equal(t, float32(0), groups[1].LRScale)
}

func TestFineTuneParameters_OutOfRange(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)
	assert.Panics(t, func() { resnet3d.FineTuneParameters(model, 6) })
}

// End to end: a frozen stem must not move during an optimizer step
// while a trainable head does.
func TestFineTuneParameters_DrivesGroupSGD(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)

	groups := resnet3d.FineTuneParameters(model, resnet3d.HeadStage)
	optimizer := optim.NewSGDWithGroups(groups, optim.SGDConfig{LR: 0.1}, backend)

	stemWeight := model.StemParameters()[0]
	headWeight := model.HeadParameters()[0]
	stemBefore := stemWeight.Tensor().Data()[0]
	headBefore := headWeight.Tensor().Data()[0]

	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	for _, p := range model.Parameters() {
		g := p.Tensor().Raw().Copy()
		ones := g.AsFloat32()
		for i := range ones {
			ones[i] = 1
		}
		grads[p.Tensor().Raw()] = g
	}

	// Filling the gradient buffers must not have touched the parameters.
	assert.Equal(t, stemBefore, stemWeight.Tensor().Data()[0])
	assert.Equal(t, headBefore, headWeight.Tensor().Data()[0])

	optimizer.Step(grads)

	assert.Equal(t, stemBefore, stemWeight.Tensor().Data()[0], "frozen stem moved")
	assert.NotEqual(t, headBefore, headWeight.Tensor().Data()[0], "trainable head did not move")
}
