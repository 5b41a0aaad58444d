package resnet3d_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kino-ml/kino/internal/backend/cpu"
	"github.com/kino-ml/kino/internal/resnet3d"
	"github.com/kino-ml/kino/internal/tensor"
)

// smallConfig keeps forward passes cheap: a 32x32 clip of 8 frames
// collapses to a single spatiotemporal cell after the four stages.
func smallConfig() resnet3d.Config {
	return resnet3d.Config{
		SampleSize:     32,
		SampleDuration: 8,
		NumClasses:     10,
	}
}

func randomClip(backend *cpu.CPUBackend, batch int) *tensor.Tensor[float32, *cpu.CPUBackend] {
	return tensor.Randn[float32](tensor.Shape{batch, 3, 8, 32, 32}, backend)
}

func TestVariants_ForwardShapes(t *testing.T) {
	backend := cpu.New()

	for _, name := range resnet3d.VariantNames() {
		t.Run(name, func(t *testing.T) {
			model, err := resnet3d.NewByName(name, smallConfig(), backend)
			require.NoError(t, err)
			model.SetTraining(false)

			output := model.Forward(randomClip(backend, 1))
			assert.Equal(t, tensor.Shape{1, 10}, output.Shape())
		})
	}
}

func TestVariants_BlockRecipes(t *testing.T) {
	backend := cpu.New()
	config := smallConfig()

	recipes := map[string][4]int{
		"resnet10":  {1, 1, 1, 1},
		"resnet18":  {2, 2, 2, 2},
		"resnet34":  {3, 4, 6, 3},
		"resnet50":  {3, 4, 6, 3},
		"resnet101": {3, 4, 23, 3},
		"resnet152": {3, 8, 36, 3},
		"resnet200": {3, 24, 36, 3},
	}

	for name, want := range recipes {
		model, err := resnet3d.NewByName(name, config, backend)
		require.NoError(t, err)
		assert.Equal(t, want, model.BlocksPerStage(), "recipe of %s", name)
	}
}

func TestNewByName_Unknown(t *testing.T) {
	backend := cpu.New()
	_, err := resnet3d.NewByName("resnet1000", smallConfig(), backend)
	assert.Error(t, err)
}

// Every block in a stage must produce the stage's declared width times
// the block expansion factor.
func TestStageWidths(t *testing.T) {
	backend := cpu.New()
	widths := [4]int{64, 128, 256, 512}

	cases := []struct {
		name      string
		model     *resnet3d.ResNet[*cpu.CPUBackend]
		expansion int
	}{
		{"basic", resnet3d.NewResNet18(smallConfig(), backend), resnet3d.BasicBlockExpansion},
		{"bottleneck", resnet3d.NewResNet50(smallConfig(), backend), resnet3d.BottleneckExpansion},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for stage := 0; stage < 4; stage++ {
				want := widths[stage] * tc.expansion
				for i, m := range tc.model.Stage(stage).Modules() {
					block, ok := m.(interface{ OutChannels() int })
					require.True(t, ok, "stage %d block %d has no channel count", stage, i)
					assert.Equal(t, want, block.OutChannels(), "stage %d block %d", stage, i)
				}
			}
			assert.Equal(t, 512*tc.expansion, tc.model.FeatureDim())
		})
	}
}

func TestResNet_FeatureExtractorMode(t *testing.T) {
	backend := cpu.New()
	config := smallConfig()
	config.NoHead = true

	model := resnet3d.NewResNet10(config, backend)
	model.SetTraining(false)

	output := model.Forward(randomClip(backend, 2))
	assert.Equal(t, tensor.Shape{2, 512}, output.Shape())
	assert.Nil(t, model.HeadParameters())
}

func TestResNet_EvalForwardDeterministic(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)
	model.SetTraining(false)

	clip := randomClip(backend, 1)
	first := model.Forward(clip).Data()
	second := model.Forward(clip).Data()
	assert.Equal(t, first, second)
}

// A training-mode forward must fold batch statistics into the stem's
// running mean.
func TestResNet_TrainingUpdatesRunningStats(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)
	model.SetTraining(true)

	before := model.StateDict()["bn1.running_mean"].Copy().AsFloat32()
	model.Forward(randomClip(backend, 2))
	after := model.StateDict()["bn1.running_mean"].AsFloat32()

	changed := false
	for i := range before {
		if before[i] != after[i] {
			changed = true
			break
		}
	}
	assert.True(t, changed, "running mean unchanged after training forward")
}

func TestResNet_StateDictRoundtrip(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)
	model.SetTraining(false)

	state := model.StateDict()
	for _, key := range []string{
		"conv1.weight",
		"bn1.weight",
		"bn1.running_mean",
		"layer1.0.conv1.weight",
		"layer4.0.downsample.0.weight",
		"fc.weight",
		"fc.bias",
	} {
		assert.Contains(t, state, key)
	}

	restored := resnet3d.NewResNet10(smallConfig(), backend)
	restored.SetTraining(false)
	require.NoError(t, restored.LoadStateDict(state))

	clip := randomClip(backend, 1)
	want := model.Forward(clip).Data()
	got := restored.Forward(clip).Data()
	assert.InDeltaSlice(t, want, got, 1e-6)
}

func TestResNet_InputContract(t *testing.T) {
	backend := cpu.New()
	model := resnet3d.NewResNet10(smallConfig(), backend)

	assert.Panics(t, func() {
		model.Forward(tensor.Randn[float32](tensor.Shape{1, 3, 8, 32}, backend))
	}, "4D input must panic")
	assert.Panics(t, func() {
		model.Forward(tensor.Randn[float32](tensor.Shape{1, 4, 8, 32, 32}, backend))
	}, "wrong channel count must panic")
}
