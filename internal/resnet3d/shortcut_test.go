package resnet3d_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kino-ml/kino/internal/backend/cpu"
	"github.com/kino-ml/kino/internal/resnet3d"
	"github.com/kino-ml/kino/internal/tensor"
)

func TestZeroPadShortcut_SubsampleAndPad(t *testing.T) {
	backend := cpu.New()

	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i + 1)
	}
	input, err := tensor.FromSlice(data, tensor.Shape{1, 2, 2, 2, 2}, backend)
	require.NoError(t, err)

	shortcut := resnet3d.NewZeroPadShortcut[*cpu.CPUBackend](4, [3]int{2, 2, 2}, backend)
	output := shortcut.Forward(input)

	assert.Equal(t, tensor.Shape{1, 4, 1, 1, 1}, output.Shape())
	// The strided subsample keeps each channel's corner element; the
	// two extra channels are zero padding.
	assert.Equal(t, []float32{1, 9, 0, 0}, output.Data())
}

func TestZeroPadShortcut_HasNoParameters(t *testing.T) {
	backend := cpu.New()
	shortcut := resnet3d.NewZeroPadShortcut[*cpu.CPUBackend](128, [3]int{2, 2, 2}, backend)
	assert.Empty(t, shortcut.Parameters())
}

func TestProjectionShortcut_HasParameters(t *testing.T) {
	backend := cpu.New()
	shortcut := resnet3d.NewProjectionShortcut(64, 128, [3]int{2, 2, 2}, backend)

	// 1x1x1 conv weight plus batch-norm gamma and beta.
	assert.Len(t, shortcut.Parameters(), 3)

	input := tensor.Randn[float32](tensor.Shape{1, 64, 2, 4, 4}, backend)
	shortcut.SetTraining(false)
	output := shortcut.Forward(input)
	assert.Equal(t, tensor.Shape{1, 128, 1, 2, 2}, output.Shape())
}

// Switching a whole model to type A shortcuts must remove every
// downsample parameter while keeping the forward contract intact.
func TestShortcutType_ParameterPolicy(t *testing.T) {
	backend := cpu.New()

	configA := smallConfig()
	configA.Shortcut = resnet3d.ShortcutTypeA
	modelA := resnet3d.NewResNet18(configA, backend)

	configB := smallConfig()
	configB.Shortcut = resnet3d.ShortcutTypeB
	modelB := resnet3d.NewResNet18(configB, backend)

	assert.Less(t, len(modelA.Parameters()), len(modelB.Parameters()))

	modelA.SetTraining(false)
	output := modelA.Forward(randomClip(backend, 1))
	assert.Equal(t, tensor.Shape{1, 10}, output.Shape())
}
