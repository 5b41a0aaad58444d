package resnet3d

import (
	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// conv3x3x3 creates a 3x3x3 volumetric convolution with padding 1 and
// no bias. Bias is redundant here because every convolution in the
// network is followed by batch normalization.
func conv3x3x3[B tensor.Backend](inChannels, outChannels int, stride [3]int, backend B) *nn.Conv3D[B] {
	return nn.NewConv3D(inChannels, outChannels,
		[3]int{3, 3, 3}, stride, [3]int{1, 1, 1}, false, backend)
}

// conv1x1x1 creates a pointwise volumetric convolution with no padding
// and no bias, used for channel projection in bottlenecks and
// shortcuts.
func conv1x1x1[B tensor.Backend](inChannels, outChannels int, stride [3]int, backend B) *nn.Conv3D[B] {
	return nn.NewConv3D(inChannels, outChannels,
		[3]int{1, 1, 1}, stride, [3]int{0, 0, 0}, false, backend)
}
