// Package nn implements the neural network building blocks for
// volumetric (video) models: 3D convolution and pooling layers, batch
// normalization, activations and the containers that compose them.
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/kino-ml/kino/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters. Modules without trainable
	// parameters return an empty slice.
	Parameters() []*Parameter[B]
}

// StatefulModule is a Module whose tensors can be exported and restored
// through a state dictionary, parameters and buffers alike.
type StatefulModule[B tensor.Backend] interface {
	Module[B]

	// StateDict returns a map of tensor names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict restores tensors from a state dictionary.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// TrainingAware is implemented by modules whose forward pass differs
// between training and evaluation, such as batch normalization.
type TrainingAware interface {
	SetTraining(training bool)
}

// mergeStateDict copies src entries into dst under "prefix.name" keys.
func mergeStateDict(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	for name, raw := range src {
		dst[prefix+"."+name] = raw
	}
}

// extractStateDict collects the "prefix.name" entries of src into a map
// keyed by the bare names.
func extractStateDict(src map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for name, raw := range src {
		if len(name) > len(prefix)+1 && name[:len(prefix)+1] == prefix+"." {
			out[name[len(prefix)+1:]] = raw
		}
	}
	return out
}
