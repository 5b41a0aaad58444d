// Package optim implements the optimization algorithms used to train
// and fine-tune models: SGD with momentum and weight decay, and Adam.
//
// Both optimizers support parameter groups with per-group learning rate
// scales, the mechanism behind staged fine-tuning: earlier stages get
// scale 0 (frozen), later stages train at the full rate.
//
// Design inspired by PyTorch's torch.optim but adapted for Go with type
// safety.
package optim

import (
	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters, taking the
	// gradient map produced by autodiff.Backward.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients. Call before each
	// backward pass so gradients do not accumulate across iterations.
	ZeroGrad()

	// GetLR returns the base learning rate.
	GetLR() float32
}

// ParamGroup is a set of parameters sharing a learning rate scale.
// The effective rate for the group is LR * LRScale; a scale of zero
// freezes the group while still keeping it addressable by name.
type ParamGroup[B tensor.Backend] struct {
	Params  []*nn.Parameter[B]
	LRScale float32
}

// SingleGroup wraps a flat parameter list as one full-rate group.
func SingleGroup[B tensor.Backend](params []*nn.Parameter[B]) []ParamGroup[B] {
	return []ParamGroup[B]{{Params: params, LRScale: 1}}
}

// getGradient retrieves the gradient for a parameter, or nil if the
// parameter did not participate in the recorded forward pass.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
