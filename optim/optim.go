// Copyright 2025 Kino ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimization algorithms of the Kino ML
// framework: SGD with momentum and weight decay, and Adam. Both
// support parameter groups with per-group learning rate scales, the
// mechanism behind staged fine-tuning.
//
// Example:
//
//	groups := resnet3d.FineTuneParameters(model, 3)
//	optimizer := optim.NewSGDWithGroups(groups, optim.SGDConfig{LR: 0.01, Momentum: 0.9}, backend)
//
//	optimizer.ZeroGrad()
//	grads := backend.Backward(loss.Raw())
//	optimizer.Step(grads)
package optim

import (
	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/optim"
	"github.com/kino-ml/kino/internal/tensor"
)

// Optimizer is the common interface for all optimizers.
type Optimizer = optim.Optimizer

// ParamGroup is a set of parameters sharing a learning rate scale.
// A scale of zero freezes the group.
type ParamGroup[B tensor.Backend] = optim.ParamGroup[B]

// SingleGroup wraps a flat parameter list as one full-rate group.
func SingleGroup[B tensor.Backend](params []*nn.Parameter[B]) []ParamGroup[B] {
	return optim.SingleGroup(params)
}

// SGD is stochastic gradient descent with momentum and weight decay.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig contains the SGD hyperparameters.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer over a flat parameter list.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// NewSGDWithGroups creates an SGD optimizer over parameter groups.
func NewSGDWithGroups[B tensor.Backend](groups []ParamGroup[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGDWithGroups(groups, config, backend)
}

// Adam is the Adam optimizer with bias correction.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig contains the Adam hyperparameters.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer over a flat parameter list.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdam(params, config, backend)
}

// NewAdamWithGroups creates an Adam optimizer over parameter groups.
func NewAdamWithGroups[B tensor.Backend](groups []ParamGroup[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdamWithGroups(groups, config, backend)
}
