// Copyright 2025 Kino ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the neural network building blocks of the Kino
// ML framework: volumetric convolution and pooling layers, batch
// normalization, activations and containers.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	conv := nn.NewConv3D(3, 64, [3]int{3, 3, 3}, [3]int{1, 1, 1}, [3]int{1, 1, 1}, false, backend)
//	out := conv.Forward(clip) // [N, 3, D, H, W] -> [N, 64, D, H, W]
package nn

import (
	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// StatefulModule is a Module whose tensors can be exported and
// restored through a state dictionary.
type StatefulModule[B tensor.Backend] = nn.StatefulModule[B]

// TrainingAware is implemented by modules whose forward pass differs
// between training and evaluation.
type TrainingAware = nn.TrainingAware

// Parameter is a trainable tensor with an associated gradient.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter wraps an initialized tensor as a trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Conv3D is a volumetric convolutional layer.
type Conv3D[B tensor.Backend] = nn.Conv3D[B]

// NewConv3D creates a volumetric convolutional layer. The kernel,
// stride and padding triples are ordered (depth, height, width).
func NewConv3D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding [3]int,
	useBias bool,
	backend B,
) *Conv3D[B] {
	return nn.NewConv3D(inChannels, outChannels, kernel, stride, padding, useBias, backend)
}

// BatchNorm3D normalizes each channel of a volumetric batch.
type BatchNorm3D[B tensor.Backend] = nn.BatchNorm3D[B]

// NewBatchNorm3D creates a batch normalization layer over numFeatures
// channels.
func NewBatchNorm3D[B tensor.Backend](numFeatures int, backend B) *BatchNorm3D[B] {
	return nn.NewBatchNorm3D(numFeatures, backend)
}

// MaxPool3D is a volumetric max pooling layer.
type MaxPool3D[B tensor.Backend] = nn.MaxPool3D[B]

// NewMaxPool3D creates a max pooling layer.
func NewMaxPool3D[B tensor.Backend](kernel, stride, padding [3]int, backend B) *MaxPool3D[B] {
	return nn.NewMaxPool3D(kernel, stride, padding, backend)
}

// AvgPool3D is a volumetric average pooling layer.
type AvgPool3D[B tensor.Backend] = nn.AvgPool3D[B]

// NewAvgPool3D creates an average pooling layer.
func NewAvgPool3D[B tensor.Backend](kernel, stride [3]int, backend B) *AvgPool3D[B] {
	return nn.NewAvgPool3D(kernel, stride, backend)
}

// AdaptiveAvgPool3D averages to a fixed output size regardless of the
// input's spatial extent.
type AdaptiveAvgPool3D[B tensor.Backend] = nn.AdaptiveAvgPool3D[B]

// NewAdaptiveAvgPool3D creates an adaptive average pooling layer.
func NewAdaptiveAvgPool3D[B tensor.Backend](outputSize [3]int, backend B) *AdaptiveAvgPool3D[B] {
	return nn.NewAdaptiveAvgPool3D(outputSize, backend)
}

// ReLU is the rectified linear activation.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Linear is a fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a fully connected layer.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Sequential chains modules, feeding each output into the next.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a module chain.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}
