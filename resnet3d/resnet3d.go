// Copyright 2025 Kino ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package resnet3d provides 3D convolutional residual networks for
// spatiotemporal feature extraction, the model family of the Kino ML
// framework.
//
// Example:
//
//	backend := cpu.New()
//	model := resnet3d.NewResNet34(resnet3d.Config{
//	    SampleSize:     112,
//	    SampleDuration: 16,
//	    NoHead:         true, // feature extractor
//	}, backend)
//	features := model.Forward(clip) // [batch, 512]
package resnet3d

import (
	"github.com/kino-ml/kino/internal/optim"
	"github.com/kino-ml/kino/internal/resnet3d"
	"github.com/kino-ml/kino/internal/tensor"
)

// Config describes the input geometry and output surface of a model.
type Config = resnet3d.Config

// ShortcutType selects the residual downsample strategy.
type ShortcutType = resnet3d.ShortcutType

// Shortcut strategies.
const (
	ShortcutTypeA ShortcutType = resnet3d.ShortcutTypeA
	ShortcutTypeB ShortcutType = resnet3d.ShortcutTypeB
)

// ResNet is the backbone container.
type ResNet[B tensor.Backend] = resnet3d.ResNet[B]

// BasicBlock is the two-convolution residual unit of the shallow
// variants.
type BasicBlock[B tensor.Backend] = resnet3d.BasicBlock[B]

// Bottleneck is the three-convolution residual unit of the deep
// variants.
type Bottleneck[B tensor.Backend] = resnet3d.Bottleneck[B]

// Block expansion factors.
const (
	BasicBlockExpansion = resnet3d.BasicBlockExpansion
	BottleneckExpansion = resnet3d.BottleneckExpansion
)

// HeadStage is the FineTuneParameters index that trains only the
// classifier head.
const HeadStage = resnet3d.HeadStage

// NewResNet10 creates the 10-layer variant.
func NewResNet10[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return resnet3d.NewResNet10(config, backend)
}

// NewResNet18 creates the 18-layer variant.
func NewResNet18[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return resnet3d.NewResNet18(config, backend)
}

// NewResNet34 creates the 34-layer variant.
func NewResNet34[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return resnet3d.NewResNet34(config, backend)
}

// NewResNet50 creates the 50-layer variant.
func NewResNet50[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return resnet3d.NewResNet50(config, backend)
}

// NewResNet101 creates the 101-layer variant.
func NewResNet101[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return resnet3d.NewResNet101(config, backend)
}

// NewResNet152 creates the 152-layer variant.
func NewResNet152[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return resnet3d.NewResNet152(config, backend)
}

// NewResNet200 creates the 200-layer variant.
func NewResNet200[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return resnet3d.NewResNet200(config, backend)
}

// NewByName constructs a variant from its name ("resnet18", ...).
func NewByName[B tensor.Backend](name string, config Config, backend B) (*ResNet[B], error) {
	return resnet3d.NewByName(name, config, backend)
}

// VariantNames lists the supported model names in depth order.
func VariantNames() []string {
	return resnet3d.VariantNames()
}

// FineTuneParameters partitions a model's parameters into optimizer
// groups for staged fine-tuning: stages before beginStage are frozen
// at learning rate scale 0, the rest and the head train at full rate.
// beginStage <= 0 returns a single full-rate group.
func FineTuneParameters[B tensor.Backend](model *ResNet[B], beginStage int) []optim.ParamGroup[B] {
	return resnet3d.FineTuneParameters(model, beginStage)
}
