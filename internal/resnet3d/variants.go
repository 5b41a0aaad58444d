package resnet3d

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// NewResNet10 creates the shallowest variant: one BasicBlock per stage.
func NewResNet10[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return newResNet(basicKind, [4]int{1, 1, 1, 1}, config, backend)
}

// NewResNet18 creates the 18-layer variant: two BasicBlocks per stage.
func NewResNet18[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return newResNet(basicKind, [4]int{2, 2, 2, 2}, config, backend)
}

// NewResNet34 creates the 34-layer variant, the deepest built from
// BasicBlocks.
func NewResNet34[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return newResNet(basicKind, [4]int{3, 4, 6, 3}, config, backend)
}

// NewResNet50 creates the 50-layer variant, the shallowest built from
// Bottlenecks.
func NewResNet50[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return newResNet(bottleneckKind, [4]int{3, 4, 6, 3}, config, backend)
}

// NewResNet101 creates the 101-layer variant.
func NewResNet101[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return newResNet(bottleneckKind, [4]int{3, 4, 23, 3}, config, backend)
}

// NewResNet152 creates the 152-layer variant.
func NewResNet152[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return newResNet(bottleneckKind, [4]int{3, 8, 36, 3}, config, backend)
}

// NewResNet200 creates the deepest variant.
func NewResNet200[B tensor.Backend](config Config, backend B) *ResNet[B] {
	return newResNet(bottleneckKind, [4]int{3, 24, 36, 3}, config, backend)
}

// VariantNames lists the supported model names in depth order.
func VariantNames() []string {
	return []string{
		"resnet10", "resnet18", "resnet34", "resnet50",
		"resnet101", "resnet152", "resnet200",
	}
}

// NewByName constructs a variant from its name ("resnet18", ...).
func NewByName[B tensor.Backend](name string, config Config, backend B) (*ResNet[B], error) {
	switch name {
	case "resnet10":
		return NewResNet10(config, backend), nil
	case "resnet18":
		return NewResNet18(config, backend), nil
	case "resnet34":
		return NewResNet34(config, backend), nil
	case "resnet50":
		return NewResNet50(config, backend), nil
	case "resnet101":
		return NewResNet101(config, backend), nil
	case "resnet152":
		return NewResNet152(config, backend), nil
	case "resnet200":
		return NewResNet200(config, backend), nil
	default:
		return nil, fmt.Errorf("resnet3d: unknown variant %q, supported: %v", name, VariantNames())
	}
}
