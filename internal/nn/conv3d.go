package nn

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// Conv3D is a volumetric convolutional layer.
//
// Input shape:  [batch, in_channels, depth, height, width]
// Weight shape: [out_channels, in_channels, kd, kh, kw]
// Output shape: [batch, out_channels, d_out, h_out, w_out]
//
// where each output extent is (in + 2*padding - kernel) / stride + 1,
// per axis in (depth, height, width) order.
//
// Weights use Kaiming fan-out initialization; convolutions followed by
// batch normalization are typically created without bias.
type Conv3D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernel      [3]int
	stride      [3]int
	padding     [3]int

	weight *Parameter[B]
	bias   *Parameter[B] // nil unless useBias

	backend B
}

// NewConv3D creates a volumetric convolutional layer. The kernel,
// stride and padding triples are ordered (depth, height, width).
func NewConv3D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding [3]int,
	useBias bool,
	backend B,
) *Conv3D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv3d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	for i := 0; i < 3; i++ {
		if kernel[i] <= 0 {
			panic(fmt.Sprintf("conv3d: invalid kernel %v", kernel))
		}
		if stride[i] <= 0 {
			panic(fmt.Sprintf("conv3d: invalid stride %v", stride))
		}
		if padding[i] < 0 {
			panic(fmt.Sprintf("conv3d: invalid padding %v", padding))
		}
	}

	weightShape := tensor.Shape{outChannels, inChannels, kernel[0], kernel[1], kernel[2]}
	fanOut := outChannels * kernel[0] * kernel[1] * kernel[2]
	weight := NewParameter("weight", KaimingNormal(fanOut, weightShape, backend))

	var bias *Parameter[B]
	if useBias {
		bias = NewParameter("bias", Zeros(tensor.Shape{outChannels}, backend))
	}

	return &Conv3D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernel:      kernel,
		stride:      stride,
		padding:     padding,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward convolves the input with the layer's kernel.
func (c *Conv3D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 5 {
		panic(fmt.Sprintf("conv3d: expected 5D input [N, C, D, H, W], got %v", shape))
	}
	if shape[1] != c.inChannels {
		panic(fmt.Sprintf("conv3d: expected %d input channels, got %d", c.inChannels, shape[1]))
	}

	raw := c.backend.Conv3D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding)
	output := tensor.New[float32](raw, c.backend)

	if c.bias != nil {
		b := c.bias.Tensor().Reshape(1, c.outChannels, 1, 1, 1)
		output = output.Add(b)
	}

	return output
}

// Parameters returns the kernel and, when present, the bias.
func (c *Conv3D[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// Weight returns the kernel parameter.
func (c *Conv3D[B]) Weight() *Parameter[B] { return c.weight }

// Bias returns the bias parameter, or nil.
func (c *Conv3D[B]) Bias() *Parameter[B] { return c.bias }

// OutChannels returns the number of output channels.
func (c *Conv3D[B]) OutChannels() int { return c.outChannels }

// StateDict returns the layer's tensors.
func (c *Conv3D[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := map[string]*tensor.RawTensor{
		"weight": c.weight.Tensor().Raw(),
	}
	if c.bias != nil {
		stateDict["bias"] = c.bias.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict restores the layer's tensors.
func (c *Conv3D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	weight, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("conv3d: missing weight in state dict")
	}
	if err := copyInto(c.weight.Tensor(), weight, "conv3d weight"); err != nil {
		return err
	}

	if c.bias != nil {
		bias, ok := stateDict["bias"]
		if !ok {
			return fmt.Errorf("conv3d: missing bias in state dict")
		}
		if err := copyInto(c.bias.Tensor(), bias, "conv3d bias"); err != nil {
			return err
		}
	}
	return nil
}

// copyInto copies a raw tensor's data into an existing tensor after
// validating shape and dtype.
func copyInto[B tensor.Backend](dst *tensor.Tensor[float32, B], src *tensor.RawTensor, what string) error {
	if !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", what, dst.Shape(), src.Shape())
	}
	if src.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %s", what, src.DType())
	}
	copy(dst.Data(), src.AsFloat32())
	return nil
}
