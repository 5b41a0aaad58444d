package nn

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// BatchNorm3D normalizes each channel of a [N, C, D, H, W] tensor over
// the batch and all three spatial axes, then applies a learned scale and
// shift.
//
// In training mode the batch statistics are used and folded into running
// estimates; in evaluation mode the running estimates are used. The
// normalization itself is built from differentiable tensor ops, so
// gradients flow to the input and to the scale/shift parameters.
type BatchNorm3D[B tensor.Backend] struct {
	numFeatures int
	eps         float32
	momentum    float32

	gamma *Parameter[B] // scale, initialized to ones
	beta  *Parameter[B] // shift, initialized to zeros

	runningMean *tensor.RawTensor // [C], updated outside the tape
	runningVar  *tensor.RawTensor // [C], unbiased

	training bool
	backend  B
}

// NewBatchNorm3D creates a batch normalization layer for numFeatures
// channels with the usual defaults (eps 1e-5, momentum 0.1). The layer
// starts in training mode.
func NewBatchNorm3D[B tensor.Backend](numFeatures int, backend B) *BatchNorm3D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm3d: invalid feature count %d", numFeatures))
	}

	runningMean, err := tensor.NewRaw(tensor.Shape{numFeatures}, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}
	runningVar, err := tensor.NewRaw(tensor.Shape{numFeatures}, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}
	variance := runningVar.AsFloat32()
	for i := range variance {
		variance[i] = 1
	}

	return &BatchNorm3D[B]{
		numFeatures: numFeatures,
		eps:         1e-5,
		momentum:    0.1,
		gamma:       NewParameter("weight", Ones(tensor.Shape{numFeatures}, backend)),
		beta:        NewParameter("bias", Zeros(tensor.Shape{numFeatures}, backend)),
		runningMean: runningMean,
		runningVar:  runningVar,
		training:    true,
		backend:     backend,
	}
}

// SetTraining switches between batch statistics and running estimates.
func (bn *BatchNorm3D[B]) SetTraining(training bool) { bn.training = training }

// Forward normalizes the input per channel.
func (bn *BatchNorm3D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 5 {
		panic(fmt.Sprintf("batchnorm3d: expected 5D input [N, C, D, H, W], got %v", shape))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm3d: expected %d channels, got %d", bn.numFeatures, shape[1]))
	}

	var mean, variance *tensor.Tensor[float32, B]
	if bn.training {
		mean = channelMean(input)
		centered := input.Sub(mean)
		variance = channelMean(centered.Mul(centered))
		bn.updateRunningStats(mean.Raw(), variance.Raw(), shape)
	} else {
		mean = bn.statTensor(bn.runningMean)
		variance = bn.statTensor(bn.runningVar)
	}

	invStd := variance.AddScalar(bn.eps).Rsqrt()
	normalized := input.Sub(mean).Mul(invStd)

	scale := bn.gamma.Tensor().Reshape(1, bn.numFeatures, 1, 1, 1)
	shift := bn.beta.Tensor().Reshape(1, bn.numFeatures, 1, 1, 1)
	return normalized.Mul(scale).Add(shift)
}

// channelMean reduces [N, C, D, H, W] to [1, C, 1, 1, 1], one mean per
// channel, through recorded ops.
func channelMean[B tensor.Backend](t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return t.MeanDim(0, true).MeanDim(2, true).MeanDim(3, true).MeanDim(4, true)
}

// statTensor lifts a [C] running statistic into a broadcastable
// [1, C, 1, 1, 1] constant.
func (bn *BatchNorm3D[B]) statTensor(stat *tensor.RawTensor) *tensor.Tensor[float32, B] {
	raw, err := tensor.NewRaw(tensor.Shape{1, bn.numFeatures, 1, 1, 1}, tensor.Float32, bn.backend.Device())
	if err != nil {
		panic(err)
	}
	copy(raw.AsFloat32(), stat.AsFloat32())
	return tensor.New[float32](raw, bn.backend)
}

// updateRunningStats folds the batch statistics into the running
// estimates. This touches raw data directly so it is never recorded.
func (bn *BatchNorm3D[B]) updateRunningStats(batchMean, batchVar *tensor.RawTensor, inputShape tensor.Shape) {
	n := inputShape[0] * inputShape[2] * inputShape[3] * inputShape[4]
	unbiased := float32(1)
	if n > 1 {
		unbiased = float32(n) / float32(n-1)
	}

	m := bn.momentum
	runningMean := bn.runningMean.AsFloat32()
	runningVar := bn.runningVar.AsFloat32()
	mean := batchMean.AsFloat32()
	variance := batchVar.AsFloat32()

	for c := 0; c < bn.numFeatures; c++ {
		runningMean[c] = (1-m)*runningMean[c] + m*mean[c]
		runningVar[c] = (1-m)*runningVar[c] + m*variance[c]*unbiased
	}
}

// Parameters returns the scale and shift.
func (bn *BatchNorm3D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.gamma, bn.beta}
}

// Weight returns the scale parameter.
func (bn *BatchNorm3D[B]) Weight() *Parameter[B] { return bn.gamma }

// Bias returns the shift parameter.
func (bn *BatchNorm3D[B]) Bias() *Parameter[B] { return bn.beta }

// RunningMean returns the running mean buffer.
func (bn *BatchNorm3D[B]) RunningMean() *tensor.RawTensor { return bn.runningMean }

// RunningVar returns the running variance buffer.
func (bn *BatchNorm3D[B]) RunningVar() *tensor.RawTensor { return bn.runningVar }

// StateDict returns the parameters and running statistics.
func (bn *BatchNorm3D[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight":       bn.gamma.Tensor().Raw(),
		"bias":         bn.beta.Tensor().Raw(),
		"running_mean": bn.runningMean,
		"running_var":  bn.runningVar,
	}
}

// LoadStateDict restores the parameters and running statistics.
func (bn *BatchNorm3D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for name, dst := range map[string]*tensor.RawTensor{
		"running_mean": bn.runningMean,
		"running_var":  bn.runningVar,
	} {
		src, ok := stateDict[name]
		if !ok {
			return fmt.Errorf("batchnorm3d: missing %s in state dict", name)
		}
		if !src.Shape().Equal(dst.Shape()) {
			return fmt.Errorf("batchnorm3d: %s shape mismatch: expected %v, got %v", name, dst.Shape(), src.Shape())
		}
		copy(dst.AsFloat32(), src.AsFloat32())
	}

	weight, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("batchnorm3d: missing weight in state dict")
	}
	if err := copyInto(bn.gamma.Tensor(), weight, "batchnorm3d weight"); err != nil {
		return err
	}

	bias, ok := stateDict["bias"]
	if !ok {
		return fmt.Errorf("batchnorm3d: missing bias in state dict")
	}
	return copyInto(bn.beta.Tensor(), bias, "batchnorm3d bias")
}
