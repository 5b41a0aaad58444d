// Package ops defines the differentiable operations recorded on the
// gradient tape.
//
// Each operation captures its inputs and output during the forward pass
// and knows how to turn an output gradient into input gradients. The
// heavy backward computations (convolution, pooling) delegate to the
// backend; the rest are compositions of forward ops.
package ops

import "github.com/kino-ml/kino/internal/tensor"

// Operation is one recorded step of the computation graph.
type Operation interface {
	// Backward computes the gradient for each input given the gradient
	// of the output, in input order.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the forward-pass input tensors.
	Inputs() []*tensor.RawTensor

	// Output returns the forward-pass output tensor.
	Output() *tensor.RawTensor
}
