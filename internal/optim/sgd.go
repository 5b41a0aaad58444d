package optim

import (
	"fmt"

	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// SGD implements stochastic gradient descent with momentum and weight
// decay.
//
// Update rule:
//
//	g = grad + weightDecay * param
//	velocity = momentum * velocity + g
//	param = param - lr * lrScale * velocity
//
// With momentum 0 the velocity term collapses to the plain update.
type SGD[B tensor.Backend] struct {
	groups      []ParamGroup[B]
	lr          float32
	momentum    float32
	weightDecay float32
	velocities  map[*nn.Parameter[B]][]float32
	backend     B
}

// SGDConfig holds the SGD hyperparameters.
type SGDConfig struct {
	LR          float32 // learning rate (default 0.01)
	Momentum    float32 // momentum factor, in [0, 1)
	WeightDecay float32 // L2 penalty coefficient
}

// NewSGD creates an SGD optimizer over a flat parameter list.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return NewSGDWithGroups(SingleGroup(params), config, backend)
}

// NewSGDWithGroups creates an SGD optimizer over parameter groups with
// individual learning rate scales.
func NewSGDWithGroups[B tensor.Backend](groups []ParamGroup[B], config SGDConfig, backend B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[B]{
		groups:      groups,
		lr:          config.LR,
		momentum:    config.Momentum,
		weightDecay: config.WeightDecay,
		velocities:  make(map[*nn.Parameter[B]][]float32),
		backend:     backend,
	}
}

// Step applies one update to every unfrozen parameter that received a
// gradient.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, group := range s.groups {
		if group.LRScale == 0 {
			continue
		}
		lr := s.lr * group.LRScale

		for _, param := range group.Params {
			grad := getGradient(param, grads)
			if grad == nil {
				continue
			}
			s.update(param, grad.AsFloat32(), lr)
		}
	}
}

func (s *SGD[B]) update(param *nn.Parameter[B], grad []float32, lr float32) {
	data := param.Tensor().Data()

	if s.momentum == 0 {
		for i := range data {
			g := grad[i] + s.weightDecay*data[i]
			data[i] -= lr * g
		}
		return
	}

	velocity, ok := s.velocities[param]
	if !ok {
		velocity = make([]float32, len(data))
		s.velocities[param] = velocity
	}

	for i := range data {
		g := grad[i] + s.weightDecay*data[i]
		velocity[i] = s.momentum*velocity[i] + g
		data[i] -= lr * velocity[i]
	}
}

// ZeroGrad clears all parameter gradients.
func (s *SGD[B]) ZeroGrad() {
	for _, group := range s.groups {
		for _, param := range group.Params {
			param.ZeroGrad()
		}
	}
}

// GetLR returns the base learning rate.
func (s *SGD[B]) GetLR() float32 { return s.lr }

// StateDict exports the momentum buffers, keyed by group and parameter
// index.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for gi, group := range s.groups {
		for pi, param := range group.Params {
			velocity, ok := s.velocities[param]
			if !ok {
				continue
			}
			raw, err := tensor.NewRaw(param.Tensor().Shape(), tensor.Float32, s.backend.Device())
			if err != nil {
				panic(fmt.Sprintf("sgd: failed to export velocity: %v", err))
			}
			copy(raw.AsFloat32(), velocity)
			stateDict[fmt.Sprintf("velocity.%d.%d", gi, pi)] = raw
		}
	}
	return stateDict
}

// LoadStateDict restores the momentum buffers.
func (s *SGD[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for gi, group := range s.groups {
		for pi, param := range group.Params {
			raw, ok := stateDict[fmt.Sprintf("velocity.%d.%d", gi, pi)]
			if !ok {
				continue
			}
			if raw.NumElements() != param.Tensor().NumElements() {
				return fmt.Errorf("sgd: velocity %d.%d has %d elements, want %d",
					gi, pi, raw.NumElements(), param.Tensor().NumElements())
			}
			velocity := make([]float32, raw.NumElements())
			copy(velocity, raw.AsFloat32())
			s.velocities[param] = velocity
		}
	}
	return nil
}
