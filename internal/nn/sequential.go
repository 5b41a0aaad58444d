package nn

import (
	"fmt"

	"github.com/kino-ml/kino/internal/tensor"
)

// Sequential chains modules, feeding each output into the next.
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a module chain.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward runs the input through every module in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, m := range s.modules {
		output = m.Forward(output)
	}
	return output
}

// Parameters returns the parameters of all contained modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// SetTraining propagates the mode to every training-aware child.
func (s *Sequential[B]) SetTraining(training bool) {
	for _, m := range s.modules {
		if ta, ok := m.(TrainingAware); ok {
			ta.SetTraining(training)
		}
	}
}

// Modules returns the contained modules in order.
func (s *Sequential[B]) Modules() []Module[B] { return s.modules }

// Len returns the number of contained modules.
func (s *Sequential[B]) Len() int { return len(s.modules) }

// StateDict returns the tensors of all stateful children, keyed by
// child index ("0.weight", "1.running_mean", ...).
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, m := range s.modules {
		if sm, ok := m.(StatefulModule[B]); ok {
			mergeStateDict(stateDict, fmt.Sprintf("%d", i), sm.StateDict())
		}
	}
	return stateDict
}

// LoadStateDict restores the tensors of all stateful children.
func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, m := range s.modules {
		sm, ok := m.(StatefulModule[B])
		if !ok {
			continue
		}
		if err := sm.LoadStateDict(extractStateDict(stateDict, fmt.Sprintf("%d", i))); err != nil {
			return fmt.Errorf("sequential[%d]: %w", i, err)
		}
	}
	return nil
}
