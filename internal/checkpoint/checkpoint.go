package checkpoint

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kino-ml/kino/internal/tensor"
)

// State dict key prefixes inside the tensor directory.
const (
	modelPrefix = "model."
	optimPrefix = "optim."
)

// Checkpoint is a snapshot of a training run: the model's state dict,
// optionally the optimizer's, and enough metadata to resume or audit
// the run.
type Checkpoint struct {
	RunID string // stable identifier of the training run
	Model string // model name, e.g. "resnet18"
	Epoch int
	Step  int64
	Loss  float64

	ModelState     map[string]*tensor.RawTensor
	OptimizerState map[string]*tensor.RawTensor // nil when not saved

	Metadata map[string]string
}

// New creates a checkpoint for a fresh training run with a generated
// run ID.
func New(model string, modelState map[string]*tensor.RawTensor) *Checkpoint {
	return &Checkpoint{
		RunID:      uuid.NewString(),
		Model:      model,
		ModelState: modelState,
	}
}

// tensorDict flattens model and optimizer state into one prefixed map.
func (c *Checkpoint) tensorDict() map[string]*tensor.RawTensor {
	dict := make(map[string]*tensor.RawTensor, len(c.ModelState)+len(c.OptimizerState))
	for name, raw := range c.ModelState {
		dict[modelPrefix+name] = raw
	}
	for name, raw := range c.OptimizerState {
		dict[optimPrefix+name] = raw
	}
	return dict
}

// splitTensorDict is the inverse of tensorDict.
func (c *Checkpoint) splitTensorDict(dict map[string]*tensor.RawTensor, hasOptimizer bool) {
	c.ModelState = make(map[string]*tensor.RawTensor)
	if hasOptimizer {
		c.OptimizerState = make(map[string]*tensor.RawTensor)
	}
	for name, raw := range dict {
		switch {
		case strings.HasPrefix(name, modelPrefix):
			c.ModelState[strings.TrimPrefix(name, modelPrefix)] = raw
		case strings.HasPrefix(name, optimPrefix) && hasOptimizer:
			c.OptimizerState[strings.TrimPrefix(name, optimPrefix)] = raw
		}
	}
}
