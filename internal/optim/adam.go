package optim

import (
	"fmt"
	"math"

	"github.com/kino-ml/kino/internal/nn"
	"github.com/kino-ml/kino/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2015) with
// bias-corrected first and second moment estimates.
type Adam[B tensor.Backend] struct {
	groups  []ParamGroup[B]
	lr      float32
	beta1   float32
	beta2   float32
	eps     float32
	step    int
	moments map[*nn.Parameter[B]]*adamMoments
	backend B
}

type adamMoments struct {
	m []float32 // first moment
	v []float32 // second moment
}

// AdamConfig holds the Adam hyperparameters.
type AdamConfig struct {
	LR    float32 // learning rate (default 0.001)
	Beta1 float32 // first moment decay (default 0.9)
	Beta2 float32 // second moment decay (default 0.999)
	Eps   float32 // numerical stability term (default 1e-8)
}

// NewAdam creates an Adam optimizer over a flat parameter list.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return NewAdamWithGroups(SingleGroup(params), config, backend)
}

// NewAdamWithGroups creates an Adam optimizer over parameter groups
// with individual learning rate scales.
func NewAdamWithGroups[B tensor.Backend](groups []ParamGroup[B], config AdamConfig, backend B) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Beta1 == 0 {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		groups:  groups,
		lr:      config.LR,
		beta1:   config.Beta1,
		beta2:   config.Beta2,
		eps:     config.Eps,
		moments: make(map[*nn.Parameter[B]]*adamMoments),
		backend: backend,
	}
}

// Step applies one Adam update to every unfrozen parameter that
// received a gradient.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.step++

	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.step)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.step)))

	for _, group := range a.groups {
		if group.LRScale == 0 {
			continue
		}
		lr := a.lr * group.LRScale

		for _, param := range group.Params {
			grad := getGradient(param, grads)
			if grad == nil {
				continue
			}
			a.update(param, grad.AsFloat32(), lr, correction1, correction2)
		}
	}
}

func (a *Adam[B]) update(param *nn.Parameter[B], grad []float32, lr, correction1, correction2 float32) {
	data := param.Tensor().Data()

	moments, ok := a.moments[param]
	if !ok {
		moments = &adamMoments{
			m: make([]float32, len(data)),
			v: make([]float32, len(data)),
		}
		a.moments[param] = moments
	}

	for i := range data {
		g := grad[i]
		moments.m[i] = a.beta1*moments.m[i] + (1-a.beta1)*g
		moments.v[i] = a.beta2*moments.v[i] + (1-a.beta2)*g*g

		mHat := moments.m[i] / correction1
		vHat := moments.v[i] / correction2

		data[i] -= lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
}

// ZeroGrad clears all parameter gradients.
func (a *Adam[B]) ZeroGrad() {
	for _, group := range a.groups {
		for _, param := range group.Params {
			param.ZeroGrad()
		}
	}
}

// GetLR returns the base learning rate.
func (a *Adam[B]) GetLR() float32 { return a.lr }

// StateDict exports the moment buffers, keyed by group and parameter
// index.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for gi, group := range a.groups {
		for pi, param := range group.Params {
			moments, ok := a.moments[param]
			if !ok {
				continue
			}
			stateDict[fmt.Sprintf("m.%d.%d", gi, pi)] = a.exportBuffer(param, moments.m)
			stateDict[fmt.Sprintf("v.%d.%d", gi, pi)] = a.exportBuffer(param, moments.v)
		}
	}
	return stateDict
}

func (a *Adam[B]) exportBuffer(param *nn.Parameter[B], buf []float32) *tensor.RawTensor {
	raw, err := tensor.NewRaw(param.Tensor().Shape(), tensor.Float32, a.backend.Device())
	if err != nil {
		panic(fmt.Sprintf("adam: failed to export moment: %v", err))
	}
	copy(raw.AsFloat32(), buf)
	return raw
}

// LoadStateDict restores the moment buffers.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for gi, group := range a.groups {
		for pi, param := range group.Params {
			m, okM := stateDict[fmt.Sprintf("m.%d.%d", gi, pi)]
			v, okV := stateDict[fmt.Sprintf("v.%d.%d", gi, pi)]
			if !okM || !okV {
				continue
			}
			n := param.Tensor().NumElements()
			if m.NumElements() != n || v.NumElements() != n {
				return fmt.Errorf("adam: moment %d.%d size mismatch", gi, pi)
			}
			moments := &adamMoments{m: make([]float32, n), v: make([]float32, n)}
			copy(moments.m, m.AsFloat32())
			copy(moments.v, v.AsFloat32())
			a.moments[param] = moments
		}
	}
	return nil
}
