package training

import (
	"fmt"
)

// Optimizer updates model parameters from accumulated gradients. The learning
// rate is exposed so schedulers and callbacks can adjust it between epochs.
type Optimizer interface {
	Step() error
	ZeroGrad()
	LearningRate() float64
	SetLearningRate(lr float64)
}

// SGD is plain stochastic gradient descent with optional momentum over a
// Parameterized model.
type SGD struct {
	model    Parameterized
	lr       float64
	momentum float64
	velocity [][]float32
}

// NewSGD creates an SGD optimizer. A non-positive learning rate falls back to
// 0.01; momentum 0 disables the velocity term.
func NewSGD(model Parameterized, lr, momentum float64) *SGD {
	if lr <= 0 {
		lr = 0.01
	}
	return &SGD{model: model, lr: lr, momentum: momentum}
}

func (o *SGD) LearningRate() float64 { return o.lr }

func (o *SGD) SetLearningRate(lr float64) { o.lr = lr }

// Step applies p -= lr * g (with momentum when configured) to every
// parameter/gradient pair.
func (o *SGD) Step() error {
	params := o.model.Parameters()
	grads := o.model.Gradients()
	if len(params) != len(grads) {
		return fmt.Errorf("optimizer step: %d parameters but %d gradients", len(params), len(grads))
	}

	if o.momentum > 0 && o.velocity == nil {
		o.velocity = make([][]float32, len(params))
		for i, p := range params {
			o.velocity[i] = make([]float32, p.NumElems)
		}
	}

	for i, p := range params {
		g := grads[i]
		if g == nil {
			continue
		}
		if p.NumElems != g.NumElems {
			return fmt.Errorf("optimizer step: parameter %d has %d elements but gradient has %d", i, p.NumElems, g.NumElems)
		}

		pd, gd := p.Float32s(), g.Float32s()
		if o.momentum > 0 {
			v := o.velocity[i]
			for j := range pd {
				v[j] = float32(o.momentum)*v[j] + gd[j]
				pd[j] -= float32(o.lr) * v[j]
			}
		} else {
			for j := range pd {
				pd[j] -= float32(o.lr) * gd[j]
			}
		}
	}

	return nil
}

// ZeroGrad clears every gradient in place.
func (o *SGD) ZeroGrad() {
	for _, g := range o.model.Gradients() {
		if g == nil {
			continue
		}
		gd := g.Float32s()
		for i := range gd {
			gd[i] = 0
		}
	}
}
