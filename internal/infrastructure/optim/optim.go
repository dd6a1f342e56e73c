// Package optim provides first-order optimizers over nn parameters.
package optim

import (
	"fmt"
	"math"
	"strings"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/nn"
)

// Optimizer names.
const (
	NameSGD     = "sgd"
	NameRMSprop = "rmsprop"
	NameAdam    = "adam"
)

// Optimizer applies accumulated gradients to parameters.
type Optimizer interface {
	// Step descends along the gradients currently stored in params.
	Step(params []*nn.Param)

	// LearningRate returns the step size.
	LearningRate() float64
}

// New creates an optimizer by name with default hyperparameters.
func New(name string, lr float64) (Optimizer, error) {
	if lr <= 0 {
		return nil, fmt.Errorf("%w: learning rate must be positive, got %v", rl.ErrInvalidConfig, lr)
	}
	switch strings.ToLower(name) {
	case NameSGD:
		return NewSGD(lr), nil
	case NameRMSprop, "":
		return NewRMSprop(lr), nil
	case NameAdam:
		return NewAdam(lr), nil
	default:
		return nil, fmt.Errorf("%w: unknown optimizer %q", rl.ErrInvalidConfig, name)
	}
}

// SGD is plain stochastic gradient descent.
type SGD struct {
	lr float64
}

// NewSGD creates an SGD optimizer.
func NewSGD(lr float64) *SGD {
	return &SGD{lr: lr}
}

// Step implements Optimizer.
func (o *SGD) Step(params []*nn.Param) {
	for _, p := range params {
		for i, g := range p.Grad {
			p.Value[i] -= o.lr * g
		}
	}
}

// LearningRate implements Optimizer.
func (o *SGD) LearningRate() float64 { return o.lr }

// RMSprop keeps a running mean of squared gradients per parameter.
type RMSprop struct {
	lr      float64
	alpha   float64
	epsilon float64

	sq map[*nn.Param][]float64
}

// NewRMSprop creates an RMSprop optimizer with alpha 0.99 and epsilon 1e-8.
func NewRMSprop(lr float64) *RMSprop {
	return &RMSprop{
		lr:      lr,
		alpha:   0.99,
		epsilon: 1e-8,
		sq:      make(map[*nn.Param][]float64),
	}
}

// Step implements Optimizer.
func (o *RMSprop) Step(params []*nn.Param) {
	for _, p := range params {
		sq := o.state(p)
		for i, g := range p.Grad {
			sq[i] = o.alpha*sq[i] + (1-o.alpha)*g*g
			p.Value[i] -= o.lr * g / (math.Sqrt(sq[i]) + o.epsilon)
		}
	}
}

// LearningRate implements Optimizer.
func (o *RMSprop) LearningRate() float64 { return o.lr }

func (o *RMSprop) state(p *nn.Param) []float64 {
	s, ok := o.sq[p]
	if !ok {
		s = make([]float64, len(p.Value))
		o.sq[p] = s
	}
	return s
}

// Adam implements bias-corrected adaptive moment estimation.
type Adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	t       int

	m map[*nn.Param][]float64
	v map[*nn.Param][]float64
}

// NewAdam creates an Adam optimizer with betas (0.9, 0.999) and epsilon 1e-8.
func NewAdam(lr float64) *Adam {
	return &Adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
		m:       make(map[*nn.Param][]float64),
		v:       make(map[*nn.Param][]float64),
	}
}

// Step implements Optimizer.
func (o *Adam) Step(params []*nn.Param) {
	o.t++
	c1 := 1 - math.Pow(o.beta1, float64(o.t))
	c2 := 1 - math.Pow(o.beta2, float64(o.t))

	for _, p := range params {
		m, ok := o.m[p]
		if !ok {
			m = make([]float64, len(p.Value))
			o.m[p] = m
			o.v[p] = make([]float64, len(p.Value))
		}
		v := o.v[p]
		for i, g := range p.Grad {
			m[i] = o.beta1*m[i] + (1-o.beta1)*g
			v[i] = o.beta2*v[i] + (1-o.beta2)*g*g
			mHat := m[i] / c1
			vHat := v[i] / c2
			p.Value[i] -= o.lr * mHat / (math.Sqrt(vHat) + o.epsilon)
		}
	}
}

// LearningRate implements Optimizer.
func (o *Adam) LearningRate() float64 { return o.lr }
