// Package schedule provides the exploration schedule for epsilon-greedy
// action selection.
package schedule

import (
	"fmt"
	"math/rand"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// LinearEpsilon decays epsilon linearly from Max to Min over DecaySteps
// calls to Step and then stays at Min.
type LinearEpsilon struct {
	max        float64
	min        float64
	decaySteps int

	steps int
	eps   float64
}

// NewLinear creates a schedule starting at maxEps.
func NewLinear(maxEps, minEps float64, decaySteps int) (*LinearEpsilon, error) {
	if decaySteps <= 0 {
		return nil, fmt.Errorf("%w: eps decay steps must be positive", rl.ErrInvalidConfig)
	}
	if minEps < 0 || minEps > maxEps || maxEps > 1 {
		return nil, fmt.Errorf("%w: need 0 <= min_eps <= max_eps <= 1", rl.ErrInvalidConfig)
	}
	return &LinearEpsilon{
		max:        maxEps,
		min:        minEps,
		decaySteps: decaySteps,
		eps:        maxEps,
	}, nil
}

// Step decays epsilon by (max-min)/decaySteps, clamped at min. It is called
// once per environment step.
//
// The value is recomputed from the step count rather than accumulated so
// that it lands exactly on min after decaySteps calls.
func (e *LinearEpsilon) Step() float64 {
	if e.steps < e.decaySteps {
		e.steps++
	}
	if e.steps >= e.decaySteps {
		e.eps = e.min
		return e.eps
	}

	delta := (e.max - e.min) / float64(e.decaySteps)
	eps := e.max - float64(e.steps)*delta
	if eps < e.min {
		eps = e.min
	}
	e.eps = eps
	return e.eps
}

// Value returns the current exploration rate.
func (e *LinearEpsilon) Value() float64 {
	return e.eps
}

// Reset restores the initial exploration rate.
func (e *LinearEpsilon) Reset() {
	e.steps = 0
	e.eps = e.max
}

// Select chooses an action: the argmax of values when a uniform draw exceeds
// epsilon, a uniformly random index otherwise.
func (e *LinearEpsilon) Select(rng *rand.Rand, values []float64) (action int, greedy bool) {
	if rng.Float64() > e.eps {
		return Argmax(values), true
	}
	return rng.Intn(len(values)), false
}

// Argmax returns the index of the largest value; ties go to the lowest index.
func Argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
