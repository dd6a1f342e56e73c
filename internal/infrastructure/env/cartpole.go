package env

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

const (
	gravity        = 9.8
	massCart       = 1.0
	massPole       = 0.1
	poleLength     = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * poleLength
	forceMag       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0

	// CartPoleMaxSteps caps the episode length.
	CartPoleMaxSteps = 500
)

// CartPole is the classic pole-balancing task. The observation is
// (x, x_dot, theta, theta_dot); action 0 pushes left and 1 pushes right.
// Every step, including the last, earns a reward of 1.
type CartPole struct {
	x, xDot, theta, thetaDot float64

	steps int
	done  bool
	rng   *rand.Rand
}

// NewCartPole creates a cart-pole environment.
func NewCartPole(rng *rand.Rand) *CartPole {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &CartPole{rng: rng, done: true}
}

// Reset implements Environment.
func (e *CartPole) Reset() ([]float32, error) {
	e.x = e.rng.Float64()*0.1 - 0.05
	e.xDot = e.rng.Float64()*0.1 - 0.05
	e.theta = e.rng.Float64()*0.1 - 0.05
	e.thetaDot = e.rng.Float64()*0.1 - 0.05
	e.steps = 0
	e.done = false
	return e.observe(), nil
}

// Step implements Environment.
func (e *CartPole) Step(action int) ([]float32, float64, bool, error) {
	if e.done {
		return nil, 0, true, fmt.Errorf("cartpole: step after episode end")
	}
	if action < 0 || action >= 2 {
		return nil, 0, false, fmt.Errorf("cartpole: invalid action %d", action)
	}

	force := forceMag
	if action == 0 {
		force = -forceMag
	}

	cosTheta := math.Cos(e.theta)
	sinTheta := math.Sin(e.theta)

	temp := (force + poleMassLength*e.thetaDot*e.thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) / (poleLength * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	e.x += tau * e.xDot
	e.xDot += tau * xAcc
	e.theta += tau * e.thetaDot
	e.thetaDot += tau * thetaAcc
	e.steps++

	e.done = e.x < -xThreshold || e.x > xThreshold ||
		e.theta < -thetaThreshold || e.theta > thetaThreshold ||
		e.steps >= CartPoleMaxSteps
	if e.done {
		return nil, 1, true, nil
	}
	return e.observe(), 1, false, nil
}

// ObservationShape implements Environment.
func (e *CartPole) ObservationShape() rl.Shape {
	return rl.Shape{4}
}

// ActionSize implements Environment.
func (e *CartPole) ActionSize() int {
	return 2
}

func (e *CartPole) observe() []float32 {
	return []float32{float32(e.x), float32(e.xDot), float32(e.theta), float32(e.thetaDot)}
}
