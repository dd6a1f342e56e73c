package env

import (
	"fmt"
	"math/rand"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

const (
	defaultCatchSize = 10
	paddleWidth      = 3
	pixelOn          = 255
)

// Catch is a pixel task: a ball falls one row per step from a random column
// and the agent moves a paddle along the bottom row to catch it. Actions
// are 0 left, 1 stay, 2 right. Reaching the bottom row ends the episode
// with reward +1 if caught and -1 otherwise.
type Catch struct {
	width, height int

	ballX, ballY int
	paddle       int // leftmost paddle column
	done         bool
	rng          *rand.Rand
}

// NewCatch creates a width x height catch grid. Zero sizes default to 10.
func NewCatch(width, height int, rng *rand.Rand) (*Catch, error) {
	if width == 0 {
		width = defaultCatchSize
	}
	if height == 0 {
		height = defaultCatchSize
	}
	if width < paddleWidth || height < 2 {
		return nil, fmt.Errorf("%w: catch grid %dx%d too small", rl.ErrInvalidConfig, width, height)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Catch{width: width, height: height, rng: rng, done: true}, nil
}

// Reset implements Environment.
func (e *Catch) Reset() ([]uint8, error) {
	e.ballX = e.rng.Intn(e.width)
	e.ballY = 0
	e.paddle = (e.width - paddleWidth) / 2
	e.done = false
	return e.frame(), nil
}

// Step implements Environment.
func (e *Catch) Step(action int) ([]uint8, float64, bool, error) {
	if e.done {
		return nil, 0, true, fmt.Errorf("catch: step after episode end")
	}
	if action < 0 || action >= 3 {
		return nil, 0, false, fmt.Errorf("catch: invalid action %d", action)
	}

	e.paddle += action - 1
	if e.paddle < 0 {
		e.paddle = 0
	}
	if limit := e.width - paddleWidth; e.paddle > limit {
		e.paddle = limit
	}
	e.ballY++

	if e.ballY < e.height-1 {
		return e.frame(), 0, false, nil
	}

	e.done = true
	if e.ballX >= e.paddle && e.ballX < e.paddle+paddleWidth {
		return nil, 1, true, nil
	}
	return nil, -1, true, nil
}

// ObservationShape implements Environment.
func (e *Catch) ObservationShape() rl.Shape {
	return rl.Shape{e.height, e.width}
}

// ActionSize implements Environment.
func (e *Catch) ActionSize() int {
	return 3
}

func (e *Catch) frame() []uint8 {
	f := make([]uint8, e.width*e.height)
	f[e.ballY*e.width+e.ballX] = pixelOn
	row := (e.height - 1) * e.width
	for c := e.paddle; c < e.paddle+paddleWidth; c++ {
		f[row+c] = pixelOn
	}
	return f
}
