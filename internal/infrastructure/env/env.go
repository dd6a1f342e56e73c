// Package env provides the environments agents are trained on.
package env

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// Environment names.
const (
	NameCartPole = "cartpole"
	NameCatch    = "catch"
)

// Environment is an episodic task with discrete actions. Step returns a nil
// observation when the episode ends.
type Environment[S rl.Element] interface {
	Reset() ([]S, error)
	Step(action int) (next []S, reward float64, done bool, err error)
	ObservationShape() rl.Shape
	ActionSize() int
}

// IsPixel reports whether the named environment emits byte frames.
func IsPixel(name string) (bool, error) {
	switch name {
	case NameCartPole:
		return false, nil
	case NameCatch:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", rl.ErrUnknownEnvironment, name)
	}
}

// NewFloat creates a low-dimensional control environment.
func NewFloat(cfg rl.EnvConfig) (Environment[float32], error) {
	switch cfg.Name {
	case NameCartPole:
		return NewCartPole(newRand(cfg.Seed)), nil
	default:
		return nil, fmt.Errorf("%w: %q has no float observations", rl.ErrUnknownEnvironment, cfg.Name)
	}
}

// NewPixel creates an environment observed through byte frames.
func NewPixel(cfg rl.EnvConfig) (Environment[uint8], error) {
	switch cfg.Name {
	case NameCatch:
		return NewCatch(cfg.Width, cfg.Height, newRand(cfg.Seed))
	default:
		return nil, fmt.Errorf("%w: %q has no pixel observations", rl.ErrUnknownEnvironment, cfg.Name)
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
