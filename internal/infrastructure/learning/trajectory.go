package learning

import (
	"fmt"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// Episode is one finished rollout: the feature row, action and reward of
// every step.
type Episode struct {
	Features [][]float64
	Actions  []int
	Rewards  []float64
}

// Len returns the number of steps.
func (e Episode) Len() int {
	return len(e.Actions)
}

// Trajectory accumulates the steps of the running episode and keeps the
// finished episodes that have not been optimised yet.
type Trajectory struct {
	current  Episode
	finished []Episode
}

// Observe records the state and action of a new step.
func (t *Trajectory) Observe(features []float64, action int) {
	t.current.Features = append(t.current.Features, append([]float64(nil), features...))
	t.current.Actions = append(t.current.Actions, action)
}

// RecordReward records the reward of the most recently observed step.
func (t *Trajectory) RecordReward(reward float64) error {
	if len(t.current.Rewards) >= len(t.current.Actions) {
		return fmt.Errorf("%w: reward recorded without a pending action", rl.ErrShapeMismatch)
	}
	t.current.Rewards = append(t.current.Rewards, reward)
	return nil
}

// Finish closes the running episode. Steps without a reward are dropped;
// an episode with no rewarded steps is discarded.
func (t *Trajectory) Finish() {
	ep := t.current
	t.current = Episode{}

	n := len(ep.Rewards)
	if n == 0 {
		return
	}
	ep.Features = ep.Features[:n]
	ep.Actions = ep.Actions[:n]
	t.finished = append(t.finished, ep)
}

// Abort discards the steps of the running episode. Finished episodes are
// kept.
func (t *Trajectory) Abort() {
	t.current = Episode{}
}

// Pending returns the number of finished episodes awaiting an update.
func (t *Trajectory) Pending() int {
	return len(t.finished)
}

// Steps returns the number of steps in the running episode.
func (t *Trajectory) Steps() int {
	return len(t.current.Actions)
}

// Drain returns the finished episodes and clears them.
func (t *Trajectory) Drain() []Episode {
	out := t.finished
	t.finished = nil
	return out
}

// Clear discards all recorded steps.
func (t *Trajectory) Clear() {
	t.current = Episode{}
	t.finished = nil
}
