// Package learning provides the update rules that turn experience into
// network parameter changes: temporal-difference learning over a replay
// buffer and Monte-Carlo policy gradient over finished episodes.
package learning

import (
	"math/rand"
	"time"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/nn"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/replay"
)

// Learner is the update rule chosen when an agent is constructed. The set
// of implementations is closed to this package.
type Learner interface {
	// Algorithm returns the algorithm family.
	Algorithm() rl.Algorithm

	// Act selects an action for one state given as a feature row.
	Act(features []float64, explore bool) (rl.Decision, error)

	// Learn performs one update from the experience gathered so far.
	Learn() (rl.UpdateResult, error)

	// Params returns the parameters that make up a checkpoint.
	Params() []*nn.Param

	// Stats returns learner statistics.
	Stats() rl.Stats

	learner()
}

// Memory is the replay source consumed by the TD learner. Both
// *replay.Buffer and *replay.Synchronized satisfy it.
type Memory[S rl.Element] interface {
	Sample(rng *rand.Rand, batchSize int) (replay.Batch[S], error)
	Len() int
}

// stats is the running bookkeeping shared by all learners.
type stats struct {
	updateCount int64
	avgLoss     float64
	avgLatency  float64
	lastUpdate  time.Time
}

func (s *stats) record(loss float64, start time.Time) float64 {
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	s.updateCount++
	n := float64(s.updateCount)
	s.avgLoss = (s.avgLoss*(n-1) + loss) / n
	s.avgLatency = (s.avgLatency*(n-1) + elapsed) / n
	s.lastUpdate = time.Now()

	return elapsed
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
