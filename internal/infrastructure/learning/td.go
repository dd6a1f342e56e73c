package learning

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/nn"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/optim"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/schedule"
)

// TDTarget returns the one-step bootstrapped target for a transition. A
// terminal transition's target is its reward; nextValue is not read.
func TDTarget(reward, gamma float64, done bool, nextValue float64) float64 {
	if done {
		return reward
	}
	return reward + gamma*nextValue
}

// TDLearner implements DQN and double DQN over a replay memory of K+1
// frame stacks.
type TDLearner[S rl.Element] struct {
	algorithm rl.Algorithm
	online    *nn.MLP
	target    *nn.MLP
	opt       optim.Optimizer
	memory    Memory[S]
	eps       *schedule.LinearEpsilon
	rng       *rand.Rand

	frameSize int
	depth     int
	scale     float64
	gamma     float64
	clip      float64
	batchSize int

	targetSyncs int64
	stats
}

// NewTD creates a TD learner. The target network starts as a copy of the
// online network.
func NewTD[S rl.Element](cfg rl.AgentConfig, batchSize int, memory Memory[S], rng *rand.Rand) (*TDLearner[S], error) {
	if !cfg.Algorithm.OffPolicy() {
		return nil, fmt.Errorf("%w: %s is not a TD algorithm", rl.ErrInvalidConfig, cfg.Algorithm)
	}
	if batchSize <= 0 {
		return nil, rl.ErrInvalidBatchSize
	}
	if rng == nil {
		rng = newRand(cfg.Seed)
	}

	online, err := nn.NewMLP(cfg.FrameSize()*cfg.StateSize, cfg.ActionSize, cfg.HiddenSizes, rng)
	if err != nil {
		return nil, err
	}
	opt, err := optim.New(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return nil, err
	}
	eps, err := schedule.NewLinear(cfg.MaxEps, cfg.MinEps, cfg.EpsDecay)
	if err != nil {
		return nil, err
	}

	clip := cfg.GradClip
	if clip <= 0 {
		clip = 1
	}
	scale := rl.InputScale[S](cfg)

	return &TDLearner[S]{
		algorithm: cfg.Algorithm,
		online:    online,
		target:    online.Clone(),
		opt:       opt,
		memory:    memory,
		eps:       eps,
		rng:       rng,
		frameSize: cfg.FrameSize(),
		depth:     cfg.StateSize,
		scale:     scale,
		gamma:     cfg.Gamma,
		clip:      clip,
		batchSize: batchSize,
	}, nil
}

// Algorithm implements Learner.
func (l *TDLearner[S]) Algorithm() rl.Algorithm { return l.algorithm }

func (l *TDLearner[S]) learner() {}

// Act returns the epsilon-greedy action over online Q-values, or the greedy
// action when explore is false.
func (l *TDLearner[S]) Act(features []float64, explore bool) (rl.Decision, error) {
	if want := l.online.Inputs(); len(features) != want {
		return rl.Decision{}, rl.ShapeError("state features", want, len(features))
	}

	q, _ := l.online.Forward(mat.NewDense(1, len(features), append([]float64(nil), features...)))
	values := mat.Row(nil, 0, q)

	if !explore {
		return rl.Decision{Action: schedule.Argmax(values), Greedy: true, Values: values}, nil
	}
	action, greedy := l.eps.Select(l.rng, values)
	return rl.Decision{Action: action, Greedy: greedy, Values: values}, nil
}

// StepEpsilon advances the exploration schedule by one environment step.
func (l *TDLearner[S]) StepEpsilon() float64 {
	return l.eps.Step()
}

// Epsilon returns the current exploration rate.
func (l *TDLearner[S]) Epsilon() float64 {
	return l.eps.Value()
}

// Learn runs one update with the configured batch size.
func (l *TDLearner[S]) Learn() (rl.UpdateResult, error) {
	return l.LearnBatch(l.batchSize)
}

// LearnBatch samples batchSize stacks and takes one optimiser step on the
// smooth-L1 TD error. It is a no-op while the memory holds fewer than
// batchSize transitions.
func (l *TDLearner[S]) LearnBatch(batchSize int) (rl.UpdateResult, error) {
	if batchSize <= 0 {
		return rl.UpdateResult{}, rl.ErrInvalidBatchSize
	}
	if l.memory.Len() < batchSize {
		return rl.UpdateResult{Skipped: true, BatchSize: batchSize}, nil
	}
	start := time.Now()

	batch, err := l.memory.Sample(l.rng, batchSize)
	if err != nil {
		return rl.UpdateResult{}, err
	}

	stateLen := l.frameSize * l.depth
	current := make([]S, 0, batchSize*stateLen)
	next := make([]S, 0, batchSize*stateLen)
	for i := 0; i < batchSize; i++ {
		view, err := rl.NewStackView(batch.Row(i), l.frameSize, l.depth)
		if err != nil {
			return rl.UpdateResult{}, err
		}
		current = append(current, view.Current()...)
		next = append(next, view.Next()...)
	}
	x := nn.Features(current, batchSize, l.scale)
	xNext := nn.Features(next, batchSize, l.scale)

	nextValues := l.nextValues(xNext, batch.Dones)

	actions := l.online.Outputs()
	l.online.ZeroGrad()
	q, _ := l.online.Forward(x)
	dQ := mat.NewDense(batchSize, actions, nil)

	var loss float64
	n := float64(batchSize)
	for i := 0; i < batchSize; i++ {
		a := batch.Action(i)
		if a < 0 || a >= actions {
			return rl.UpdateResult{}, fmt.Errorf("%w: action %d outside [0, %d)", rl.ErrShapeMismatch, a, actions)
		}
		target := TDTarget(batch.Rewards[i], l.gamma, batch.Dones[i] != 0, nextValues[i])
		li, gi := nn.SmoothL1(q.At(i, a) - target)
		loss += li / n
		dQ.Set(i, a, gi/n)
	}

	l.online.Backward(dQ, nil)
	params := l.online.Params()
	nn.ClampGrads(params, -l.clip, l.clip)
	l.opt.Step(params)

	return rl.UpdateResult{
		Loss:      loss,
		BatchSize: batchSize,
		LatencyMs: l.record(loss, start),
	}, nil
}

// nextValues evaluates max_a' Q_target(s', a'), or Q_target(s', argmax_a'
// Q_online(s', a')) for double DQN. Terminal rows are left at zero.
func (l *TDLearner[S]) nextValues(xNext *mat.Dense, dones []float64) []float64 {
	out := make([]float64, len(dones))

	qTarget, _ := l.target.Forward(xNext)
	var qOnline *mat.Dense
	if l.algorithm == rl.AlgorithmDoubleDQN {
		qOnline, _ = l.online.Forward(xNext)
	}

	for i := range out {
		if dones[i] != 0 {
			continue
		}
		row := mat.Row(nil, i, qTarget)
		if qOnline != nil {
			out[i] = row[schedule.Argmax(mat.Row(nil, i, qOnline))]
		} else {
			out[i] = row[schedule.Argmax(row)]
		}
	}
	return out
}

// SyncTarget hard-copies the online parameters into the target network.
func (l *TDLearner[S]) SyncTarget() error {
	if err := l.target.CopyFrom(l.online); err != nil {
		return err
	}
	l.targetSyncs++
	return nil
}

// Params implements Learner. Only the online network is checkpointed.
func (l *TDLearner[S]) Params() []*nn.Param {
	return l.online.Params()
}

// Online returns the online network.
func (l *TDLearner[S]) Online() *nn.MLP { return l.online }

// Target returns the target network.
func (l *TDLearner[S]) Target() *nn.MLP { return l.target }

// Stats implements Learner.
func (l *TDLearner[S]) Stats() rl.Stats {
	return rl.Stats{
		Algorithm:   l.algorithm,
		UpdateCount: l.updateCount,
		TargetSyncs: l.targetSyncs,
		BufferSize:  l.memory.Len(),
		Epsilon:     l.eps.Value(),
		AvgLoss:     l.avgLoss,
		LastUpdate:  l.lastUpdate,
	}
}
