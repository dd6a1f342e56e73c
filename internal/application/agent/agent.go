// Package agent provides the reinforcement learning agent: the owner of the
// observation window, the replay memory or episode trajectory, and the
// update rule chosen at construction.
package agent

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/checkpoint"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/history"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/logging"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/learning"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/nn"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/replay"
)

// Agent is a single learning agent. It is not safe for concurrent use;
// several agents may coexist since all state lives on the value.
type Agent[S rl.Element] struct {
	config  rl.AgentConfig
	logger  zerolog.Logger
	scale   float64
	targetN int64

	window *history.Window[S]
	memory *replay.Buffer[S]

	learner learning.Learner
	td      *learning.TDLearner[S]
	pg      *learning.PolicyGradientLearner

	episodeReward float64
	scores        []float64
	losses        []float64
}

// Option configures an Agent.
type Option func(*options)

type options struct {
	logger       zerolog.Logger
	rng          *rand.Rand
	batchSize    int
	targetUpdate int64
}

// WithLogger sets the agent's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRand sets the random source for initialisation and exploration.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithBatchSize sets the default replay batch size.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithTargetUpdate sets the step interval between target syncs.
func WithTargetUpdate(steps int64) Option {
	return func(o *options) { o.targetUpdate = steps }
}

// New validates cfg and builds an agent. It fails before allocating any
// component when the configuration is incomplete or names an unsupported
// device or algorithm.
func New[S rl.Element](cfg rl.AgentConfig, opts ...Option) (*Agent[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:       zerolog.Nop(),
		batchSize:    rl.DefaultTrainConfig().BatchSize,
		targetUpdate: int64(rl.DefaultTrainConfig().TargetUpdate),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		o.rng = rand.New(rand.NewSource(seed))
	}
	if o.targetUpdate <= 0 {
		return nil, fmt.Errorf("%w: target update interval must be positive", rl.ErrInvalidConfig)
	}

	logger := logging.Component(o.logger, "agent").With().Str("algorithm", string(cfg.Algorithm)).Logger()
	device, fellBack, err := rl.ResolveDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	if fellBack {
		logger.Warn().Str("requested", cfg.Device).Msg("accelerator not available, training on cpu")
	}
	cfg.Device = device

	a := &Agent[S]{
		config:  cfg,
		logger:  logger,
		scale:   rl.InputScale[S](cfg),
		targetN: o.targetUpdate,
	}

	frameSize := cfg.FrameSize()
	if cfg.Algorithm.OffPolicy() {
		if a.window, err = history.New[S](cfg.StateSize+1, cfg.StateSize, frameSize); err != nil {
			return nil, err
		}
		if a.memory, err = replay.New[S](cfg.ReplaySize, frameSize*(cfg.StateSize+1), 1); err != nil {
			return nil, err
		}
		if a.td, err = learning.NewTD[S](cfg, o.batchSize, a.memory, o.rng); err != nil {
			return nil, err
		}
		a.learner = a.td
	} else {
		if a.window, err = history.New[S](cfg.StateSize, cfg.StateSize, frameSize); err != nil {
			return nil, err
		}
		if a.pg, err = learning.NewPolicyGradient(cfg, o.rng); err != nil {
			return nil, err
		}
		a.learner = a.pg
	}

	a.logger.Debug().
		Int("frameSize", frameSize).
		Int("stateSize", cfg.StateSize).
		Int("actions", cfg.ActionSize).
		Msg("agent created")

	return a, nil
}

// Config returns the agent configuration.
func (a *Agent[S]) Config() rl.AgentConfig {
	return a.config
}

// Algorithm returns the update rule family.
func (a *Agent[S]) Algorithm() rl.Algorithm {
	return a.config.Algorithm
}

// Reset starts a new episode: the window is refilled with zero frames and
// the per-episode scratch is dropped. Steps of an unfinished episode are
// discarded; finished episodes awaiting Optimize are kept.
func (a *Agent[S]) Reset() {
	a.window.Reset()
	a.episodeReward = 0
	a.ClearLosses()
	if a.pg != nil {
		a.pg.Trajectory().Abort()
	}
}

// AppendState pushes an observation into the window. A nil frame marks a
// terminal step.
func (a *Agent[S]) AppendState(frame []S) error {
	return a.window.Append(frame)
}

// State returns the K most recent frames, the state actions are chosen
// from.
func (a *Agent[S]) State() []S {
	return a.window.Recent()
}

// StackedState returns every frame in the window: K+1 frames for replay
// agents, K otherwise.
func (a *Agent[S]) StackedState() []S {
	return a.window.State(true)
}

// Act selects an action for the current state. While exploring, a
// policy-gradient agent also records the step for the next Optimize.
func (a *Agent[S]) Act(explore bool) (rl.Decision, error) {
	features := nn.Features(a.State(), 1, a.scale).RawRowView(0)

	d, err := a.learner.Act(features, explore)
	if err != nil {
		return rl.Decision{}, err
	}
	if a.pg != nil && explore {
		a.pg.Trajectory().Observe(features, d.Action)
	}
	return d, nil
}

// StepEpsilon advances the exploration schedule and returns the new rate.
// Policy-gradient agents have no schedule and return 0.
func (a *Agent[S]) StepEpsilon() float64 {
	if a.td == nil {
		return 0
	}
	return a.td.StepEpsilon()
}

// Epsilon returns the current exploration rate.
func (a *Agent[S]) Epsilon() float64 {
	if a.td == nil {
		return 0
	}
	return a.td.Epsilon()
}

// PushToMemory stores the window's K+1 stack with the action that led from
// the first K frames to the last K.
func (a *Agent[S]) PushToMemory(action int, reward float64, done bool) error {
	if a.memory == nil {
		return fmt.Errorf("%w: %s has no replay memory", rl.ErrInvalidConfig, a.config.Algorithm)
	}
	if action < 0 || action >= a.config.ActionSize {
		return fmt.Errorf("%w: action %d outside [0, %d)", rl.ErrShapeMismatch, action, a.config.ActionSize)
	}
	return a.memory.Push(a.window.State(true), []int64{int64(action)}, reward, done)
}

// Memory returns the replay buffer, nil for policy-gradient agents.
func (a *Agent[S]) Memory() *replay.Buffer[S] {
	return a.memory
}

// Update runs one TD update on a batch of batchSize transitions. It is a
// no-op while the memory holds fewer transitions.
func (a *Agent[S]) Update(batchSize int) (rl.UpdateResult, error) {
	if a.td == nil {
		return rl.UpdateResult{}, fmt.Errorf("%w: %s does not learn from replay", rl.ErrInvalidConfig, a.config.Algorithm)
	}
	res, err := a.td.LearnBatch(batchSize)
	if err != nil {
		return res, err
	}
	if !res.Skipped {
		a.losses = append(a.losses, res.Loss)
	}
	return res, nil
}

// UpdateTarget syncs the target network when step is a multiple of the
// target update interval and reports whether it did.
func (a *Agent[S]) UpdateTarget(step int64) (bool, error) {
	if a.td == nil || step <= 0 || step%a.targetN != 0 {
		return false, nil
	}
	if err := a.td.SyncTarget(); err != nil {
		return false, err
	}
	a.logger.Debug().Int64("step", step).Msg("target network synced")
	return true, nil
}

// RecordReward adds a step reward to the running episode score and, for
// policy-gradient agents, to the trajectory.
func (a *Agent[S]) RecordReward(reward float64) error {
	a.episodeReward += reward
	if a.pg != nil {
		return a.pg.Trajectory().RecordReward(reward)
	}
	return nil
}

// FinishEpisode closes the running episode and returns its score.
func (a *Agent[S]) FinishEpisode() float64 {
	score := a.episodeReward
	a.scores = append(a.scores, score)
	a.episodeReward = 0
	if a.pg != nil {
		a.pg.Trajectory().Finish()
	}
	return score
}

// PendingEpisodes returns the finished episodes awaiting Optimize.
func (a *Agent[S]) PendingEpisodes() int {
	if a.pg == nil {
		return 0
	}
	return a.pg.Trajectory().Pending()
}

// Optimize runs one policy-gradient update over the finished episodes.
func (a *Agent[S]) Optimize() (rl.UpdateResult, error) {
	if a.pg == nil {
		return rl.UpdateResult{}, fmt.Errorf("%w: %s optimises from replay", rl.ErrInvalidConfig, a.config.Algorithm)
	}
	res, err := a.pg.Learn()
	if err != nil {
		return res, err
	}
	a.losses = append(a.losses, res.Loss)
	return res, nil
}

// Snapshot captures the network parameters.
func (a *Agent[S]) Snapshot(step int64) checkpoint.Set {
	return checkpoint.Capture(a.learner.Params(), a.config.Algorithm, step)
}

// Restore loads network parameters and, for TD agents, re-syncs the target
// network.
func (a *Agent[S]) Restore(set checkpoint.Set) error {
	if err := checkpoint.Restore(a.learner.Params(), set); err != nil {
		return err
	}
	if a.td != nil {
		return a.td.SyncTarget()
	}
	return nil
}

// Save writes the network parameters to path and returns their digest.
func (a *Agent[S]) Save(path string, step int64) (string, error) {
	digest, err := checkpoint.SaveFile(path, a.Snapshot(step))
	if err != nil {
		return "", err
	}
	a.logger.Info().Str("path", path).Int64("step", step).Str("digest", digest[:12]).Msg("checkpoint saved")
	return digest, nil
}

// Load reads network parameters written by Save.
func (a *Agent[S]) Load(path string) error {
	set, err := checkpoint.LoadFile(path)
	if err != nil {
		return err
	}
	if err := a.Restore(set); err != nil {
		return err
	}
	a.logger.Info().Str("path", path).Int64("step", set.Step).Msg("checkpoint loaded")
	return nil
}

// Stats returns learner statistics.
func (a *Agent[S]) Stats() rl.Stats {
	return a.learner.Stats()
}

// Scores returns the score of every finished episode.
func (a *Agent[S]) Scores() []float64 {
	return a.scores
}

// Losses returns the update losses recorded since the last ClearLosses.
func (a *Agent[S]) Losses() []float64 {
	return a.losses
}

// ClearLosses empties the loss scratch.
func (a *Agent[S]) ClearLosses() {
	a.losses = a.losses[:0]
}
