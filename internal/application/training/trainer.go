// Package training runs agents against environments: the replay-based TD
// loop, the episodic policy-gradient loop and greedy evaluation.
package training

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/vishalbelsare/cherry-go/internal/application/agent"
	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/checkpoint"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/env"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/logging"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/replay"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/worker"
)

// Store persists run progress. *checkpoint.SQLiteStore implements it.
type Store interface {
	StartRun(ctx context.Context, algorithm rl.Algorithm, envName string) (string, error)
	SaveCheckpoint(ctx context.Context, runID string, set checkpoint.Set) (rl.Checkpoint, error)
	RecordEpisode(ctx context.Context, rec rl.EpisodeRecord) error
}

// Summary describes a finished or interrupted run.
type Summary struct {
	RunID     string        `json:"runId,omitempty"`
	Episodes  int           `json:"episodes"`
	Steps     int64         `json:"steps"`
	BestScore float64       `json:"bestScore"`
	MeanScore float64       `json:"meanScore"`
	Duration  time.Duration `json:"duration"`
}

// Trainer drives one agent through the training loop. It is
// single-threaded; only the optional replay warm-up runs concurrently.
type Trainer[S rl.Element] struct {
	agent   *agent.Agent[S]
	env     env.Environment[S]
	config  rl.TrainConfig
	envName string

	store   Store
	factory worker.EnvFactory[S]
	logger  zerolog.Logger
	out     io.Writer
	au      aurora.Aurora

	runID string
	step  int64
}

// Option configures a Trainer.
type Option[S rl.Element] func(*Trainer[S])

// WithStore records episodes and checkpoints in a run store.
func WithStore[S rl.Element](store Store) Option[S] {
	return func(t *Trainer[S]) { t.store = store }
}

// WithLogger sets the trainer's logger.
func WithLogger[S rl.Element](logger zerolog.Logger) Option[S] {
	return func(t *Trainer[S]) { t.logger = logger }
}

// WithProgress prints one progress line per episode to w.
func WithProgress[S rl.Element](w io.Writer, color bool) Option[S] {
	return func(t *Trainer[S]) {
		t.out = w
		t.au = aurora.NewAurora(color)
	}
}

// WithWarmup enables the concurrent replay warm-up; factory creates one
// environment per worker.
func WithWarmup[S rl.Element](factory worker.EnvFactory[S]) Option[S] {
	return func(t *Trainer[S]) { t.factory = factory }
}

// WithEnvName names the environment in the run store.
func WithEnvName[S rl.Element](name string) Option[S] {
	return func(t *Trainer[S]) { t.envName = name }
}

// New creates a trainer.
func New[S rl.Element](a *agent.Agent[S], e env.Environment[S], config rl.TrainConfig, opts ...Option[S]) (*Trainer[S], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if a == nil || e == nil {
		return nil, fmt.Errorf("%w: agent and environment are required", rl.ErrInvalidConfig)
	}

	t := &Trainer[S]{
		agent:  a,
		env:    e,
		config: config,
		logger: zerolog.Nop(),
		au:     aurora.NewAurora(false),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.Component(t.logger, "trainer")
	return t, nil
}

// RunID returns the run store id, empty without a store.
func (t *Trainer[S]) RunID() string {
	return t.runID
}

// Run trains for the configured number of episodes. Cancelling ctx stops
// the loop between steps and returns the summary so far with ctx.Err().
func (t *Trainer[S]) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{BestScore: math.Inf(-1)}

	if t.store != nil {
		id, err := t.store.StartRun(ctx, t.agent.Algorithm(), t.envName)
		if err != nil {
			return summary, err
		}
		t.runID = id
		summary.RunID = id
	}

	if err := t.warmup(ctx); err != nil {
		return summary, err
	}

	t.logger.Info().
		Str("runId", t.runID).
		Int("episodes", t.config.Episodes).
		Msg("training started")

	var scores []float64
	for episode := 0; episode < t.config.Episodes; episode++ {
		var (
			length int
			err    error
		)
		if t.agent.Algorithm().OffPolicy() {
			length, err = t.replayEpisode(ctx)
		} else {
			length, err = t.policyEpisode(ctx)
		}
		if err != nil {
			summary.finish(scores, t.step, start)
			return summary, err
		}

		score := t.agent.FinishEpisode()
		scores = append(scores, score)

		if !t.agent.Algorithm().OffPolicy() && t.agent.PendingEpisodes() >= t.config.EpisodesPerUpdate {
			if _, err := t.agent.Optimize(); err != nil {
				summary.finish(scores, t.step, start)
				return summary, err
			}
		}

		if err := t.endEpisode(ctx, episode, length, score); err != nil {
			summary.finish(scores, t.step, start)
			return summary, err
		}
	}

	if err := t.save(ctx); err != nil {
		summary.finish(scores, t.step, start)
		return summary, err
	}

	summary.finish(scores, t.step, start)
	t.logger.Info().
		Int("episodes", summary.Episodes).
		Int64("steps", summary.Steps).
		Float64("best", summary.BestScore).
		Float64("mean", summary.MeanScore).
		Dur("took", summary.Duration).
		Msg("training finished")

	return summary, nil
}

func (s *Summary) finish(scores []float64, steps int64, start time.Time) {
	s.Episodes = len(scores)
	s.Steps = steps
	s.Duration = time.Since(start)
	if len(scores) == 0 {
		s.BestScore = 0
		return
	}
	for _, v := range scores {
		s.BestScore = math.Max(s.BestScore, v)
	}
	s.MeanScore = stat.Mean(scores, nil)
}

// warmup pre-fills the replay memory with random-policy transitions.
func (t *Trainer[S]) warmup(ctx context.Context) error {
	memory := t.agent.Memory()
	if memory == nil || t.factory == nil || t.config.WarmupSteps == 0 {
		return nil
	}

	workers := t.config.Workers
	if workers <= 0 {
		workers = 1
	}
	collector, err := worker.NewCollector(replay.NewSynchronized(memory), t.factory, worker.CollectorConfig{
		Workers: workers,
		Depth:   t.agent.Config().StateSize,
		Seed:    t.agent.Config().Seed,
	}, t.logger)
	if err != nil {
		return err
	}

	_, err = collector.Run(ctx, t.config.WarmupSteps)
	return err
}

// replayEpisode runs one episode of the TD loop: per step, decay epsilon,
// act, step the environment, append, store the K+1 stack, update, and sync
// the target network on schedule.
func (t *Trainer[S]) replayEpisode(ctx context.Context) (int, error) {
	t.agent.Reset()
	obs, err := t.env.Reset()
	if err != nil {
		return 0, err
	}
	if err := t.agent.AppendState(obs); err != nil {
		return 0, err
	}

	for length := 1; length <= t.config.MaxSteps; length++ {
		if err := ctx.Err(); err != nil {
			return length - 1, err
		}
		t.step++

		t.agent.StepEpsilon()
		d, err := t.agent.Act(true)
		if err != nil {
			return length, err
		}

		next, reward, done, err := t.env.Step(d.Action)
		if err != nil {
			return length, err
		}
		if err := t.agent.RecordReward(reward); err != nil {
			return length, err
		}
		if err := t.agent.AppendState(next); err != nil {
			return length, err
		}
		if err := t.agent.PushToMemory(d.Action, reward, done); err != nil {
			return length, err
		}
		if _, err := t.agent.Update(t.config.BatchSize); err != nil {
			return length, err
		}
		if _, err := t.agent.UpdateTarget(t.step); err != nil {
			return length, err
		}

		if done {
			return length, nil
		}
	}
	return t.config.MaxSteps, nil
}

// policyEpisode runs one exploring episode, recording it for the next
// policy-gradient update.
func (t *Trainer[S]) policyEpisode(ctx context.Context) (int, error) {
	t.agent.Reset()
	obs, err := t.env.Reset()
	if err != nil {
		return 0, err
	}

	for length := 1; length <= t.config.MaxSteps; length++ {
		if err := ctx.Err(); err != nil {
			return length - 1, err
		}
		t.step++

		if err := t.agent.AppendState(obs); err != nil {
			return length, err
		}
		d, err := t.agent.Act(true)
		if err != nil {
			return length, err
		}

		var reward float64
		var done bool
		obs, reward, done, err = t.env.Step(d.Action)
		if err != nil {
			return length, err
		}
		if err := t.agent.RecordReward(reward); err != nil {
			return length, err
		}
		if done {
			return length, nil
		}
	}
	return t.config.MaxSteps, nil
}

func (t *Trainer[S]) endEpisode(ctx context.Context, episode, length int, score float64) error {
	var meanLoss float64
	if losses := t.agent.Losses(); len(losses) > 0 {
		meanLoss = stat.Mean(losses, nil)
	}
	t.agent.ClearLosses()

	rec := rl.EpisodeRecord{
		RunID:    t.runID,
		Episode:  episode,
		Step:     t.step,
		Length:   length,
		Score:    score,
		MeanLoss: meanLoss,
		Epsilon:  t.agent.Epsilon(),
		EndedAt:  time.Now(),
	}
	if t.store != nil {
		if err := t.store.RecordEpisode(ctx, rec); err != nil {
			return err
		}
	}
	t.progress(rec)

	if t.config.SaveEvery > 0 && (episode+1)%t.config.SaveEvery == 0 {
		return t.save(ctx)
	}
	return nil
}

func (t *Trainer[S]) progress(rec rl.EpisodeRecord) {
	if t.out == nil {
		return
	}
	buffer := 0
	if m := t.agent.Memory(); m != nil {
		buffer = m.Len()
	}
	fmt.Fprintf(t.out, "Step : %d Reward : %s, Loss : %s, Eps : %s, Buffer : %d\n",
		rec.Step,
		t.au.Green(fmt.Sprintf("%.2f", rec.Score)),
		t.au.Yellow(fmt.Sprintf("%.4f", rec.MeanLoss)),
		t.au.Cyan(fmt.Sprintf("%.3f", rec.Epsilon)),
		buffer,
	)
}

// save writes a checkpoint file and, with a store, a checkpoint row.
func (t *Trainer[S]) save(ctx context.Context) error {
	if t.config.OutputDir != "" {
		path := checkpoint.FileName(t.config.OutputDir, t.agent.Algorithm(), t.step)
		if _, err := t.agent.Save(path, t.step); err != nil {
			return err
		}
	}
	if t.store != nil {
		cp, err := t.store.SaveCheckpoint(ctx, t.runID, t.agent.Snapshot(t.step))
		if err != nil {
			return err
		}
		t.logger.Debug().Str("checkpoint", cp.ID).Int64("step", cp.Step).Msg("checkpoint stored")
	}
	return nil
}
