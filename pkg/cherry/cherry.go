// Package cherry provides the public API for cherry-go: deep reinforcement
// learning agents (DQN, double DQN, REINFORCE and actor-critic) with an
// experience-replay buffer, frame-stacked states and a SQLite run store.
//
// Example:
//
//	cfg, err := cherry.LoadConfig("cartpole.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := cherry.Train(ctx, cfg, cherry.TrainOptions{Progress: os.Stdout})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary.BestScore)
package cherry

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/vishalbelsare/cherry-go/internal/application/agent"
	"github.com/vishalbelsare/cherry-go/internal/application/training"
	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/checkpoint"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/config"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/env"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/logging"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/report"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/worker"
)

// Re-export types for public API
type (
	Algorithm     = rl.Algorithm
	Config        = rl.Config
	AgentConfig   = rl.AgentConfig
	TrainConfig   = rl.TrainConfig
	EnvConfig     = rl.EnvConfig
	LogConfig     = rl.LogConfig
	Shape         = rl.Shape
	Decision      = rl.Decision
	UpdateResult  = rl.UpdateResult
	Stats         = rl.Stats
	Checkpoint    = rl.Checkpoint
	EpisodeRecord = rl.EpisodeRecord
	Run           = rl.Run

	// ControlAgent learns from float32 observations.
	ControlAgent = agent.Agent[float32]
	// PixelAgent learns from byte frames.
	PixelAgent = agent.Agent[uint8]
	AgentOption = agent.Option

	Summary = training.Summary
	Store   = checkpoint.SQLiteStore
)

// Algorithms.
const (
	AlgorithmDQN         = rl.AlgorithmDQN
	AlgorithmDoubleDQN   = rl.AlgorithmDoubleDQN
	AlgorithmReinforce   = rl.AlgorithmReinforce
	AlgorithmActorCritic = rl.AlgorithmActorCritic
)

// Environments.
const (
	EnvCartPole = env.NameCartPole
	EnvCatch    = env.NameCatch
)

// Errors.
var (
	ErrShapeMismatch      = rl.ErrShapeMismatch
	ErrEmptyBuffer        = rl.ErrEmptyBuffer
	ErrInvalidBatchSize   = rl.ErrInvalidBatchSize
	ErrEmptyTrajectory    = rl.ErrEmptyTrajectory
	ErrInvalidConfig      = rl.ErrInvalidConfig
	ErrUnsupportedDevice  = rl.ErrUnsupportedDevice
	ErrUnknownAlgorithm   = rl.ErrUnknownAlgorithm
	ErrUnknownEnvironment = rl.ErrUnknownEnvironment
	ErrCheckpointCorrupt  = rl.ErrCheckpointCorrupt
	ErrCheckpointNotFound = rl.ErrCheckpointNotFound
	ErrStoreClosed        = rl.ErrStoreClosed
)

// Agent options.
var (
	WithLogger       = agent.WithLogger
	WithRand         = agent.WithRand
	WithBatchSize    = agent.WithBatchSize
	WithTargetUpdate = agent.WithTargetUpdate
)

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML or JSON configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// LoadConfigFor reads a configuration file with an algorithm override. A
// policy-gradient algorithm starts from the policy-gradient defaults. An
// empty path returns the defaults for the algorithm.
func LoadConfigFor(path string, algorithm Algorithm) (Config, error) {
	return config.LoadFor(path, algorithm)
}

// NewControlAgent creates an agent for float32 observations.
func NewControlAgent(cfg AgentConfig, opts ...AgentOption) (*ControlAgent, error) {
	return agent.New[float32](cfg, opts...)
}

// NewPixelAgent creates an agent for byte frames.
func NewPixelAgent(cfg AgentConfig, opts ...AgentOption) (*PixelAgent, error) {
	return agent.New[uint8](cfg, opts...)
}

// OpenStore opens or creates a SQLite run store.
func OpenStore(path string) (*Store, error) {
	return checkpoint.OpenSQLite(path)
}

// NewLogger builds a logger from the log section of a configuration.
func NewLogger(cfg LogConfig, w io.Writer) (zerolog.Logger, error) {
	return logging.New(cfg.Level, cfg.Pretty, w)
}

// TrainOptions configures Train.
type TrainOptions struct {
	// Progress receives one line per episode when set.
	Progress io.Writer

	// Color enables coloured progress output.
	Color bool

	// Logger receives structured logs. Zero value discards them.
	Logger *zerolog.Logger
}

// Train builds the environment, agent, optional run store and trainer
// described by cfg and runs training.
func Train(ctx context.Context, cfg Config, opts TrainOptions) (Summary, error) {
	if err := config.Validate(cfg); err != nil {
		return Summary{}, err
	}
	pixel, err := env.IsPixel(cfg.Env.Name)
	if err != nil {
		return Summary{}, err
	}
	if pixel {
		return train[uint8](ctx, cfg, opts, env.NewPixel)
	}
	return train[float32](ctx, cfg, opts, env.NewFloat)
}

// Play loads a model file and plays episodes greedily, returning their
// scores.
func Play(ctx context.Context, cfg Config, modelPath string, episodes int) ([]float64, error) {
	pixel, err := env.IsPixel(cfg.Env.Name)
	if err != nil {
		return nil, err
	}
	if pixel {
		return play[uint8](ctx, cfg, modelPath, episodes, env.NewPixel)
	}
	return play[float32](ctx, cfg, modelPath, episodes, env.NewFloat)
}

// Runs lists the runs recorded in a store.
func Runs(ctx context.Context, dbPath string) ([]Run, error) {
	store, err := checkpoint.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Runs(ctx)
}

// Plot renders the score chart of a run as HTML. An empty runID selects the
// most recent run.
func Plot(ctx context.Context, dbPath, runID string, w io.Writer) error {
	store, err := checkpoint.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	title := runID
	if runID == "" {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs in %s", dbPath)
		}
		runID = runs[0].ID
		title = fmt.Sprintf("%s %s", runs[0].Env, runs[0].Algorithm)
	}

	episodes, err := store.Episodes(ctx, runID)
	if err != nil {
		return err
	}
	return report.RenderScores(w, title, episodes)
}

type envFactory[S rl.Element] func(rl.EnvConfig) (env.Environment[S], error)

func train[S rl.Element](ctx context.Context, cfg Config, opts TrainOptions, newEnv envFactory[S]) (Summary, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	e, err := newEnv(cfg.Env)
	if err != nil {
		return Summary{}, err
	}
	if err := config.ApplyEnvironment(&cfg.Agent, e.ObservationShape(), e.ActionSize()); err != nil {
		return Summary{}, err
	}

	agentOpts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithBatchSize(cfg.Train.BatchSize),
		agent.WithTargetUpdate(int64(cfg.Train.TargetUpdate)),
	}
	if cfg.Agent.Seed != 0 {
		agentOpts = append(agentOpts, agent.WithRand(rand.New(rand.NewSource(cfg.Agent.Seed))))
	}
	a, err := agent.New[S](cfg.Agent, agentOpts...)
	if err != nil {
		return Summary{}, err
	}

	trainerOpts := []training.Option[S]{
		training.WithLogger[S](logger),
		training.WithEnvName[S](cfg.Env.Name),
	}
	if opts.Progress != nil {
		trainerOpts = append(trainerOpts, training.WithProgress[S](opts.Progress, opts.Color))
	}
	if cfg.Train.WarmupSteps > 0 {
		var factory worker.EnvFactory[S] = func(w int) (env.Environment[S], error) {
			ec := cfg.Env
			if ec.Seed != 0 {
				ec.Seed += int64(w + 1)
			}
			return newEnv(ec)
		}
		trainerOpts = append(trainerOpts, training.WithWarmup[S](factory))
	}
	if cfg.Train.DBPath != "" {
		store, err := checkpoint.OpenSQLite(cfg.Train.DBPath)
		if err != nil {
			return Summary{}, err
		}
		defer store.Close()
		trainerOpts = append(trainerOpts, training.WithStore[S](store))
	}

	t, err := training.New[S](a, e, cfg.Train, trainerOpts...)
	if err != nil {
		return Summary{}, err
	}
	return t.Run(ctx)
}

func play[S rl.Element](ctx context.Context, cfg Config, modelPath string, episodes int, newEnv envFactory[S]) ([]float64, error) {
	e, err := newEnv(cfg.Env)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnvironment(&cfg.Agent, e.ObservationShape(), e.ActionSize()); err != nil {
		return nil, err
	}

	a, err := agent.New[S](cfg.Agent)
	if err != nil {
		return nil, err
	}
	if err := a.Load(modelPath); err != nil {
		return nil, err
	}

	maxSteps := cfg.Train.MaxSteps
	if maxSteps <= 0 {
		maxSteps = rl.DefaultTrainConfig().MaxSteps
	}
	return training.Evaluate[S](ctx, a, e, episodes, maxSteps)
}
