package worker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/env"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/history"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/logging"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/replay"
)

// EnvFactory creates an independent environment for one worker.
type EnvFactory[S rl.Element] func(worker int) (env.Environment[S], error)

// CollectorConfig contains warm-up collector options.
type CollectorConfig struct {
	// Workers is the number of concurrent environments.
	Workers int

	// Depth is the number of frames in a state; stored stacks hold Depth+1.
	Depth int

	// Seed offsets each worker's action sampling.
	Seed int64
}

// DefaultCollectorConfig returns the default collector configuration.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Workers: 4,
		Depth:   4,
	}
}

// CollectStats summarises a warm-up run.
type CollectStats struct {
	Steps    int64         `json:"steps"`
	Episodes int64         `json:"episodes"`
	Workers  int           `json:"workers"`
	Duration time.Duration `json:"duration"`
}

// Collector fills a replay memory with random-policy transitions from
// several environments at once. All writes go through the synchronized
// buffer.
type Collector[S rl.Element] struct {
	memory  *replay.Synchronized[S]
	factory EnvFactory[S]
	config  CollectorConfig
	logger  zerolog.Logger

	steps    atomic.Int64
	episodes atomic.Int64
}

// NewCollector creates a collector.
func NewCollector[S rl.Element](memory *replay.Synchronized[S], factory EnvFactory[S], config CollectorConfig, logger zerolog.Logger) (*Collector[S], error) {
	if config.Workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive", rl.ErrInvalidConfig)
	}
	if config.Depth <= 0 {
		return nil, fmt.Errorf("%w: depth must be positive", rl.ErrInvalidConfig)
	}
	return &Collector[S]{
		memory:  memory,
		factory: factory,
		config:  config,
		logger:  logging.Component(logger, "collector"),
	}, nil
}

// Run collects until total transitions have been pushed, a worker fails or
// ctx is cancelled.
func (c *Collector[S]) Run(ctx context.Context, total int) (CollectStats, error) {
	start := time.Now()
	c.steps.Store(0)
	c.episodes.Store(0)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, c.config.Workers)

	for w := 0; w < c.config.Workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := c.work(ctx, id, int64(total)); err != nil {
				errCh <- fmt.Errorf("worker %d: %w", id, err)
				cancel()
			}
		}(w)
	}
	wg.Wait()
	close(errCh)

	steps := c.steps.Load()
	if steps > int64(total) {
		steps = int64(total)
	}
	stats := CollectStats{
		Steps:    steps,
		Episodes: c.episodes.Load(),
		Workers:  c.config.Workers,
		Duration: time.Since(start),
	}
	if err := <-errCh; err != nil {
		return stats, err
	}

	c.logger.Info().
		Int64("steps", stats.Steps).
		Int64("episodes", stats.Episodes).
		Int("buffer", c.memory.Len()).
		Dur("took", stats.Duration).
		Msg("replay warm-up finished")

	return stats, ctx.Err()
}

func (c *Collector[S]) work(ctx context.Context, id int, total int64) error {
	e, err := c.factory(id)
	if err != nil {
		return err
	}
	frameSize := e.ObservationShape().Size()
	window, err := history.New[S](c.config.Depth+1, c.config.Depth, frameSize)
	if err != nil {
		return err
	}
	rng := newRand(c.config.Seed, id)

	reset := func() error {
		window.Reset()
		obs, err := e.Reset()
		if err != nil {
			return err
		}
		return window.Append(obs)
	}
	if err := reset(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if c.steps.Add(1) > total {
			return nil
		}

		action := rng.Intn(e.ActionSize())
		next, reward, done, err := e.Step(action)
		if err != nil {
			return err
		}
		if err := window.Append(next); err != nil {
			return err
		}
		if err := c.memory.Push(window.State(true), []int64{int64(action)}, reward, done); err != nil {
			return err
		}

		if done {
			c.episodes.Add(1)
			if err := reset(); err != nil {
				return err
			}
		}
	}
}

func newRand(seed int64, worker int) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + int64(worker)*7919))
}
