package worker

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/env"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/replay"
)

func cartpoles(worker int) (env.Environment[float32], error) {
	return env.NewCartPole(rand.New(rand.NewSource(int64(worker + 1)))), nil
}

func TestCollectorFillsBuffer(t *testing.T) {
	const depth = 2
	buf, err := replay.New[float32](1000, 4*(depth+1), 1)
	require.NoError(t, err)
	memory := replay.NewSynchronized(buf)

	c, err := NewCollector[float32](memory, cartpoles, CollectorConfig{Workers: 4, Depth: depth, Seed: 5}, zerolog.Nop())
	require.NoError(t, err)

	stats, err := c.Run(context.Background(), 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), stats.Steps)
	assert.Equal(t, 300, memory.Len())
	assert.Positive(t, stats.Episodes)

	var dones int
	for _, tr := range buf.Recent() {
		require.Len(t, tr.State, 12)
		require.True(t, tr.Action[0] == 0 || tr.Action[0] == 1)
		if tr.Done {
			dones++
			// The terminal step has no observation; the last frame is zero.
			assert.Equal(t, make([]float32, 4), tr.State[8:])
		}
	}
	assert.EqualValues(t, stats.Episodes, dones)
}

func TestCollectorStopsOnCancel(t *testing.T) {
	buf, err := replay.New[float32](100, 8, 1)
	require.NoError(t, err)

	c, err := NewCollector[float32](replay.NewSynchronized(buf), cartpoles, CollectorConfig{Workers: 2, Depth: 1}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Run(ctx, 1_000_000)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectorPropagatesEnvErrors(t *testing.T) {
	buf, err := replay.New[float32](100, 8, 1)
	require.NoError(t, err)
	boom := errors.New("boom")
	failing := func(int) (env.Environment[float32], error) { return nil, boom }

	c, err := NewCollector[float32](replay.NewSynchronized(buf), failing, CollectorConfig{Workers: 2, Depth: 1}, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.Run(context.Background(), 10)
	assert.ErrorIs(t, err, boom)
}

func TestNewCollectorValidates(t *testing.T) {
	_, err := NewCollector[float32](nil, cartpoles, CollectorConfig{Workers: 0, Depth: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, rl.ErrInvalidConfig)
}
