package env

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

func TestRegistry(t *testing.T) {
	f, err := NewFloat(rl.EnvConfig{Name: NameCartPole, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, rl.Shape{4}, f.ObservationShape())

	p, err := NewPixel(rl.EnvConfig{Name: NameCatch, Width: 5, Height: 6, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, rl.Shape{6, 5}, p.ObservationShape())

	_, err = NewFloat(rl.EnvConfig{Name: NameCatch})
	assert.ErrorIs(t, err, rl.ErrUnknownEnvironment)
	_, err = NewPixel(rl.EnvConfig{Name: "pong"})
	assert.ErrorIs(t, err, rl.ErrUnknownEnvironment)

	pixel, err := IsPixel(NameCatch)
	require.NoError(t, err)
	assert.True(t, pixel)
	_, err = IsPixel("doom")
	assert.ErrorIs(t, err, rl.ErrUnknownEnvironment)
}

func TestCartPoleEpisodeEnds(t *testing.T) {
	e := NewCartPole(rand.New(rand.NewSource(4)))
	obs, err := e.Reset()
	require.NoError(t, err)
	require.Len(t, obs, 4)

	var total float64
	for i := 0; i < CartPoleMaxSteps; i++ {
		next, reward, done, err := e.Step(1)
		require.NoError(t, err)
		total += reward
		if done {
			assert.Nil(t, next)
			break
		}
		require.Len(t, next, 4)
	}
	// Always pushing right tips the pole well before the step cap.
	assert.Less(t, total, float64(CartPoleMaxSteps))

	_, _, _, err = e.Step(0)
	assert.Error(t, err)
}

func TestCartPoleRejectsInvalidAction(t *testing.T) {
	e := NewCartPole(rand.New(rand.NewSource(4)))
	_, err := e.Reset()
	require.NoError(t, err)
	_, _, _, err = e.Step(2)
	assert.Error(t, err)
}

func TestCatchRewards(t *testing.T) {
	e, err := NewCatch(5, 5, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	for episode := 0; episode < 20; episode++ {
		frame, err := e.Reset()
		require.NoError(t, err)
		require.Len(t, frame, 25)

		var reward float64
		var done bool
		for steps := 0; !done; steps++ {
			require.Less(t, steps, 5)
			// Track the ball: move toward its column.
			action := 1
			switch center := e.paddle + 1; {
			case e.ballX < center:
				action = 0
			case e.ballX > center:
				action = 2
			}
			frame, reward, done, err = e.Step(action)
			require.NoError(t, err)
			if !done {
				assert.Equal(t, uint8(pixelOn), frame[e.ballY*5+e.ballX])
			}
		}
		assert.Nil(t, frame)
		assert.Equal(t, 1.0, reward, "tracking policy always catches")
	}
}

func TestCatchMissIsPenalised(t *testing.T) {
	e, err := NewCatch(10, 4, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	for {
		_, err := e.Reset()
		require.NoError(t, err)
		if e.ballX == 0 {
			break
		}
	}
	var reward float64
	var done bool
	for !done {
		_, reward, done, err = e.Step(2)
		require.NoError(t, err)
	}
	assert.Equal(t, -1.0, reward)
}
