package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	assert.Equal(t, []float64{2, 3, 5, 7}, got)
}

func TestRenderScores(t *testing.T) {
	var buf bytes.Buffer
	err := RenderScores(&buf, "cartpole dqn", []rl.EpisodeRecord{
		{Episode: 0, Score: 10, MeanLoss: 0.5},
		{Episode: 1, Score: 30, MeanLoss: 0.25},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "cartpole dqn")
	assert.Contains(t, buf.String(), "<html")

	assert.Error(t, RenderScores(&buf, "empty", nil))
}
