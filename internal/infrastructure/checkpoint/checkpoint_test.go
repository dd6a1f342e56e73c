package checkpoint

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/nn"
)

func newNet(t *testing.T, seed int64, inputs int) *nn.MLP {
	t.Helper()
	m, err := nn.NewMLP(inputs, 2, []int{4}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return m
}

func TestFileRoundTripRestoresParameters(t *testing.T) {
	src := newNet(t, 1, 3)
	dst := newNet(t, 2, 3)

	path := filepath.Join(t.TempDir(), "nested", FileName("", rl.AlgorithmDQN, 100))
	digest, err := SaveFile(path, Capture(src.Params(), rl.AlgorithmDQN, 100))
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	set, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(100), set.Step)
	require.NoError(t, Restore(dst.Params(), set))

	for i, p := range dst.Params() {
		assert.Equal(t, src.Params()[i].Value, p.Value)
	}
}

func TestLoadFileDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	_, err := SaveFile(path, Capture(newNet(t, 1, 3).Params(), rl.AlgorithmDQN, 1))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-3] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = LoadFile(path)
	assert.ErrorIs(t, err, rl.ErrCheckpointCorrupt)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.ckpt"))
	assert.ErrorIs(t, err, rl.ErrCheckpointNotFound)
}

func TestRestoreRejectsMismatchedNetwork(t *testing.T) {
	set := Capture(newNet(t, 1, 3).Params(), rl.AlgorithmDQN, 1)
	dst := newNet(t, 2, 5)
	before := append([]float64(nil), dst.Params()[0].Value...)

	err := Restore(dst.Params(), set)
	assert.ErrorIs(t, err, rl.ErrCheckpointCorrupt)
	assert.Equal(t, before, dst.Params()[0].Value)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.StartRun(ctx, rl.AlgorithmDQN, "cartpole")
	require.NoError(t, err)

	_, _, err = store.LatestCheckpoint(ctx, runID)
	assert.ErrorIs(t, err, rl.ErrCheckpointNotFound)

	net := newNet(t, 3, 3)
	_, err = store.SaveCheckpoint(ctx, runID, Capture(net.Params(), rl.AlgorithmDQN, 10))
	require.NoError(t, err)
	saved, err := store.SaveCheckpoint(ctx, runID, Capture(net.Params(), rl.AlgorithmDQN, 20))
	require.NoError(t, err)

	cp, set, err := store.LatestCheckpoint(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, cp.ID)
	assert.Equal(t, int64(20), set.Step)
	assert.Equal(t, saved.Digest, cp.Digest)

	for i, score := range []float64{12, 40, 25} {
		require.NoError(t, store.RecordEpisode(ctx, rl.EpisodeRecord{
			RunID:   runID,
			Episode: i,
			Step:    int64(i * 10),
			Length:  10,
			Score:   score,
			EndedAt: time.Now(),
		}))
	}

	episodes, err := store.Episodes(ctx, runID)
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, 40.0, episodes[1].Score)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Episodes)
	assert.Equal(t, 40.0, runs[0].BestScore)
	assert.Equal(t, "cartpole", runs[0].Env)

	require.NoError(t, store.Close())
	_, err = store.Runs(ctx)
	assert.ErrorIs(t, err, rl.ErrStoreClosed)
}
