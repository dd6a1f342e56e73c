package replay

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

func pushN(t *testing.T, b *Buffer[uint8], n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		state := []uint8{uint8(i), uint8(i + 1)}
		require.NoError(t, b.Push(state, []int64{int64(i)}, float64(i), i%2 == 0))
	}
}

func TestNewBufferRejectsInvalidSizes(t *testing.T) {
	_, err := New[uint8](0, 2, 1)
	require.ErrorIs(t, err, rl.ErrInvalidConfig)

	_, err = New[uint8](4, 0, 1)
	require.ErrorIs(t, err, rl.ErrInvalidConfig)
}

func TestBufferLenDuringFirstFill(t *testing.T) {
	const capacity = 8
	for n := 0; n <= capacity; n++ {
		b, err := New[uint8](capacity, 2, 1)
		require.NoError(t, err)
		pushN(t, b, n)
		require.Equal(t, n, b.Len(), "after %d pushes", n)
	}
}

func TestBufferRingKeepsMostRecent(t *testing.T) {
	const capacity = 5
	for _, n := range []int{6, 10, 13, 27} {
		b, err := New[uint8](capacity, 2, 1)
		require.NoError(t, err)
		pushN(t, b, n)

		require.Equal(t, capacity, b.Len())
		recent := b.Recent()
		require.Len(t, recent, capacity)
		for i, tr := range recent {
			want := n - capacity + i
			require.Equal(t, int64(want), tr.Action[0])
			require.Equal(t, []uint8{uint8(want), uint8(want + 1)}, tr.State)
			require.Equal(t, float64(want), tr.Reward)
			require.Equal(t, want%2 == 0, tr.Done)
		}
	}
}

func TestBufferSizeSaturatesAfterWrap(t *testing.T) {
	b, err := New[uint8](3, 2, 1)
	require.NoError(t, err)

	pushN(t, b, 3)
	require.Equal(t, 0, b.Position())
	require.Equal(t, 3, b.Len())

	pushN(t, b, 1)
	require.Equal(t, 1, b.Position())
	require.Equal(t, 3, b.Len())
}

func TestBufferPushShapeMismatch(t *testing.T) {
	b, err := New[uint8](4, 3, 1)
	require.NoError(t, err)

	err = b.Push([]uint8{1, 2}, []int64{0}, 0, false)
	require.ErrorIs(t, err, rl.ErrShapeMismatch)

	err = b.Push([]uint8{1, 2, 3}, []int64{0, 1}, 0, false)
	require.ErrorIs(t, err, rl.ErrShapeMismatch)

	require.Equal(t, 0, b.Len(), "rejected pushes must not be stored")
}

func TestBufferSampleEmpty(t *testing.T) {
	b, err := New[float32](4, 1, 1)
	require.NoError(t, err)

	_, err = b.Sample(rand.New(rand.NewSource(1)), 2)
	require.True(t, errors.Is(err, rl.ErrEmptyBuffer))

	require.NoError(t, b.Push([]float32{1}, []int64{0}, 1, false))
	_, err = b.Sample(rand.New(rand.NewSource(1)), 0)
	require.ErrorIs(t, err, rl.ErrInvalidBatchSize)
}

func TestBufferSampleIndicesInRange(t *testing.T) {
	b, err := New[uint8](100, 2, 1)
	require.NoError(t, err)
	pushN(t, b, 7)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		batch, err := b.Sample(rng, 16)
		require.NoError(t, err)
		require.Equal(t, 16, batch.Len())
		for i, idx := range batch.Indices {
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, b.Len())
			// Slot contents must match the sampled row, never zero-filled slots.
			require.Equal(t, []uint8{uint8(idx), uint8(idx + 1)}, batch.Row(i))
			require.Equal(t, idx, batch.Action(i))
		}
	}
}

func TestBufferSampleCastsRewardsAndDones(t *testing.T) {
	b, err := New[uint8](2, 1, 1)
	require.NoError(t, err)
	require.NoError(t, b.Push([]uint8{9}, []int64{1}, -1.5, true))

	batch, err := b.Sample(rand.New(rand.NewSource(3)), 4)
	require.NoError(t, err)
	for i := 0; i < batch.Len(); i++ {
		require.Equal(t, -1.5, batch.Rewards[i])
		require.Equal(t, 1.0, batch.Dones[i])
	}
}

func TestSynchronizedConcurrentPush(t *testing.T) {
	b, err := New[uint8](64, 1, 1)
	require.NoError(t, err)
	s := NewSynchronized(b)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = s.Push([]uint8{uint8(w)}, []int64{int64(i)}, 0, false)
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, 64, s.Len())
	require.Equal(t, (8*50)%64, s.Unwrap().Position())
}
