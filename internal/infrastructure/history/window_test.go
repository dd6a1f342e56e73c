package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

func TestNewWindowStartsWithZeroFrames(t *testing.T) {
	w, err := New[uint8](3, 2, 2)
	require.NoError(t, err)

	require.Equal(t, []uint8{0, 0, 0, 0}, w.State(false))
	require.Equal(t, []uint8{0, 0, 0, 0, 0, 0}, w.State(true))
}

func TestNewWindowRejectsBadCapacity(t *testing.T) {
	_, err := New[uint8](5, 2, 2)
	require.ErrorIs(t, err, rl.ErrInvalidConfig)
}

func TestWindowEvictsOldest(t *testing.T) {
	w, err := New[float32](3, 2, 1)
	require.NoError(t, err)

	for _, f := range []float32{1, 2, 3, 4} {
		require.NoError(t, w.Append([]float32{f}))
	}

	require.Equal(t, 3, w.Capacity())
	require.Equal(t, []float32{2, 3, 4}, w.State(true))
	require.Equal(t, []float32{2, 3}, w.State(false))
	require.Equal(t, []float32{3, 4}, w.Recent())
}

func TestWindowStackViewsShareFrames(t *testing.T) {
	w, err := New[uint8](3, 2, 2)
	require.NoError(t, err)
	for _, f := range [][]uint8{{1, 1}, {2, 2}, {3, 3}} {
		require.NoError(t, w.Append(f))
	}

	view, err := rl.NewStackView(w.State(true), 2, 2)
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 1, 2, 2}, view.Current())
	require.Equal(t, []uint8{2, 2, 3, 3}, view.Next())
}

func TestWindowRecentBecomesCurrentAfterAppend(t *testing.T) {
	w, err := New[uint8](3, 2, 1)
	require.NoError(t, err)
	require.NoError(t, w.Append([]uint8{1}))
	require.NoError(t, w.Append([]uint8{2}))

	acted := w.Recent()
	require.NoError(t, w.Append([]uint8{3}))

	view, err := rl.NewStackView(w.State(true), 1, 2)
	require.NoError(t, err)
	require.Equal(t, acted, view.Current())
}

func TestWindowAppendNilIsZeroFrame(t *testing.T) {
	w, err := New[uint8](2, 2, 2)
	require.NoError(t, err)
	require.NoError(t, w.Append([]uint8{7, 7}))
	require.NoError(t, w.Append(nil))

	require.Equal(t, []uint8{7, 7, 0, 0}, w.State(false))
}

func TestWindowAppendCopiesFrame(t *testing.T) {
	w, err := New[uint8](1, 1, 2)
	require.NoError(t, err)

	frame := []uint8{5, 6}
	require.NoError(t, w.Append(frame))
	frame[0] = 99

	require.Equal(t, []uint8{5, 6}, w.State(false))
}

func TestWindowAppendShapeMismatch(t *testing.T) {
	w, err := New[uint8](2, 2, 3)
	require.NoError(t, err)

	require.ErrorIs(t, w.Append([]uint8{1}), rl.ErrShapeMismatch)
}

func TestWindowReset(t *testing.T) {
	w, err := New[uint8](2, 2, 1)
	require.NoError(t, err)
	require.NoError(t, w.Append([]uint8{4}))
	w.Reset()

	require.Equal(t, []uint8{0, 0}, w.State(true))
}
