// Package replay provides the fixed-capacity experience replay buffer.
package replay

import (
	"fmt"
	"math/rand"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// Buffer is a circular store of transitions backed by pre-allocated flat
// slices. States are kept in their compact element type; conversion to
// floating point happens when a batch is consumed.
//
// Buffer is not safe for concurrent use; see Synchronized.
type Buffer[S rl.Element] struct {
	capacity  int
	stateSize int
	actionDim int

	states  []S
	actions []int64
	rewards []float32
	dones   []bool

	size     int
	position int
}

// Batch is a sampled mini-batch. Rows are laid out contiguously: row i of
// States spans States[i*StateSize:(i+1)*StateSize].
type Batch[S rl.Element] struct {
	Indices   []int
	States    []S
	Actions   []int64
	Rewards   []float64
	Dones     []float64
	StateSize int
	ActionDim int
}

// New creates a buffer holding capacity transitions whose states have
// stateSize elements and whose actions have actionDim components.
func New[S rl.Element](capacity, stateSize, actionDim int) (*Buffer[S], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be greater than zero", rl.ErrInvalidConfig)
	}
	if stateSize <= 0 || actionDim <= 0 {
		return nil, fmt.Errorf("%w: state and action sizes must be greater than zero", rl.ErrInvalidConfig)
	}

	return &Buffer[S]{
		capacity:  capacity,
		stateSize: stateSize,
		actionDim: actionDim,
		states:    make([]S, capacity*stateSize),
		actions:   make([]int64, capacity*actionDim),
		rewards:   make([]float32, capacity),
		dones:     make([]bool, capacity),
	}, nil
}

// Push writes a transition into the slot at the current position and
// advances the position. Once the ring has wrapped, the oldest transition is
// overwritten.
func (b *Buffer[S]) Push(state []S, action []int64, reward float64, done bool) error {
	if len(state) != b.stateSize {
		return rl.ShapeError("state", b.stateSize, len(state))
	}
	if len(action) != b.actionDim {
		return rl.ShapeError("action", b.actionDim, len(action))
	}

	copy(b.states[b.position*b.stateSize:], state)
	copy(b.actions[b.position*b.actionDim:], action)
	b.rewards[b.position] = float32(reward)
	b.dones[b.position] = done

	b.position = (b.position + 1) % b.capacity

	// position wraps to 0 on the push that fills the last slot.
	if b.position == 0 {
		b.size = b.capacity
	} else if b.position > b.size {
		b.size = b.position
	}
	return nil
}

// Sample draws batchSize indices uniformly with replacement from [0, Len()).
func (b *Buffer[S]) Sample(rng *rand.Rand, batchSize int) (Batch[S], error) {
	if batchSize <= 0 {
		return Batch[S]{}, rl.ErrInvalidBatchSize
	}
	if b.size == 0 {
		return Batch[S]{}, rl.ErrEmptyBuffer
	}

	batch := Batch[S]{
		Indices:   make([]int, batchSize),
		States:    make([]S, batchSize*b.stateSize),
		Actions:   make([]int64, batchSize*b.actionDim),
		Rewards:   make([]float64, batchSize),
		Dones:     make([]float64, batchSize),
		StateSize: b.stateSize,
		ActionDim: b.actionDim,
	}

	for i := 0; i < batchSize; i++ {
		idx := rng.Intn(b.size)
		batch.Indices[i] = idx
		copy(batch.States[i*b.stateSize:(i+1)*b.stateSize], b.states[idx*b.stateSize:(idx+1)*b.stateSize])
		copy(batch.Actions[i*b.actionDim:(i+1)*b.actionDim], b.actions[idx*b.actionDim:(idx+1)*b.actionDim])
		batch.Rewards[i] = float64(b.rewards[idx])
		if b.dones[idx] {
			batch.Dones[i] = 1
		}
	}

	return batch, nil
}

// At returns a copy of the transition stored in slot i.
func (b *Buffer[S]) At(i int) (rl.Transition[S], bool) {
	if i < 0 || i >= b.size {
		return rl.Transition[S]{}, false
	}

	t := rl.Transition[S]{
		State:  make([]S, b.stateSize),
		Action: make([]int64, b.actionDim),
		Reward: float64(b.rewards[i]),
		Done:   b.dones[i],
	}
	copy(t.State, b.states[i*b.stateSize:(i+1)*b.stateSize])
	copy(t.Action, b.actions[i*b.actionDim:(i+1)*b.actionDim])
	return t, true
}

// Recent returns the stored transitions ordered from oldest to newest.
func (b *Buffer[S]) Recent() []rl.Transition[S] {
	out := make([]rl.Transition[S], 0, b.size)
	start := 0
	if b.size == b.capacity {
		start = b.position
	}
	for i := 0; i < b.size; i++ {
		t, _ := b.At((start + i) % b.capacity)
		out = append(out, t)
	}
	return out
}

// Len returns the number of filled slots.
func (b *Buffer[S]) Len() int {
	return b.size
}

// Cap returns the capacity.
func (b *Buffer[S]) Cap() int {
	return b.capacity
}

// Position returns the next write slot.
func (b *Buffer[S]) Position() int {
	return b.position
}

// StateSize returns the number of elements per stored state.
func (b *Buffer[S]) StateSize() int {
	return b.stateSize
}

// Row returns the state of sampled row i.
func (bt Batch[S]) Row(i int) []S {
	return bt.States[i*bt.StateSize : (i+1)*bt.StateSize]
}

// Action returns the discrete action of sampled row i.
func (bt Batch[S]) Action(i int) int {
	return int(bt.Actions[i*bt.ActionDim])
}

// Len returns the number of sampled rows.
func (bt Batch[S]) Len() int {
	return len(bt.Indices)
}
