// Package history provides the fixed-length sliding window of recent
// observations used to assemble stacked states.
package history

import (
	"fmt"

	"github.com/gammazero/deque"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// Window keeps the last Capacity frames of an episode. It never grows:
// appending to a full window evicts the oldest frame.
type Window[S rl.Element] struct {
	frames    *deque.Deque[[]S]
	capacity  int
	depth     int
	frameSize int
}

// New creates a window holding capacity frames of frameSize elements. depth
// is the number of frames that form one state (K); capacity is K for
// on-policy agents and K+1 when the window also carries the next state.
func New[S rl.Element](capacity, depth, frameSize int) (*Window[S], error) {
	if depth <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: depth and frame size must be positive", rl.ErrInvalidConfig)
	}
	if capacity != depth && capacity != depth+1 {
		return nil, fmt.Errorf("%w: capacity must be depth or depth+1", rl.ErrInvalidConfig)
	}

	w := &Window[S]{
		frames:    deque.New[[]S](capacity),
		capacity:  capacity,
		depth:     depth,
		frameSize: frameSize,
	}
	w.Reset()
	return w, nil
}

// Reset refills the window with zero frames.
func (w *Window[S]) Reset() {
	w.frames.Clear()
	for i := 0; i < w.capacity; i++ {
		w.frames.PushBack(make([]S, w.frameSize))
	}
}

// Append pushes a copy of frame, evicting the oldest frame. A nil frame
// stands for a terminal step without an observation and is stored as zeros.
func (w *Window[S]) Append(frame []S) error {
	stored := make([]S, w.frameSize)
	if frame != nil {
		if len(frame) != w.frameSize {
			return rl.ShapeError("frame", w.frameSize, len(frame))
		}
		copy(stored, frame)
	}

	if w.frames.Len() == w.capacity {
		w.frames.PopFront()
	}
	w.frames.PushBack(stored)
	return nil
}

// State concatenates the first depth frames, or every frame when complete
// is set.
func (w *Window[S]) State(complete bool) []S {
	n := w.depth
	if complete {
		n = w.capacity
	}
	return w.concat(0, n)
}

// Recent concatenates the newest depth frames. With a depth+1 window this is
// the observation the next action is chosen from; after the following
// Append it becomes the leading part of State(true).
func (w *Window[S]) Recent() []S {
	return w.concat(w.capacity-w.depth, w.capacity)
}

// Capacity returns the number of frames held.
func (w *Window[S]) Capacity() int {
	return w.capacity
}

// Depth returns the number of frames per state.
func (w *Window[S]) Depth() int {
	return w.depth
}

// FrameSize returns the number of elements per frame.
func (w *Window[S]) FrameSize() int {
	return w.frameSize
}

func (w *Window[S]) concat(from, to int) []S {
	out := make([]S, 0, (to-from)*w.frameSize)
	for i := from; i < to; i++ {
		out = append(out, w.frames.At(i)...)
	}
	return out
}
