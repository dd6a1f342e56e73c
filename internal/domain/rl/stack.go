package rl

// StackView is a read-only view over one stored stack of Depth+1 frames.
// The current state is frames [0, Depth) and the next state is frames
// [1, Depth+1), so both share the same backing array.
type StackView[S Element] struct {
	Data      []S
	FrameSize int
	Depth     int
}

// NewStackView wraps a stored K+1 frame stack.
func NewStackView[S Element](data []S, frameSize, depth int) (StackView[S], error) {
	if want := frameSize * (depth + 1); len(data) != want {
		return StackView[S]{}, ShapeError("frame stack", want, len(data))
	}
	return StackView[S]{Data: data, FrameSize: frameSize, Depth: depth}, nil
}

// Current returns the first Depth frames.
func (v StackView[S]) Current() []S {
	return v.Data[:v.Depth*v.FrameSize]
}

// Next returns the last Depth frames.
func (v StackView[S]) Next() []S {
	return v.Data[v.FrameSize : (v.Depth+1)*v.FrameSize]
}
