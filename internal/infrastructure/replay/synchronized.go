package replay

import (
	"math/rand"
	"sync"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

// Synchronized serialises access to a Buffer so that concurrent producers
// cannot race on the write position.
type Synchronized[S rl.Element] struct {
	mu  sync.Mutex
	buf *Buffer[S]
}

// NewSynchronized wraps an existing buffer.
func NewSynchronized[S rl.Element](buf *Buffer[S]) *Synchronized[S] {
	return &Synchronized[S]{buf: buf}
}

// Push writes a transition under the lock.
func (s *Synchronized[S]) Push(state []S, action []int64, reward float64, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Push(state, action, reward, done)
}

// Sample draws a batch under the lock. rng is only used while the lock is
// held, so a shared source is safe here.
func (s *Synchronized[S]) Sample(rng *rand.Rand, batchSize int) (Batch[S], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Sample(rng, batchSize)
}

// Len returns the number of filled slots.
func (s *Synchronized[S]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// Unwrap returns the underlying buffer. Callers must not use it while other
// goroutines still hold the wrapper.
func (s *Synchronized[S]) Unwrap() *Buffer[S] {
	return s.buf
}
