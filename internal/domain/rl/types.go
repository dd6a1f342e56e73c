// Package rl provides domain types for the reinforcement learning core.
package rl

import (
	"time"
)

// Algorithm represents a reinforcement learning algorithm family.
type Algorithm string

const (
	// AlgorithmDQN is Deep Q-Network with a hard-synced target network.
	AlgorithmDQN Algorithm = "dqn"
	// AlgorithmDoubleDQN selects next actions with the online network and
	// evaluates them with the target network.
	AlgorithmDoubleDQN Algorithm = "double-dqn"
	// AlgorithmReinforce is baseline-free Monte-Carlo policy gradient.
	AlgorithmReinforce Algorithm = "reinforce"
	// AlgorithmActorCritic is policy gradient with a separate critic network.
	AlgorithmActorCritic Algorithm = "actor-critic"
)

// ParseAlgorithm converts a name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(name); a {
	case AlgorithmDQN, AlgorithmDoubleDQN, AlgorithmReinforce, AlgorithmActorCritic:
		return a, nil
	default:
		return "", &UnknownAlgorithmError{Name: name}
	}
}

// OffPolicy reports whether the algorithm learns from a replay buffer.
func (a Algorithm) OffPolicy() bool {
	return a == AlgorithmDQN || a == AlgorithmDoubleDQN
}

// Element is the storage type of a single observation component. Pixel
// observations are kept as bytes, low-dimensional control observations as
// float32.
type Element interface {
	~uint8 | ~float32
}

// IsByte reports whether S is a byte element type.
func IsByte[S Element]() bool {
	var v S = 255
	v++
	return v == 0
}

// Shape is the dimensions of one observation frame.
type Shape []int

// Size returns the number of elements in a frame of this shape.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether both shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Transition is a single stored experience tuple. State holds the full
// frame stack; the next state is derived from it through a StackView.
type Transition[S Element] struct {
	State  []S     `json:"state"`
	Action []int64 `json:"action"`
	Reward float64 `json:"reward"`
	Done   bool    `json:"done"`
}

// Decision is the outcome of action selection.
type Decision struct {
	// Action is the chosen discrete action index.
	Action int `json:"action"`

	// Greedy is true when the action was the argmax of the network output.
	Greedy bool `json:"greedy"`

	// Values are the raw network outputs (Q-values or logits).
	Values []float64 `json:"values,omitempty"`
}

// UpdateResult represents the result of one learning update.
type UpdateResult struct {
	// Loss is the combined loss that was minimised.
	Loss float64 `json:"loss"`

	// PolicyLoss is the policy-gradient loss.
	PolicyLoss float64 `json:"policyLoss,omitempty"`

	// ValueLoss is the critic regression loss.
	ValueLoss float64 `json:"valueLoss,omitempty"`

	// BatchSize is the number of transitions or steps consumed.
	BatchSize int `json:"batchSize"`

	// Episodes is the number of episodes consumed (policy gradient).
	Episodes int `json:"episodes,omitempty"`

	// Skipped is true when the update was a no-op (buffer warm-up).
	Skipped bool `json:"skipped,omitempty"`

	// LatencyMs is the update latency in milliseconds.
	LatencyMs float64 `json:"latencyMs"`
}

// Stats contains statistics for a learner.
type Stats struct {
	Algorithm   Algorithm `json:"algorithm"`
	UpdateCount int64     `json:"updateCount"`
	TargetSyncs int64     `json:"targetSyncs,omitempty"`
	BufferSize  int       `json:"bufferSize"`
	Epsilon     float64   `json:"epsilon"`
	AvgLoss     float64   `json:"avgLoss"`
	LastUpdate  time.Time `json:"lastUpdate"`
}

// Checkpoint describes a saved network parameter set.
type Checkpoint struct {
	ID        string    `json:"id"`
	RunID     string    `json:"runId"`
	Algorithm Algorithm `json:"algorithm"`
	Step      int64     `json:"step"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"createdAt"`
}

// EpisodeRecord is the per-episode progress written to the run store.
type EpisodeRecord struct {
	RunID    string    `json:"runId"`
	Episode  int       `json:"episode"`
	Step     int64     `json:"step"`
	Length   int       `json:"length"`
	Score    float64   `json:"score"`
	MeanLoss float64   `json:"meanLoss"`
	Epsilon  float64   `json:"epsilon"`
	EndedAt  time.Time `json:"endedAt"`
}

// Run summarises one training run in the store.
type Run struct {
	ID        string    `json:"id"`
	Algorithm Algorithm `json:"algorithm"`
	Env       string    `json:"env"`
	Episodes  int       `json:"episodes"`
	BestScore float64   `json:"bestScore"`
	StartedAt time.Time `json:"startedAt"`
}
