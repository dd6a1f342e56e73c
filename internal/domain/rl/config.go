package rl

import (
	"fmt"
	"strings"
)

// DeviceCPU is the only compute device supported by this build.
const DeviceCPU = "cpu"

// ResolveDevice maps a configured device to one this build can run on.
// Accelerator names fall back to the CPU with fellBack set; anything else
// is ErrUnsupportedDevice.
func ResolveDevice(device string) (resolved string, fellBack bool, err error) {
	name := strings.ToLower(strings.TrimSpace(device))
	switch {
	case name == DeviceCPU:
		return DeviceCPU, false, nil
	case name == "gpu", name == "cuda", strings.HasPrefix(name, "cuda:"):
		return DeviceCPU, true, nil
	}
	return "", false, fmt.Errorf("%w: %q", ErrUnsupportedDevice, device)
}

// InputScale returns the observation scale of cfg for element type S,
// resolving zero to 1/255 for byte frames and 1 otherwise.
func InputScale[S Element](cfg AgentConfig) float64 {
	if cfg.InputScale != 0 {
		return cfg.InputScale
	}
	if IsByte[S]() {
		return 1.0 / 255
	}
	return 1
}

// AgentConfig is the configuration for an agent and its learner.
type AgentConfig struct {
	// Algorithm is the update rule family.
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`

	// Device is the compute device. Required.
	Device string `json:"device" yaml:"device"`

	// InputShape is the shape of one observation frame. Required.
	InputShape Shape `json:"inputShape" yaml:"input_shape"`

	// StateSize is the number of stacked frames K forming a state.
	StateSize int `json:"stateSize" yaml:"state_size"`

	// ActionSize is the number of discrete actions. Required.
	ActionSize int `json:"actionSize" yaml:"action_size"`

	// HiddenSizes are the hidden layer widths of the network.
	HiddenSizes []int `json:"hiddenSizes" yaml:"hidden_sizes"`

	// InputScale multiplies raw observations before the first layer. Zero
	// selects 1/255 for byte frames and 1 otherwise.
	InputScale float64 `json:"inputScale" yaml:"input_scale"`

	// LearningRate for gradient updates.
	LearningRate float64 `json:"learningRate" yaml:"lr"`

	// Gamma is the discount factor in [0, 1).
	Gamma float64 `json:"gamma" yaml:"gamma"`

	// Optimizer is one of rmsprop, adam or sgd.
	Optimizer string `json:"optimizer" yaml:"optimizer"`

	// MaxEps is the initial exploration rate.
	MaxEps float64 `json:"maxEps" yaml:"max_eps"`

	// MinEps is the exploration floor.
	MinEps float64 `json:"minEps" yaml:"min_eps"`

	// EpsDecay is the number of environment steps from MaxEps to MinEps.
	EpsDecay int `json:"epsDecay" yaml:"eps_decay"`

	// ReplaySize is the replay buffer capacity.
	ReplaySize int `json:"replaySize" yaml:"replay_size"`

	// GradClip clamps every gradient component to [-GradClip, GradClip].
	// Zero disables clipping on the policy-gradient path; the TD path always
	// clips, defaulting to 1.
	GradClip float64 `json:"gradClip" yaml:"grad_clip"`

	// Seed seeds exploration and weight initialisation. Zero means random.
	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultAgentConfig returns the default DQN agent configuration. Input
// shape and action size depend on the environment and are left empty.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Algorithm:    AlgorithmDQN,
		Device:       DeviceCPU,
		StateSize:    4,
		HiddenSizes:  []int{128},
		LearningRate: 0.00025,
		Gamma:        0.99,
		Optimizer:    "rmsprop",
		MaxEps:       1.0,
		MinEps:       0.1,
		EpsDecay:     10000,
		ReplaySize:   10000,
		GradClip:     1.0,
	}
}

// DefaultPolicyGradientConfig returns the default REINFORCE configuration.
func DefaultPolicyGradientConfig() AgentConfig {
	config := DefaultAgentConfig()
	config.Algorithm = AlgorithmReinforce
	config.StateSize = 1
	config.LearningRate = 0.01
	config.Optimizer = "adam"
	config.GradClip = 0
	config.ReplaySize = 0
	return config
}

// FrameSize returns the number of elements in one frame.
func (c AgentConfig) FrameSize() int {
	return c.InputShape.Size()
}

// Validate checks the configuration before any component is built.
func (c AgentConfig) Validate() error {
	var problems []string

	if c.Device == "" {
		problems = append(problems, "device has to be set")
	}
	if c.InputShape.Size() <= 0 {
		problems = append(problems, "input shape has to be non-empty")
	}
	if c.ActionSize <= 0 {
		problems = append(problems, "action size has to be positive")
	}
	if c.StateSize <= 0 {
		problems = append(problems, "state size has to be positive")
	}
	if c.Gamma < 0 || c.Gamma >= 1 {
		problems = append(problems, "gamma has to be in [0, 1)")
	}
	if c.LearningRate <= 0 {
		problems = append(problems, "learning rate has to be positive")
	}
	if c.InputScale < 0 {
		problems = append(problems, "input scale cannot be negative")
	}
	for _, h := range c.HiddenSizes {
		if h <= 0 {
			problems = append(problems, "hidden sizes have to be positive")
			break
		}
	}
	if c.Algorithm.OffPolicy() {
		if c.ReplaySize <= 0 {
			problems = append(problems, "replay size has to be positive")
		}
		if c.EpsDecay <= 0 {
			problems = append(problems, "eps decay has to be positive")
		}
		if c.MinEps < 0 || c.MinEps > c.MaxEps || c.MaxEps > 1 {
			problems = append(problems, "epsilon bounds have to satisfy 0 <= min_eps <= max_eps <= 1")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	if _, err := ParseAlgorithm(string(c.Algorithm)); err != nil {
		return err
	}
	_, _, err := ResolveDevice(c.Device)
	return err
}

// TrainConfig holds training loop parameters.
type TrainConfig struct {
	// Episodes is the number of training episodes.
	Episodes int `json:"episodes" yaml:"n_train_episodes"`

	// MaxSteps caps the steps of one episode.
	MaxSteps int `json:"maxSteps" yaml:"max_steps"`

	// BatchSize is the replay mini-batch size.
	BatchSize int `json:"batchSize" yaml:"batch_size"`

	// TargetUpdate is the environment-step interval between target syncs.
	TargetUpdate int `json:"targetUpdate" yaml:"target_update"`

	// SaveEvery is the episode interval between checkpoints. Zero disables.
	SaveEvery int `json:"saveEvery" yaml:"save_every"`

	// EpisodesPerUpdate batches policy-gradient episodes into one update.
	EpisodesPerUpdate int `json:"episodesPerUpdate" yaml:"episodes_per_update"`

	// WarmupSteps pre-fills the replay buffer with random-policy steps.
	WarmupSteps int `json:"warmupSteps" yaml:"warmup_steps"`

	// Workers is the number of concurrent warm-up environments.
	Workers int `json:"workers" yaml:"workers"`

	// OutputDir receives checkpoint files.
	OutputDir string `json:"outputDir" yaml:"output_dir"`

	// DBPath is the SQLite run store. Empty disables the store.
	DBPath string `json:"dbPath" yaml:"db_path"`
}

// DefaultTrainConfig returns the default training loop configuration.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Episodes:          500,
		MaxSteps:          500,
		BatchSize:         32,
		TargetUpdate:      1000,
		SaveEvery:         50,
		EpisodesPerUpdate: 1,
		Workers:           1,
		OutputDir:         "checkpoints",
	}
}

// Validate checks the training loop parameters.
func (c TrainConfig) Validate() error {
	switch {
	case c.Episodes <= 0:
		return fmt.Errorf("%w: episodes has to be positive", ErrInvalidConfig)
	case c.MaxSteps <= 0:
		return fmt.Errorf("%w: max steps has to be positive", ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size has to be positive", ErrInvalidConfig)
	case c.TargetUpdate <= 0:
		return fmt.Errorf("%w: target update interval has to be positive", ErrInvalidConfig)
	case c.EpisodesPerUpdate <= 0:
		return fmt.Errorf("%w: episodes per update has to be positive", ErrInvalidConfig)
	case c.WarmupSteps < 0 || c.Workers < 0 || c.SaveEvery < 0:
		return fmt.Errorf("%w: warmup, workers and save interval cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// EnvConfig selects and parameterises an environment.
type EnvConfig struct {
	Name   string `json:"name" yaml:"name"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Seed   int64  `json:"seed" yaml:"seed"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// Config is the complete run configuration.
type Config struct {
	Env   EnvConfig   `json:"env" yaml:"env"`
	Agent AgentConfig `json:"agent" yaml:"agent"`
	Train TrainConfig `json:"train" yaml:"train"`
	Log   LogConfig   `json:"log" yaml:"log"`
}
