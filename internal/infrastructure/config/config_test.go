package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := write(t, "run.yaml", `
env:
  name: catch
  width: 8
agent:
  algorithm: double-dqn
  state_size: 2
  lr: 0.001
  hidden_sizes: [64, 32]
train:
  n_train_episodes: 20
  batch_size: 16
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "catch", cfg.Env.Name)
	assert.Equal(t, 8, cfg.Env.Width)
	assert.Equal(t, rl.AlgorithmDoubleDQN, cfg.Agent.Algorithm)
	assert.Equal(t, 2, cfg.Agent.StateSize)
	assert.Equal(t, 0.001, cfg.Agent.LearningRate)
	assert.Equal(t, []int{64, 32}, cfg.Agent.HiddenSizes)
	assert.Equal(t, 20, cfg.Train.Episodes)
	assert.Equal(t, 16, cfg.Train.BatchSize)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.99, cfg.Agent.Gamma)
	assert.Equal(t, rl.DeviceCPU, cfg.Agent.Device)
	assert.Equal(t, 1000, cfg.Train.TargetUpdate)
	require.NoError(t, Validate(cfg))
}

func TestLoadJSON(t *testing.T) {
	path := write(t, "run.json", `{"agent": {"algorithm": "reinforce", "gamma": 0.9}, "log": {"level": "debug"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rl.AlgorithmReinforce, cfg.Agent.Algorithm)
	assert.Equal(t, 0.9, cfg.Agent.Gamma)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(write(t, "bad.yaml", "agent: [unterminated"))
	assert.ErrorIs(t, err, rl.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rl.Config)
		target error
	}{
		{"unknown env", func(c *rl.Config) { c.Env.Name = "doom" }, rl.ErrUnknownEnvironment},
		{"unknown algorithm", func(c *rl.Config) { c.Agent.Algorithm = "sarsa" }, rl.ErrUnknownAlgorithm},
		{"zero batch", func(c *rl.Config) { c.Train.BatchSize = 0 }, rl.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, Validate(cfg), tt.target)
		})
	}
}

func TestApplyEnvironment(t *testing.T) {
	agent := rl.DefaultAgentConfig()
	require.NoError(t, ApplyEnvironment(&agent, rl.Shape{4}, 2))
	assert.Equal(t, rl.Shape{4}, agent.InputShape)
	assert.Equal(t, 2, agent.ActionSize)

	assert.ErrorIs(t, ApplyEnvironment(&agent, rl.Shape{10, 10}, 2), rl.ErrShapeMismatch)
	assert.ErrorIs(t, ApplyEnvironment(&agent, rl.Shape{4}, 3), rl.ErrInvalidConfig)
}

func TestLoadPolicyGradientStartsFromItsDefaults(t *testing.T) {
	path := write(t, "pg.yaml", `
agent:
  algorithm: reinforce
  gamma: 0.95
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	pg := rl.DefaultPolicyGradientConfig()
	assert.Equal(t, rl.AlgorithmReinforce, cfg.Agent.Algorithm)
	assert.Equal(t, pg.Optimizer, cfg.Agent.Optimizer)
	assert.Equal(t, pg.StateSize, cfg.Agent.StateSize)
	assert.Zero(t, cfg.Agent.GradClip)
	assert.Equal(t, pg.LearningRate, cfg.Agent.LearningRate)
	assert.Equal(t, 0.95, cfg.Agent.Gamma)
}

func TestLoadForOverridesAlgorithm(t *testing.T) {
	path := write(t, "dqn.yaml", `
agent:
  algorithm: dqn
  hidden_sizes: [8]
`)

	cfg, err := LoadFor(path, rl.AlgorithmActorCritic)
	require.NoError(t, err)
	assert.Equal(t, rl.AlgorithmActorCritic, cfg.Agent.Algorithm)
	assert.Equal(t, "adam", cfg.Agent.Optimizer)
	assert.Equal(t, 1, cfg.Agent.StateSize)
	assert.Equal(t, []int{8}, cfg.Agent.HiddenSizes)

	// Explicit file values still win over the selected defaults.
	path = write(t, "pg.yaml", `
agent:
  optimizer: rmsprop
  state_size: 3
`)
	cfg, err = LoadFor(path, rl.AlgorithmReinforce)
	require.NoError(t, err)
	assert.Equal(t, "rmsprop", cfg.Agent.Optimizer)
	assert.Equal(t, 3, cfg.Agent.StateSize)
}

func TestDefaultFor(t *testing.T) {
	assert.Equal(t, Default(), DefaultFor(""))
	assert.Equal(t, rl.DefaultAgentConfig().Optimizer, DefaultFor(rl.AlgorithmDoubleDQN).Agent.Optimizer)
	assert.Equal(t, rl.AlgorithmDoubleDQN, DefaultFor(rl.AlgorithmDoubleDQN).Agent.Algorithm)

	cfg := DefaultFor(rl.AlgorithmReinforce)
	assert.Equal(t, rl.AlgorithmReinforce, cfg.Agent.Algorithm)
	assert.Zero(t, cfg.Agent.ReplaySize)
	require.NoError(t, Validate(cfg))
}
