// Package config loads run configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/env"
)

// Default returns the configuration used when no file is given: DQN on
// cart-pole.
func Default() rl.Config {
	return rl.Config{
		Env:   rl.EnvConfig{Name: env.NameCartPole},
		Agent: rl.DefaultAgentConfig(),
		Train: rl.DefaultTrainConfig(),
		Log:   rl.LogConfig{Level: "info", Pretty: true},
	}
}

// DefaultFor returns the defaults for an algorithm: the policy-gradient
// agent defaults for reinforce and actor-critic, the DQN defaults
// otherwise. An empty algorithm gives Default().
func DefaultFor(algorithm rl.Algorithm) rl.Config {
	cfg := Default()
	switch algorithm {
	case "":
	case rl.AlgorithmReinforce, rl.AlgorithmActorCritic:
		cfg.Agent = rl.DefaultPolicyGradientConfig()
		cfg.Agent.Algorithm = algorithm
	default:
		cfg.Agent.Algorithm = algorithm
	}
	return cfg
}

// Load reads a YAML or JSON file over the defaults of the algorithm it
// names. The format follows the file extension; anything other than .json
// is parsed as YAML.
func Load(path string) (rl.Config, error) {
	return LoadFor(path, "")
}

// LoadFor is Load with an algorithm override. A non-empty algorithm
// replaces the file's and selects the defaults the file is laid over.
func LoadFor(path string, algorithm rl.Algorithm) (rl.Config, error) {
	if path == "" {
		return DefaultFor(algorithm), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rl.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	decode := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		decode = json.Unmarshal
	}

	if algorithm == "" {
		var head struct {
			Agent struct {
				Algorithm rl.Algorithm `json:"algorithm" yaml:"algorithm"`
			} `json:"agent" yaml:"agent"`
		}
		if err := decode(data, &head); err != nil {
			return rl.Config{}, fmt.Errorf("%w: %s: %v", rl.ErrInvalidConfig, path, err)
		}
		algorithm = head.Agent.Algorithm
	}

	cfg := DefaultFor(algorithm)
	if err := decode(data, &cfg); err != nil {
		return rl.Config{}, fmt.Errorf("%w: %s: %v", rl.ErrInvalidConfig, path, err)
	}
	if algorithm != "" {
		cfg.Agent.Algorithm = algorithm
	}
	if cfg.Agent.Algorithm == "" {
		cfg.Agent.Algorithm = rl.AlgorithmDQN
	}
	return cfg, nil
}

// Validate checks the parts of the configuration that do not depend on the
// environment. Agent input shape and action size are filled from the
// environment before the agent validates itself.
func Validate(cfg rl.Config) error {
	if _, err := env.IsPixel(cfg.Env.Name); err != nil {
		return err
	}
	if _, err := rl.ParseAlgorithm(string(cfg.Agent.Algorithm)); err != nil {
		return err
	}
	return cfg.Train.Validate()
}

// ApplyEnvironment fills the agent's observation shape and action count
// from the environment when the file leaves them empty, and checks them
// otherwise.
func ApplyEnvironment(agent *rl.AgentConfig, shape rl.Shape, actions int) error {
	if len(agent.InputShape) == 0 {
		agent.InputShape = append(rl.Shape(nil), shape...)
	} else if !agent.InputShape.Equal(shape) {
		return fmt.Errorf("%w: input shape %v, environment emits %v", rl.ErrShapeMismatch, agent.InputShape, shape)
	}

	if agent.ActionSize == 0 {
		agent.ActionSize = actions
	} else if agent.ActionSize != actions {
		return fmt.Errorf("%w: action size %d, environment has %d", rl.ErrInvalidConfig, agent.ActionSize, actions)
	}
	return nil
}
