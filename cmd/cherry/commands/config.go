// Package commands provides CLI command implementations.
package commands

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/vishalbelsare/cherry-go/pkg/cherry"
)

// Flags shared by commands that build an agent.
var (
	configPath string
	envName    string
	algorithm  string
	device     string
	logLevel   string
	noColor    bool
)

// loadConfig reads the configuration file, if any, and applies flag
// overrides on top of it.
func loadConfig() (cherry.Config, error) {
	cfg, err := cherry.LoadConfigFor(configPath, cherry.Algorithm(algorithm))
	if err != nil {
		return cherry.Config{}, err
	}

	if envName != "" {
		cfg.Env.Name = envName
	}
	if device != "" {
		cfg.Agent.Device = device
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg cherry.Config) (zerolog.Logger, error) {
	return cherry.NewLogger(cfg.Log, os.Stderr)
}

func colorEnabled() bool {
	return !noColor && os.Getenv("NO_COLOR") == ""
}
