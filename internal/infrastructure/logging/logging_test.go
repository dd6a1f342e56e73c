package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", false, &buf)
	require.NoError(t, err)

	agent := Component(logger, "agent")
	agent.Debug().Int("step", 3).Msg("target synced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "agent", entry["component"])
	assert.Equal(t, "debug", entry["level"])
	assert.EqualValues(t, 3, entry["step"])
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", false, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", false, nil)
	assert.Error(t, err)
}
