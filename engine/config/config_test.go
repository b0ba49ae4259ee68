package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	content := `
[window]
width = 800
height = 600

[renderer]
frames_in_flight = 3
software_simulation = true

[simulation]
snowflakes = 500
seed = 42
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height)
	assert.Equal(t, uint8(3), cfg.Renderer.FramesInFlight)
	assert.True(t, cfg.Renderer.SoftwareSimulation)
	assert.Equal(t, 500, cfg.Simulation.Snowflakes)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)

	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Window.Title, cfg.Window.Title)
	assert.Equal(t, Default().Renderer.SyncTimeoutMs, cfg.Renderer.SyncTimeoutMs)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window\nwidth = ???"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	content := `
[renderer]
frames_in_flight = 0

[simulation]
snowflakes = -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), cfg.Renderer.FramesInFlight)
	assert.Equal(t, Default().Simulation.Snowflakes, cfg.Simulation.Snowflakes)
}
