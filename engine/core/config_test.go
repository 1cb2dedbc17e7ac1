package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	d, err := cfg.FenceTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
	assert.Equal(t, uint32(2), cfg.Renderer.MaxFramesInFlight)
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	data := []byte(`
[application]
name = "Testbed"

[logging]
level = "debug"

[renderer]
max_frames_in_flight = 3
fence_timeout = "250ms"
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "Testbed", cfg.Application.Name)
	assert.Equal(t, uint32(1280), cfg.Application.StartWidth)
	assert.Equal(t, uint32(3), cfg.Renderer.MaxFramesInFlight)
	d, err := cfg.FenceTimeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
	assert.Equal(t, LogLevelDebug, ParseLogLevel(cfg.Logging.Level))
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero frames", "[renderer]\nmax_frames_in_flight = 0\n"},
		{"too many frames", "[renderer]\nmax_frames_in_flight = 4\n"},
		{"bad timeout", "[renderer]\nfence_timeout = \"soon\"\n"},
		{"negative timeout", "[renderer]\nfence_timeout = \"-1s\"\n"},
		{"no workers", "[jobs]\nworkers = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseConfigSyntaxError(t *testing.T) {
	_, err := ParseConfig([]byte("[renderer\n"))
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[assets]\nwatch = true\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Assets.Watch)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
