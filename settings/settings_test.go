package settings

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	level, err := s.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
	assert.Equal(t, 100*time.Millisecond, s.InterpolationDelay())
	assert.Equal(t, time.Second, s.MaxRewind())
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Settings){
		"tick rate":    func(s *Settings) { s.Simulation.TickRate = 0 },
		"max rewind":   func(s *Settings) { s.LagCompensation.MaxRewindMs = 1500 },
		"state delay":  func(s *Settings) { s.Prediction.ServerStateDelayTicks = s.Simulation.TickRate },
		"reach":        func(s *Settings) { s.Combat.Reach = 0 },
		"lerp steps":   func(s *Settings) { s.Combat.LerpSteps = -1 },
		"smoothing":    func(s *Settings) { s.Latency.Smoothing = 2 },
		"log level":    func(s *Settings) { s.Log.Level = "loud" },
		"interp delay": func(s *Settings) { s.LagCompensation.InterpolationDelayMs = -5 },
	} {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resim.toml")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
	assert.FileExists(t, path)

	assert.Error(t, SaveDefault(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), loaded)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resim.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Simulation]
TickRate = 30

[Log]
Level = "debug"
`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, s.Simulation.TickRate)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, DefaultSettings().Combat, s.Combat)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resim.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Simulation]\nTickRate = -1\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not toml ["), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
