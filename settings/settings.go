package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oomph-ac/resim/game"
	"github.com/pelletier/go-toml"
)

// Settings contains everything that can be configured about the simulation host.
type Settings struct {
	Simulation struct {
		// TickRate is the amount of ticks simulated per second.
		TickRate int
	}
	LagCompensation struct {
		// InterpolationDelayMs is how far behind clients render remote entities, in milliseconds.
		InterpolationDelayMs int64
		// MaxRewindMs is the furthest entities are rewound for lag compensation, in milliseconds.
		MaxRewindMs int64
	}
	Prediction struct {
		// CorrectionThreshold is the position error, in blocks, above which a prediction is corrected.
		CorrectionThreshold float32
		// ServerStateDelayTicks is how many ticks authoritative states take to reach the predicting client.
		ServerStateDelayTicks int
	}
	Combat struct {
		Reach       float32
		LerpSteps   int
		Damage      float32
		Knockback   float32
		KnockbackUp float32
	}
	Latency struct {
		Smoothing float64
		Window    int
	}
	Log struct {
		// Level is one of debug, info, warn or error.
		Level string
	}
	Sentry struct {
		DSN         string
		Environment string
	}
	Debug struct {
		StatsView     bool
		StatsViewAddr string
		MetricsAddr   string
	}
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	s := Settings{}
	s.Simulation.TickRate = game.DefaultTickRate

	s.LagCompensation.InterpolationDelayMs = 100
	s.LagCompensation.MaxRewindMs = 1000

	s.Prediction.CorrectionThreshold = 0.01
	s.Prediction.ServerStateDelayTicks = 5

	s.Combat.Reach = game.SurvivalReach
	s.Combat.LerpSteps = game.CombatLerpSteps
	s.Combat.Damage = 1
	s.Combat.Knockback = 8
	s.Combat.KnockbackUp = 7.2

	s.Latency.Smoothing = 0.2
	s.Latency.Window = 20

	s.Log.Level = "info"
	s.Sentry.Environment = "development"

	s.Debug.StatsViewAddr = "localhost:18066"
	s.Debug.MetricsAddr = "localhost:9100"
	return s
}

// Validate returns an error if any of the settings is out of range.
func (s Settings) Validate() error {
	switch {
	case s.Simulation.TickRate <= 0:
		return fmt.Errorf("simulation tick rate must be positive, got %d", s.Simulation.TickRate)
	case s.LagCompensation.InterpolationDelayMs < 0:
		return fmt.Errorf("interpolation delay must not be negative, got %dms", s.LagCompensation.InterpolationDelayMs)
	case s.LagCompensation.MaxRewindMs <= 0 || s.LagCompensation.MaxRewindMs > 1000:
		// Ticks are only kept for a second, so entities cannot be rewound further than that.
		return fmt.Errorf("max rewind must be between 1ms and 1000ms, got %dms", s.LagCompensation.MaxRewindMs)
	case s.Prediction.CorrectionThreshold < 0:
		return fmt.Errorf("correction threshold must not be negative, got %f", s.Prediction.CorrectionThreshold)
	case s.Prediction.ServerStateDelayTicks < 0 || s.Prediction.ServerStateDelayTicks >= s.Simulation.TickRate:
		return fmt.Errorf("server state delay must be between 0 and %d ticks, got %d", s.Simulation.TickRate-1, s.Prediction.ServerStateDelayTicks)
	case s.Combat.Reach <= 0:
		return fmt.Errorf("combat reach must be positive, got %f", s.Combat.Reach)
	case s.Combat.LerpSteps <= 0:
		return fmt.Errorf("combat lerp steps must be positive, got %d", s.Combat.LerpSteps)
	case s.Latency.Smoothing <= 0 || s.Latency.Smoothing > 1:
		return fmt.Errorf("latency smoothing must be in (0, 1], got %f", s.Latency.Smoothing)
	}
	if _, err := s.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses the configured log level.
func (s Settings) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %v", s.Log.Level, err)
	}
	return level, nil
}

// InterpolationDelay returns the configured interpolation delay.
func (s Settings) InterpolationDelay() time.Duration {
	return time.Duration(s.LagCompensation.InterpolationDelayMs) * time.Millisecond
}

// MaxRewind returns the configured maximum rewind.
func (s Settings) MaxRewind() time.Duration {
	return time.Duration(s.LagCompensation.MaxRewindMs) * time.Millisecond
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	s := DefaultSettings()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := toml.Marshal(s); err != nil {
			return fmt.Errorf("failed encoding default settings: %v", err)
		} else if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed creating settings file: %v", err)
		}
		return nil
	}
	return errors.New("settings file already exists")
}

// Load will load the settings from your settings file. If the file does not exist, it is created with the
// default settings, which are returned.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveDefault(path); err != nil {
			return Settings{}, err
		}
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config: %v", err)
	}

	settings := DefaultSettings()
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %v", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %v", err)
	}
	return settings, nil
}
