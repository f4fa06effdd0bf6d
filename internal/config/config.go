// Package config provides YAML-based configuration loading with
// environment overrides for the roguedex engine and its commands.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/netcode"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the full runtime configuration.
type Config struct {
	BPM        int           `yaml:"bpm" env:"BPM"`
	BeatWindow time.Duration `yaml:"beat_window" env:"BEAT_WINDOW"`
	DAS        time.Duration `yaml:"das" env:"DAS"`
	ARR        time.Duration `yaml:"arr" env:"ARR"`
	Seed       uint64        `yaml:"seed" env:"SEED"`               // 0 = generate per match
	StepBudget int           `yaml:"step_budget" env:"STEP_BUDGET"` // 0 = each bot's manifest budget
	TickRate   int           `yaml:"tick_rate" env:"TICK_RATE"`
	LogLevel   string        `yaml:"log_level" env:"LOG_LEVEL"`
	DB         string        `yaml:"db" env:"DB"`

	Battle   battle.Config  `yaml:"battle"`
	Netcode  netcode.Config `yaml:"netcode"`
	Match    MatchConfig    `yaml:"match"`
	Observer ObserverConfig `yaml:"observer"`

	// Path is the file the config was read from, empty for the embedded default.
	Path string `yaml:"-"`
}

// MatchConfig tunes the match loop.
type MatchConfig struct {
	DeltaEvery    int    `yaml:"delta_every" env:"DELTA_EVERY"`
	AbortOnDesync bool   `yaml:"abort_on_desync" env:"ABORT_ON_DESYNC"`
	MaxTicks      uint64 `yaml:"max_ticks" env:"MAX_TICKS"` // 0 = unlimited
	ReplayDir     string `yaml:"replay_dir" env:"REPLAY_DIR"`
}

// ObserverConfig configures the optional HTTP/WebSocket observer.
type ObserverConfig struct {
	Addr string `yaml:"addr" env:"OBSERVER_ADDR"` // empty = disabled
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.BPM <= 0 {
		return fmt.Errorf("%w: bpm must be positive, got %d", ErrInvalid, c.BPM)
	}
	if c.BeatWindow < 0 {
		return fmt.Errorf("%w: beat_window must not be negative", ErrInvalid)
	}
	if period := time.Minute / time.Duration(c.BPM); c.BeatWindow*2 >= period {
		return fmt.Errorf("%w: beat_window %s must be under half the beat period %s", ErrInvalid, c.BeatWindow, period)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate must be positive, got %d", ErrInvalid, c.TickRate)
	}
	if c.StepBudget < 0 {
		return fmt.Errorf("%w: step_budget must not be negative, got %d", ErrInvalid, c.StepBudget)
	}
	if c.DAS < 0 || c.ARR < 0 {
		return fmt.Errorf("%w: das and arr must not be negative", ErrInvalid)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if c.Netcode.Timeout <= 0 || c.Netcode.HandshakeTimeout <= 0 || c.Netcode.ResendInterval <= 0 {
		return fmt.Errorf("%w: netcode timeouts must be positive", ErrInvalid)
	}
	if c.Match.DeltaEvery < 0 {
		return fmt.Errorf("%w: match.delta_every must not be negative", ErrInvalid)
	}
	return nil
}

// Clock builds the beat clock for a match.
func (c Config) Clock() (*beat.Clock, error) {
	return beat.New(c.BPM, c.BeatWindow)
}

// BattleConfig returns the battle rules at the configured tick rate.
func (c Config) BattleConfig() battle.Config {
	b := c.Battle
	b.TickRate = c.TickRate
	return b
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}
