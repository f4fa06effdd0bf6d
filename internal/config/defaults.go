package config

import (
	_ "embed"
	"time"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/netcode"
)

//go:embed defaults/roguedex.yaml
var defaultYAML []byte

// Default returns the built-in configuration. It matches the embedded
// defaults/roguedex.yaml.
func Default() Config {
	return Config{
		BPM:        120,
		BeatWindow: 200 * time.Millisecond,
		DAS:        167 * time.Millisecond,
		ARR:        33 * time.Millisecond,
		TickRate:   60,
		LogLevel:   "info",
		DB:         "~/.roguedex/roguedex.db",
		Battle:     battle.DefaultConfig(),
		Netcode:    netcode.DefaultConfig(),
		Match: MatchConfig{
			DeltaEvery: 3,
			ReplayDir:  "~/.roguedex/replays",
		},
	}
}

// DefaultYAML returns the embedded default YAML.
func DefaultYAML() []byte {
	return defaultYAML
}
