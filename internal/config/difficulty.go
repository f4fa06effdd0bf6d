package config

import (
	"fmt"
	"time"
)

// DifficultyPreset represents a named tempo and gravity level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
	DifficultyFixed  DifficultyPreset = "fixed" // keep the configured values
)

type presetValues struct {
	bpm      int
	window   time.Duration
	gravity  int
	minGrav  int
	lockTick int
}

var presets = map[DifficultyPreset]presetValues{
	DifficultyEasy:   {bpm: 100, window: 250 * time.Millisecond, gravity: 75, minGrav: 6, lockTick: 40},
	DifficultyNormal: {bpm: 120, window: 200 * time.Millisecond, gravity: 60, minGrav: 3, lockTick: 30},
	DifficultyHard:   {bpm: 150, window: 120 * time.Millisecond, gravity: 40, minGrav: 1, lockTick: 20},
}

// ParseDifficulty converts a preset name. An empty name means fixed.
func ParseDifficulty(name string) (DifficultyPreset, error) {
	if name == "" {
		return DifficultyFixed, nil
	}
	p := DifficultyPreset(name)
	if _, ok := presets[p]; ok || p == DifficultyFixed {
		return p, nil
	}
	return "", fmt.Errorf("config: unknown difficulty %q (easy, normal, hard, fixed)", name)
}

// IsFixedPreset returns true if the preset leaves the config untouched.
func IsFixedPreset(preset DifficultyPreset) bool {
	_, ok := presets[preset]
	return !ok
}

// ApplyDifficultyPreset rewrites tempo, beat window and gravity for a
// preset. Fixed and unknown presets change nothing.
func ApplyDifficultyPreset(cfg *Config, preset DifficultyPreset) {
	v, ok := presets[preset]
	if !ok {
		return
	}
	cfg.BPM = v.bpm
	cfg.BeatWindow = v.window
	cfg.Battle.GravityTicks = v.gravity
	cfg.Battle.MinGravityTicks = v.minGrav
	cfg.Battle.LockDelayTicks = v.lockTick
}
