package config

import (
	"bytes"
	"errors"
	"go/format"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

func TestEmbeddedDefaultMatchesDefault(t *testing.T) {
	cfg := Default()
	if err := yaml.Unmarshal(DefaultYAML(), &cfg); err != nil {
		t.Fatalf("embedded default does not parse: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("embedded default = %+v, expected %+v", cfg, Default())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, expected nil", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roguedex.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

func TestLoadCustomPath(t *testing.T) {
	path := writeConfig(t, "bpm: 140\nbattle:\n  gravity_ticks: 45\nnetcode:\n  timeout: 5s\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.BPM != 140 {
		t.Errorf("BPM = %d, expected 140", cfg.BPM)
	}
	if cfg.Battle.GravityTicks != 45 {
		t.Errorf("GravityTicks = %d, expected 45", cfg.Battle.GravityTicks)
	}
	if cfg.Battle.LockDelayTicks != 30 {
		t.Errorf("LockDelayTicks = %d, expected the default 30", cfg.Battle.LockDelayTicks)
	}
	if cfg.Netcode.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, expected 5s", cfg.Netcode.Timeout)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, expected %q", cfg.Path, path)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
	if _, err := Load(writeConfig(t, "bpm: [1, 2")); err == nil {
		t.Error("Load() of broken YAML should fail")
	}
	if _, err := Load(writeConfig(t, "bpm: -5\n")); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() = %v, expected ErrInvalid", err)
	}
}

func TestLoadSearchOrder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Path != "" || cfg.BPM != 120 {
		t.Errorf("Load() = path %q bpm %d, expected the embedded default", cfg.Path, cfg.BPM)
	}

	userPath := filepath.Join(home, ".roguedex", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(userPath), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userPath, []byte("bpm: 90\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Path != userPath || cfg.BPM != 90 {
		t.Errorf("Load() = path %q bpm %d, expected %q with bpm 90", cfg.Path, cfg.BPM, userPath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("ROGUEDEX_BPM", "130")
	t.Setenv("ROGUEDEX_SEED", "99")

	cfg, err := Load(writeConfig(t, "bpm: 140\n"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.BPM != 130 {
		t.Errorf("BPM = %d, expected the environment's 130", cfg.BPM)
	}
	if cfg.Seed != 99 {
		t.Errorf("Seed = %d, expected 99", cfg.Seed)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, map[string]string{
		"ROGUEDEX_BEAT_WINDOW":   "150ms",
		"ROGUEDEX_DAS":           "120ms",
		"ROGUEDEX_ARR":           "0s",
		"ROGUEDEX_STEP_BUDGET":   "64",
		"ROGUEDEX_TICK_RATE":     "120",
		"ROGUEDEX_LOG_LEVEL":     "debug",
		"ROGUEDEX_DB":            "/tmp/x.db",
		"ROGUEDEX_DELTA_EVERY":   "5",
		"ROGUEDEX_OBSERVER_ADDR": ":8080",
		"BPM":                    "10",
	})
	if err != nil {
		t.Fatalf("ApplyEnv() failed: %v", err)
	}

	expected := Default()
	expected.BeatWindow = 150 * time.Millisecond
	expected.DAS = 120 * time.Millisecond
	expected.ARR = 0
	expected.StepBudget = 64
	expected.TickRate = 120
	expected.LogLevel = "debug"
	expected.DB = "/tmp/x.db"
	expected.Match.DeltaEvery = 5
	expected.Observer.Addr = ":8080"
	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf("ApplyEnv() = %+v, expected %+v", cfg, expected)
	}

	if err := ApplyEnv(&cfg, map[string]string{"ROGUEDEX_BPM": "fast"}); err == nil {
		t.Error("ApplyEnv() with a non-numeric BPM should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"zero bpm", func(c *Config) { c.BPM = 0 }, false},
		{"negative window", func(c *Config) { c.BeatWindow = -time.Millisecond }, false},
		{"window at half a period", func(c *Config) { c.BeatWindow = 250 * time.Millisecond }, false},
		{"zero window", func(c *Config) { c.BeatWindow = 0 }, true},
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }, false},
		{"negative budget", func(c *Config) { c.StepBudget = -1 }, false},
		{"manifest budget", func(c *Config) { c.StepBudget = 0 }, true},
		{"negative das", func(c *Config) { c.DAS = -1 }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"no timeout", func(c *Config) { c.Netcode.Timeout = 0 }, false},
		{"negative delta interval", func(c *Config) { c.Match.DeltaEvery = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, expected nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, expected ErrInvalid", err)
			}
		})
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := Default()
	cfg.TickRate = 120
	cfg.LogLevel = "warn"

	if got := cfg.BattleConfig().TickRate; got != 120 {
		t.Errorf("BattleConfig().TickRate = %d, expected 120", got)
	}
	if got := cfg.Level(); got != log.WarnLevel {
		t.Errorf("Level() = %v, expected %v", got, log.WarnLevel)
	}
	clock, err := cfg.Clock()
	if err != nil {
		t.Fatalf("Clock() failed: %v", err)
	}
	if clock.Period() != 500*time.Millisecond {
		t.Errorf("Period() = %s, expected 500ms", clock.Period())
	}
}

func TestDifficultyPresets(t *testing.T) {
	tests := []struct {
		name    string
		bpm     int
		gravity int
		fixed   bool
	}{
		{"easy", 100, 75, false},
		{"normal", 120, 60, false},
		{"hard", 150, 40, false},
		{"fixed", 120, 60, true},
		{"", 120, 60, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseDifficulty(tt.name)
			if err != nil {
				t.Fatalf("ParseDifficulty() failed: %v", err)
			}
			if IsFixedPreset(p) != tt.fixed {
				t.Errorf("IsFixedPreset(%q) = %v, expected %v", p, !tt.fixed, tt.fixed)
			}
			cfg := Default()
			ApplyDifficultyPreset(&cfg, p)
			if cfg.BPM != tt.bpm || cfg.Battle.GravityTicks != tt.gravity {
				t.Errorf("preset %q = bpm %d gravity %d, expected %d and %d", p, cfg.BPM, cfg.Battle.GravityTicks, tt.bpm, tt.gravity)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() = %v, expected nil", err)
			}
		})
	}

	if _, err := ParseDifficulty("insane"); err == nil {
		t.Error("ParseDifficulty(insane) should fail")
	}
}

func TestSourcesAreFormatted(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		formatted, err := format.Source(src)
		if err != nil {
			t.Fatalf("format.Source(%s) failed: %v", name, err)
		}
		if !bytes.Equal(src, formatted) {
			t.Errorf("%s is not gofmt-formatted", name)
		}
	}
}
