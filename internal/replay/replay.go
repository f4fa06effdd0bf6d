// Package replay records matches as zstd-compressed JSON lines and
// re-simulates them to prove the recorded event log follows from the seed
// and the recorded inputs.
package replay

import (
	"time"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/core"
)

// FormatVersion is written in every header.
const FormatVersion = 1

// Header opens a match log with everything needed to rebuild the battle.
type Header struct {
	Version   int                `json:"version"`
	MatchID   string             `json:"match_id"`
	Mode      string             `json:"mode"`
	Seed      uint64             `json:"seed"`
	BPM       int                `json:"bpm"`
	Window    time.Duration      `json:"window"`
	Battle    battle.Config      `json:"battle"`
	Mirrored  []core.CombatantID `json:"mirrored,omitempty"`
	Players   [2]string          `json:"players"`
	StartedAt time.Time          `json:"started_at"`
}

// Garbage is an attack that arrived from the network before a tick.
type Garbage struct {
	Combatant  core.CombatantID `json:"combatant"`
	Lines      int              `json:"lines"`
	SourceTick uint32           `json:"source_tick"`
}

// Tick is one simulated tick that had inputs or output. Ticks not written
// had neither.
type Tick struct {
	Tick    uint64          `json:"tick"`
	Garbage []Garbage       `json:"garbage,omitempty"`
	Actions []battle.Action `json:"actions,omitempty"`
	Events  []battle.Event  `json:"events,omitempty"`
	Digest  string          `json:"digest,omitempty"`
}

// End closes a match log.
type End struct {
	Reason string `json:"reason"`
	Winner string `json:"winner,omitempty"`
	Ticks  uint64 `json:"ticks"`
	Digest string `json:"digest"`
}

// Log is a fully read match log.
type Log struct {
	Header Header
	Ticks  []Tick
	End    *End
}

const (
	entryHeader = "header"
	entryTick   = "tick"
	entryEnd    = "end"
)

// entry is one JSON line.
type entry struct {
	Type   string  `json:"type"`
	Header *Header `json:"header,omitempty"`
	Tick   *Tick   `json:"tick,omitempty"`
	End    *End    `json:"end,omitempty"`
}
