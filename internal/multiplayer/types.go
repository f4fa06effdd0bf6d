// Package multiplayer runs matches: one authoritative simulation loop per
// peer that gathers actions from its sources, advances the battle, and
// trades deltas and attacks with a remote peer when playing online.
package multiplayer

import (
	"fmt"

	"github.com/vovakirdan/roguedex/internal/core"
)

// MatchID uniquely identifies a match.
type MatchID string

// SubscriberID uniquely identifies a match event subscriber.
type SubscriberID string

// Mode defines who plays a match.
type Mode int

const (
	// ModeSolo is one scripted human input stream against an empty opponent.
	ModeSolo Mode = iota

	// ModeVsBot is a scripted human input stream against a bot.
	ModeVsBot

	// ModeBots is two bots against each other, locally.
	ModeBots

	// ModeOnline is one local combatant against a remote peer over picoNet.
	ModeOnline
)

var modeNames = map[Mode]string{
	ModeSolo:   "solo",
	ModeVsBot:  "vs-bot",
	ModeBots:   "bots",
	ModeOnline: "online",
}

// String returns the mode name used in logs, storage and the observer.
func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("multiplayer: unknown mode %q", s)
}

// Local reports whether both combatants are simulated in this process.
func (m Mode) Local() bool { return m != ModeOnline }

// MatchEndReason describes why a match ended.
type MatchEndReason int

const (
	EndCompleted  MatchEndReason = iota // a combatant topped out
	EndDisconnect                       // the peer timed out or the session closed
	EndDesync                           // a desync was detected with AbortOnDesync set
	EndCancelled                        // the match was cancelled
	EndTickLimit                        // the tick limit was reached
)

func (r MatchEndReason) String() string {
	switch r {
	case EndCompleted:
		return "completed"
	case EndDisconnect:
		return "disconnect"
	case EndDesync:
		return "desync"
	case EndCancelled:
		return "cancelled"
	case EndTickLimit:
		return "tick_limit"
	default:
		return "unknown"
	}
}

// MarshalText encodes the reason by name.
func (r MatchEndReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText decodes a reason name.
func (r *MatchEndReason) UnmarshalText(b []byte) error {
	for v := EndCompleted; v <= EndTickLimit; v++ {
		if v.String() == string(b) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("multiplayer: unknown end reason %q", b)
}

// MatchResult contains the outcome of a finished match.
type MatchResult struct {
	MatchID   MatchID          `json:"match_id"`
	Mode      Mode             `json:"mode"`
	Reason    MatchEndReason   `json:"reason"`
	Winner    core.CombatantID `json:"winner"`
	HasWinner bool             `json:"has_winner"`
	Players   [2]string        `json:"players"`
	Scores    [2]int           `json:"scores"`
	Lines     [2]int           `json:"lines"`
	Ticks     uint64           `json:"ticks"`
	Digest    string           `json:"digest"`
	Error     string           `json:"error,omitempty"`
}

// WinnerName returns the winning player's name, or "" for no winner.
func (r MatchResult) WinnerName() string {
	if !r.HasWinner || !r.Winner.Valid() {
		return ""
	}
	return r.Players[r.Winner]
}
