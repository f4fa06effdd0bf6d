package core

import "time"

// RuntimeConfig contains configuration shared by every simulation in a match.
// Both peers must use identical values for lockstep to hold.
type RuntimeConfig struct {
	TickRate int    // Simulation ticks per second (default 60)
	Seed     uint64 // Match seed; 0 means generate one in the platform layer
}

// DefaultConfig returns a RuntimeConfig with sensible defaults.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		TickRate: 60,
		Seed:     0,
	}
}

// TickPeriod returns the logical duration of one tick.
func (c RuntimeConfig) TickPeriod() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

// Elapsed returns the logical match time at the start of the given tick.
// Beat computations use this instead of wall-clock reads. The product is
// taken before dividing so exact beat boundaries are not lost to a
// truncated period.
func (c RuntimeConfig) Elapsed(tick uint64) time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = 60
	}
	return time.Duration(tick) * time.Second / time.Duration(rate) //nolint:gosec // tick counts stay far below overflow
}

// CombatantID identifies one side of a battle.
type CombatantID uint8

const (
	Combatant1 CombatantID = 0
	Combatant2 CombatantID = 1
)

// Opponent returns the other side.
func (id CombatantID) Opponent() CombatantID {
	if id == Combatant1 {
		return Combatant2
	}
	return Combatant1
}

// Valid reports whether the id names one of the two sides.
func (id CombatantID) Valid() bool {
	return id == Combatant1 || id == Combatant2
}

// String returns a human-readable name for the combatant.
func (id CombatantID) String() string {
	switch id {
	case Combatant1:
		return "P1"
	case Combatant2:
		return "P2"
	default:
		return "P?"
	}
}
