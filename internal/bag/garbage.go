package bag

import (
	"fmt"

	"github.com/vovakirdan/roguedex/internal/core"
)

// Columns is the board width that garbage holes are drawn from.
const Columns = 10

// GarbageLabel returns the stream label for holes inserted into a combatant's board.
func GarbageLabel(id core.CombatantID) string {
	return fmt.Sprintf("garbage/%d", id)
}

// GarbageStream draws hole columns for one receiving combatant. It is kept
// apart from the piece stream so attacks never shift the piece sequence.
type GarbageStream struct {
	rng   *RNG
	draws uint64
}

// NewGarbageStream creates the hole stream for the given receiver.
func NewGarbageStream(matchSeed uint64, receiver core.CombatantID) *GarbageStream {
	return &GarbageStream{rng: NewRNG(Derive(matchSeed, GarbageLabel(receiver)))}
}

// Hole draws the next hole column.
func (g *GarbageStream) Hole() int {
	g.draws++
	return g.rng.Intn(Columns)
}

// Draws returns how many holes have been drawn.
func (g *GarbageStream) Draws() uint64 {
	return g.draws
}
