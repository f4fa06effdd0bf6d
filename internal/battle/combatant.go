package battle

import (
	"github.com/vovakirdan/roguedex/internal/bag"
	"github.com/vovakirdan/roguedex/internal/core"
)

// Status is the lifecycle of a combatant.
type Status uint8

const (
	StatusActive Status = iota
	StatusToppedOut
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusToppedOut:
		return "topped_out"
	default:
		return "unknown"
	}
}

// PendingGarbage is an attack received but not yet inserted. The hole is
// drawn at receipt so it only depends on the order of receipts.
type PendingGarbage struct {
	Lines      int    `json:"lines"`
	Hole       int    `json:"hole"`
	SourceTick uint32 `json:"source_tick"`
}

// Combatant is one side of a battle. It is mutated only by Battle while
// resolving actions and ticks.
type Combatant struct {
	id       core.CombatantID
	mirrored bool

	board    Board
	piece    Piece
	hasPiece bool
	hold     Shape
	hasHold  bool
	canHold  bool
	next     []Shape

	gen   *bag.Generator
	holes *bag.GarbageStream

	pending []PendingGarbage

	score int
	lines int
	combo int

	status Status

	gravityCounter int
	lockCounter    int
	lockResets     int
	lastLockTick   uint64
}

func newCombatant(id core.CombatantID, seed uint64, queue int) *Combatant {
	c := &Combatant{
		id:      id,
		gen:     bag.ForMatch(seed),
		holes:   bag.NewGarbageStream(seed, id),
		canHold: true,
	}
	for i := 0; i < queue; i++ {
		c.next = append(c.next, c.gen.Next())
	}
	return c
}

// ID returns the combatant id.
func (c *Combatant) ID() core.CombatantID { return c.id }

// Status returns the lifecycle state.
func (c *Combatant) Status() Status { return c.status }

// level is 1 plus one per ten cleared lines.
func (c *Combatant) level() int {
	return 1 + c.lines/10
}

func (c *Combatant) grounded() bool {
	return c.board.Collides(c.piece.Moved(0, 1))
}

func (c *Combatant) pendingLines() int {
	n := 0
	for _, p := range c.pending {
		n += p.Lines
	}
	return n
}

// popNext takes the head of the queue and refills it from the bag.
func (c *Combatant) popNext() Shape {
	s := c.next[0]
	copy(c.next, c.next[1:])
	c.next[len(c.next)-1] = c.gen.Next()
	return s
}
