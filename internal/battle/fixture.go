package battle

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/roguedex/internal/core"
)

// ErrFixture is returned when a fixture cannot be applied.
var ErrFixture = errors.New("battle: invalid fixture")

// SetRow overwrites board row y of a combatant from a pattern of Cols
// characters; '.' is empty, anything else a garbage block. Intended for
// test setups and scenarios, not for play.
func (b *Battle) SetRow(id core.CombatantID, y int, pattern string) error {
	c := b.combatant(id)
	if c == nil {
		return fmt.Errorf("%w: unknown combatant %d", ErrFixture, id)
	}
	if y < 0 || y >= Rows {
		return fmt.Errorf("%w: row %d out of range", ErrFixture, y)
	}
	if len(pattern) != Cols {
		return fmt.Errorf("%w: row pattern %q must have %d columns", ErrFixture, pattern, Cols)
	}
	for x := 0; x < Cols; x++ {
		if pattern[x] == '.' {
			c.board[y][x] = CellEmpty
		} else {
			c.board[y][x] = CellGarbage
		}
	}
	return nil
}

// SetPiece replaces the active piece of a combatant.
func (b *Battle) SetPiece(id core.CombatantID, p Piece) error {
	c := b.combatant(id)
	if c == nil || c.mirrored {
		return fmt.Errorf("%w: unknown or mirrored combatant %d", ErrFixture, id)
	}
	if !p.Shape.Valid() || p.Rotation < 0 || p.Rotation > 3 {
		return fmt.Errorf("%w: bad piece %+v", ErrFixture, p)
	}
	if c.board.Collides(p) {
		return fmt.Errorf("%w: piece %+v collides", ErrFixture, p)
	}
	c.piece = p
	c.hasPiece = true
	c.gravityCounter = 0
	c.lockCounter = 0
	c.lockResets = 0
	return nil
}
