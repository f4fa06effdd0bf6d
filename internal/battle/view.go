package battle

import "github.com/vovakirdan/roguedex/internal/core"

// View is a read-only copy of a combatant. Mutating it has no effect on the
// battle.
type View struct {
	ID           core.CombatantID `json:"id"`
	Status       Status           `json:"status"`
	Mirrored     bool             `json:"mirrored"`
	Board        Board            `json:"-"`
	Piece        Piece            `json:"piece"`
	HasPiece     bool             `json:"has_piece"`
	Hold         Shape            `json:"hold"`
	HasHold      bool             `json:"has_hold"`
	CanHold      bool             `json:"can_hold"`
	Next         []Shape          `json:"next"`
	Score        int              `json:"score"`
	Lines        int              `json:"lines"`
	Level        int              `json:"level"`
	Combo        int              `json:"combo"`
	Pending      int              `json:"pending"`
	LastLockTick uint64           `json:"last_lock_tick"`
	Draws        uint64           `json:"draws"`
}

// Rows returns the board as strings, one per row from the top, with '.' for
// empty squares and the shape letter or 'G' for blocks. Only the visible
// rows are returned unless all is set.
func (v View) Rows(all bool) []string {
	start := HiddenRows
	if all {
		start = 0
	}
	out := make([]string, 0, Rows-start)
	for y := start; y < Rows; y++ {
		row := make([]byte, Cols)
		for x := 0; x < Cols; x++ {
			row[x] = cellRune(v.Board[y][x])
		}
		out = append(out, string(row))
	}
	return out
}

func cellRune(c Cell) byte {
	switch {
	case c == CellEmpty:
		return '.'
	case c == CellGarbage:
		return 'G'
	case c >= 1 && c <= 7:
		return Shape(c - 1).String()[0]
	default:
		return '?'
	}
}

// Tail returns the most recently drawn shape, which sits at the end of the
// next queue.
func (v View) Tail() Shape {
	if len(v.Next) == 0 {
		return 0
	}
	return v.Next[len(v.Next)-1]
}

func (c *Combatant) view() View {
	return View{
		ID:           c.id,
		Status:       c.status,
		Mirrored:     c.mirrored,
		Board:        c.board,
		Piece:        c.piece,
		HasPiece:     c.hasPiece,
		Hold:         c.hold,
		HasHold:      c.hasHold,
		CanHold:      c.canHold,
		Next:         append([]Shape(nil), c.next...),
		Score:        c.score,
		Lines:        c.lines,
		Level:        c.level(),
		Combo:        c.combo,
		Pending:      c.pendingLines(),
		LastLockTick: c.lastLockTick,
		Draws:        c.gen.Draws(),
	}
}

// View returns a snapshot of a combatant. An invalid id yields a zero view.
func (b *Battle) View(id core.CombatantID) View {
	c := b.combatant(id)
	if c == nil {
		return View{ID: id}
	}
	return c.view()
}

// Mirror is the subset of a remote combatant carried by state deltas.
type Mirror struct {
	Status       Status
	Piece        Piece
	HasPiece     bool
	Score        int
	LastLockTick uint64
}

// ApplyMirror overwrites the peer-authoritative fields of a mirrored
// combatant. It reports false for combatants simulated locally.
func (b *Battle) ApplyMirror(id core.CombatantID, m Mirror) bool {
	c := b.combatant(id)
	if c == nil || !c.mirrored {
		return false
	}
	c.status = m.Status
	c.piece = m.Piece
	c.hasPiece = m.HasPiece
	c.score = m.Score
	c.lastLockTick = m.LastLockTick
	return true
}
