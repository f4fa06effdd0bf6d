package bot

import (
	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/core"
)

// snapshot exposes a battle view to a script. The view is a copy, so a
// program can never reach the live battle.
type snapshot struct {
	v battle.View
}

func (s snapshot) PieceX() int { return s.v.Piece.X }
func (s snapshot) PieceY() int { return s.v.Piece.Y }

func (s snapshot) PieceShape() int {
	if !s.v.HasPiece {
		return -1
	}
	return int(s.v.Piece.Shape)
}

func (s snapshot) PieceRotation() int { return s.v.Piece.Rotation }

func (s snapshot) Occupied(x, y int) bool {
	return s.v.Board.Occupied(core.Pt(x, y))
}

func (s snapshot) HoldShape() int {
	if !s.v.HasHold {
		return -1
	}
	return int(s.v.Hold)
}

func (s snapshot) NextShape(i int) int {
	if i < 0 || i >= len(s.v.Next) {
		return -1
	}
	return int(s.v.Next[i])
}

func (s snapshot) ColumnHeight(x int) int { return s.v.Board.Height(x) }
func (s snapshot) Score() int             { return s.v.Score }
func (s snapshot) PendingGarbage() int    { return s.v.Pending }
