package battle

import (
	"github.com/vovakirdan/roguedex/internal/bag"
	"github.com/vovakirdan/roguedex/internal/core"
)

// Shape is an alias to bag.Shape for convenience.
type Shape = bag.Shape

// Re-export shape constants for convenience.
const (
	ShapeI = bag.ShapeI
	ShapeJ = bag.ShapeJ
	ShapeL = bag.ShapeL
	ShapeO = bag.ShapeO
	ShapeS = bag.ShapeS
	ShapeT = bag.ShapeT
	ShapeZ = bag.ShapeZ
)

// Spawn position of a new piece's bounding box. Rows 18 and 19 are the
// bottom of the hidden buffer, directly above the visible field.
const (
	SpawnX = 3
	SpawnY = 18
)

type offsets [4]core.Point

func pts(xy ...int) offsets {
	var o offsets
	for i := range o {
		o[i] = core.Pt(xy[2*i], xy[2*i+1])
	}
	return o
}

// shapeCells[shape][rotation] lists block offsets within the bounding box.
var shapeCells = [bag.NumShapes][4]offsets{
	ShapeI: {
		pts(0, 1, 1, 1, 2, 1, 3, 1),
		pts(2, 0, 2, 1, 2, 2, 2, 3),
		pts(0, 2, 1, 2, 2, 2, 3, 2),
		pts(1, 0, 1, 1, 1, 2, 1, 3),
	},
	ShapeJ: {
		pts(0, 0, 0, 1, 1, 1, 2, 1),
		pts(1, 0, 2, 0, 1, 1, 1, 2),
		pts(0, 1, 1, 1, 2, 1, 2, 2),
		pts(1, 0, 1, 1, 0, 2, 1, 2),
	},
	ShapeL: {
		pts(2, 0, 0, 1, 1, 1, 2, 1),
		pts(1, 0, 1, 1, 1, 2, 2, 2),
		pts(0, 1, 1, 1, 2, 1, 0, 2),
		pts(0, 0, 1, 0, 1, 1, 1, 2),
	},
	ShapeO: {
		pts(1, 0, 2, 0, 1, 1, 2, 1),
		pts(1, 0, 2, 0, 1, 1, 2, 1),
		pts(1, 0, 2, 0, 1, 1, 2, 1),
		pts(1, 0, 2, 0, 1, 1, 2, 1),
	},
	ShapeS: {
		pts(1, 0, 2, 0, 0, 1, 1, 1),
		pts(1, 0, 1, 1, 2, 1, 2, 2),
		pts(1, 1, 2, 1, 0, 2, 1, 2),
		pts(0, 0, 0, 1, 1, 1, 1, 2),
	},
	ShapeT: {
		pts(1, 0, 0, 1, 1, 1, 2, 1),
		pts(1, 0, 1, 1, 2, 1, 1, 2),
		pts(0, 1, 1, 1, 2, 1, 1, 2),
		pts(1, 0, 0, 1, 1, 1, 1, 2),
	},
	ShapeZ: {
		pts(0, 0, 1, 0, 1, 1, 2, 1),
		pts(2, 0, 1, 1, 2, 1, 1, 2),
		pts(0, 1, 1, 1, 1, 2, 2, 2),
		pts(1, 0, 0, 1, 1, 1, 0, 2),
	},
}

// rotationPair keys a kick table by source and destination orientation.
type rotationPair struct{ from, to int }

// Kick offsets are (dx, dy) pairs applied as x+dx, y-dy on the y-down board.
// The dy values are the y-down listing, so a negative dy moves the piece
// down and the vertical kicks run opposite to the textbook SRS table.
// Replays and peers depend on the table exactly as written.
var kicksJLSTZ = map[rotationPair][]core.Point{
	{0, 1}: {{X: 0, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: 2}, {X: -1, Y: 2}},
	{1, 0}: {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: -2}, {X: 1, Y: -2}},
	{1, 2}: {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: -1}, {X: 0, Y: 2}, {X: 1, Y: 2}},
	{2, 1}: {{X: 0, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: 1}, {X: 0, Y: -2}, {X: -1, Y: -2}},
	{2, 3}: {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: -2}, {X: 1, Y: -2}},
	{3, 2}: {{X: 0, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: 2}, {X: -1, Y: 2}},
	{3, 0}: {{X: 0, Y: 0}, {X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: 2}, {X: -1, Y: 2}},
	{0, 3}: {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: -2}, {X: 1, Y: -2}},
}

var kicksI = map[rotationPair][]core.Point{
	{0, 1}: {{X: 0, Y: 0}, {X: -2, Y: 0}, {X: 1, Y: 0}, {X: -2, Y: 1}, {X: 1, Y: -2}},
	{1, 0}: {{X: 0, Y: 0}, {X: 2, Y: 0}, {X: -1, Y: 0}, {X: 2, Y: -1}, {X: -1, Y: 2}},
	{1, 2}: {{X: 0, Y: 0}, {X: -1, Y: 0}, {X: 2, Y: 0}, {X: -1, Y: 2}, {X: 2, Y: -1}},
	{2, 1}: {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: -2, Y: 0}, {X: 1, Y: -2}, {X: -2, Y: 1}},
	{2, 3}: {{X: 0, Y: 0}, {X: 2, Y: 0}, {X: -1, Y: 0}, {X: 2, Y: 1}, {X: -1, Y: -2}},
	{3, 2}: {{X: 0, Y: 0}, {X: -2, Y: 0}, {X: 1, Y: 0}, {X: -2, Y: -1}, {X: 1, Y: 2}},
	{3, 0}: {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: -2, Y: 0}, {X: 1, Y: -2}, {X: -2, Y: 1}},
	{0, 3}: {{X: 0, Y: 0}, {X: -1, Y: 0}, {X: 2, Y: 0}, {X: -1, Y: 2}, {X: 2, Y: -1}},
}

var kicksO = []core.Point{{X: 0, Y: 0}}

// Kicks returns the ordered offsets tried when rotating shape from one
// orientation to another. The first entry is always the unrotated position.
func Kicks(shape Shape, from, to int) []core.Point {
	switch shape {
	case ShapeO:
		return kicksO
	case ShapeI:
		return kicksI[rotationPair{from, to}]
	default:
		return kicksJLSTZ[rotationPair{from, to}]
	}
}

// Piece is a shape at an orientation and board position.
type Piece struct {
	Shape    Shape `json:"shape"`
	Rotation int   `json:"rotation"`
	X        int   `json:"x"`
	Y        int   `json:"y"`
}

// Cells returns the board coordinates the piece occupies.
func (p Piece) Cells() [4]core.Point {
	var out [4]core.Point
	o := shapeCells[p.Shape][p.Rotation&3]
	for i, c := range o {
		out[i] = c.Add(core.Pt(p.X, p.Y))
	}
	return out
}

// Moved returns the piece shifted by dx, dy.
func (p Piece) Moved(dx, dy int) Piece {
	p.X += dx
	p.Y += dy
	return p
}

// Rotated returns the piece in orientation to, displaced by an SRS kick.
func (p Piece) Rotated(to int, kick core.Point) Piece {
	p.Rotation = to & 3
	p.X += kick.X
	p.Y -= kick.Y
	return p
}

// spawnPiece creates a shape at the spawn position.
func spawnPiece(s Shape) Piece {
	return Piece{Shape: s, Rotation: 0, X: SpawnX, Y: SpawnY}
}
