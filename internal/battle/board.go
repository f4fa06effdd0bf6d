package battle

import "github.com/vovakirdan/roguedex/internal/core"

// Board dimensions. Rows [0, HiddenRows) are the buffer above the visible field.
const (
	Cols        = 10
	Rows        = 40
	HiddenRows  = 20
	VisibleRows = Rows - HiddenRows
)

// Cell is the content of one board square.
type Cell uint8

const (
	CellEmpty   Cell = 0
	CellGarbage Cell = 8
)

// cellFor returns the locked-block color of a shape.
func cellFor(s Shape) Cell {
	return Cell(s) + 1
}

// Filled reports whether the cell holds a block.
func (c Cell) Filled() bool {
	return c != CellEmpty
}

// Board is the 40x10 grid of a combatant. It is a value type so views can
// copy it cheaply.
type Board [Rows][Cols]Cell

// InBounds reports whether p lies on the board.
func InBounds(p core.Point) bool {
	return p.X >= 0 && p.X < Cols && p.Y >= 0 && p.Y < Rows
}

// Occupied reports whether p is filled. Out-of-bounds squares count as filled.
func (b *Board) Occupied(p core.Point) bool {
	if !InBounds(p) {
		return true
	}
	return b[p.Y][p.X].Filled()
}

// Collides reports whether the piece overlaps a wall, the floor or a block.
func (b *Board) Collides(p Piece) bool {
	for _, c := range p.Cells() {
		if b.Occupied(c) {
			return true
		}
	}
	return false
}

// Place writes the piece's blocks onto the board.
func (b *Board) Place(p Piece) {
	v := cellFor(p.Shape)
	for _, c := range p.Cells() {
		if InBounds(c) {
			b[c.Y][c.X] = v
		}
	}
}

// rowFull reports whether every column of row y is filled.
func (b *Board) rowFull(y int) bool {
	for x := 0; x < Cols; x++ {
		if !b[y][x].Filled() {
			return false
		}
	}
	return true
}

// ClearLines removes every full row, drops the rows above, and returns the
// number of rows removed. All rows are scanned regardless of what locked.
func (b *Board) ClearLines() int {
	cleared := 0
	dst := Rows - 1
	for y := Rows - 1; y >= 0; y-- {
		if b.rowFull(y) {
			cleared++
			continue
		}
		if dst != y {
			b[dst] = b[y]
		}
		dst--
	}
	for ; dst >= 0; dst-- {
		b[dst] = [Cols]Cell{}
	}
	return cleared
}

// InsertGarbage pushes the stack up by n rows and fills the bottom n rows
// with garbage, leaving one empty square at column hole. It returns false if
// a block was pushed off the top of the buffer.
func (b *Board) InsertGarbage(n, hole int) bool {
	n = core.Clamp(n, 0, Rows)
	if n == 0 {
		return true
	}
	ok := true
	for y := 0; y < n; y++ {
		for x := 0; x < Cols; x++ {
			if b[y][x].Filled() {
				ok = false
			}
		}
	}
	for y := 0; y < Rows-n; y++ {
		b[y] = b[y+n]
	}
	var row [Cols]Cell
	for x := range row {
		if x != hole {
			row[x] = CellGarbage
		}
	}
	for y := Rows - n; y < Rows; y++ {
		b[y] = row
	}
	return ok
}

// Height returns the number of rows from the floor to the highest block in column x.
func (b *Board) Height(x int) int {
	if x < 0 || x >= Cols {
		return Rows
	}
	for y := 0; y < Rows; y++ {
		if b[y][x].Filled() {
			return Rows - y
		}
	}
	return 0
}

// dropDistance returns how far the piece can fall before colliding.
func (b *Board) dropDistance(p Piece) int {
	d := 0
	for !b.Collides(p.Moved(0, d+1)) {
		d++
	}
	return d
}

// entirelyHidden reports whether every block of p lies in the buffer rows.
func entirelyHidden(p Piece) bool {
	for _, c := range p.Cells() {
		if c.Y >= HiddenRows {
			return false
		}
	}
	return true
}
