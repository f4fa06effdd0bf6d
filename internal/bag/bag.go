package bag

import "fmt"

// Shape identifies one of the seven tetrominoes.
type Shape uint8

const (
	ShapeI Shape = iota
	ShapeJ
	ShapeL
	ShapeO
	ShapeS
	ShapeT
	ShapeZ
)

// NumShapes is the size of one bag.
const NumShapes = 7

// PieceStream labels the stream shared by both combatants' piece queues.
const PieceStream = "pieces"

var shapeNames = [NumShapes]string{"I", "J", "L", "O", "S", "T", "Z"}

// String returns the conventional letter for the shape.
func (s Shape) String() string {
	if int(s) < NumShapes {
		return shapeNames[s]
	}
	return "?"
}

// Valid reports whether s is one of the seven shapes.
func (s Shape) Valid() bool {
	return int(s) < NumShapes
}

// ParseShape converts a letter back into a Shape.
func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return 0, fmt.Errorf("bag: unknown shape %q", name)
}

// Generator yields shapes such that every aligned window of seven draws
// contains each shape exactly once.
type Generator struct {
	rng   *RNG
	bag   [NumShapes]Shape
	pos   int
	draws uint64
}

// New creates a generator whose sequence depends only on seed.
func New(seed uint64) *Generator {
	g := &Generator{rng: NewRNG(seed), pos: NumShapes}
	return g
}

// ForMatch creates the shared piece generator for a match seed.
func ForMatch(matchSeed uint64) *Generator {
	return New(Derive(matchSeed, PieceStream))
}

// Next draws the next shape.
func (g *Generator) Next() Shape {
	if g.pos >= NumShapes {
		g.refill()
	}
	s := g.bag[g.pos]
	g.pos++
	g.draws++
	return s
}

// Draws returns how many shapes have been drawn.
func (g *Generator) Draws() uint64 {
	return g.draws
}

// refill shuffles a fresh bag with Fisher-Yates.
func (g *Generator) refill() {
	for i := range g.bag {
		g.bag[i] = Shape(i)
	}
	for i := NumShapes - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		g.bag[i], g.bag[j] = g.bag[j], g.bag[i]
	}
	g.pos = 0
}

// Sequence is a lazily extended record of a generator's output, used to
// look up what any draw index must have produced.
type Sequence struct {
	gen    *Generator
	shapes []Shape
}

// NewSequence records the shared piece sequence for a match seed.
func NewSequence(matchSeed uint64) *Sequence {
	return &Sequence{gen: ForMatch(matchSeed)}
}

// At returns the shape produced by draw i (zero-based).
func (s *Sequence) At(i uint64) Shape {
	for uint64(len(s.shapes)) <= i {
		s.shapes = append(s.shapes, s.gen.Next())
	}
	return s.shapes[i]
}
