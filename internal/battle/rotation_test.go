package battle

import (
	"testing"

	"github.com/vovakirdan/roguedex/internal/core"
)

func TestRotationUsesFirstFittingKick(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	// A T flush against the left wall cannot rotate in place to state 2.
	if err := b.SetPiece(core.Combatant1, Piece{Shape: ShapeT, Rotation: 1, X: -1, Y: 30}); err != nil {
		t.Fatalf("SetPiece() failed: %v", err)
	}

	if !b.Submit(b.Action(ActionRotateCW, core.Combatant1)) {
		t.Fatal("RotateCW dropped")
	}
	events := b.DrainEvents()
	want := Piece{Shape: ShapeT, Rotation: 2, X: 0, Y: 30}
	if len(events) != 1 || events[0].Kind != EventPieceRotated || events[0].Piece != want {
		t.Errorf("events = %v, expected PieceRotated to %+v", events, want)
	}
}

func TestRotationFailsWhenEveryKickCollides(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	b.SetRow(core.Combatant1, 38, "XXXXXXXXXX")
	b.SetRow(core.Combatant1, 39, "....XXXXXX")
	start := Piece{Shape: ShapeI, Rotation: 0, X: 0, Y: 38}
	if err := b.SetPiece(core.Combatant1, start); err != nil {
		t.Fatalf("SetPiece() failed: %v", err)
	}

	for _, kind := range []ActionKind{ActionRotateCW, ActionRotateCCW} {
		if b.Submit(b.Action(kind, core.Combatant1)) {
			t.Errorf("%s accepted in a sealed corridor", kind)
		}
	}
	if got := b.View(core.Combatant1).Piece; got != start {
		t.Errorf("piece = %+v, expected unchanged %+v", got, start)
	}
	if events := b.DrainEvents(); len(events) != 0 {
		t.Errorf("failed rotations logged %v", events)
	}
}

func TestKickDirection(t *testing.T) {
	start := Piece{Shape: ShapeT, Rotation: 0, X: 4, Y: 30}
	tests := []struct {
		test int
		want Piece
	}{
		{1, Piece{Shape: ShapeT, Rotation: 1, X: 3, Y: 30}},
		{2, Piece{Shape: ShapeT, Rotation: 1, X: 3, Y: 31}},
		{3, Piece{Shape: ShapeT, Rotation: 1, X: 4, Y: 28}},
	}
	kicks := Kicks(ShapeT, 0, 1)
	for _, tt := range tests {
		if got := start.Rotated(1, kicks[tt.test]); got != tt.want {
			t.Errorf("Rotated() with kick %d = %+v, expected %+v", tt.test, got, tt.want)
		}
	}
}

func TestKickTablesStartWithIdentity(t *testing.T) {
	for s := ShapeI; s <= ShapeZ; s++ {
		for from := 0; from < 4; from++ {
			for _, to := range []int{(from + 1) % 4, (from + 3) % 4} {
				k := Kicks(s, from, to)
				if len(k) == 0 || k[0] != core.Pt(0, 0) {
					t.Errorf("Kicks(%s, %d, %d) = %v, expected (0,0) first", s, from, to, k)
				}
			}
		}
	}
	if len(Kicks(ShapeO, 0, 1)) != 1 {
		t.Error("O should never kick")
	}
}
