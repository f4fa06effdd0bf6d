package bot

import (
	"errors"
	"testing"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/script"
)

func loadBot(t *testing.T, doc string) *script.Bot {
	t.Helper()
	b, err := script.LoadManifest([]byte(doc))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	return b
}

func newBattle() *battle.Battle {
	return battle.New(battle.DefaultConfig(), 42, beat.MustNew(120, beat.DefaultWindow))
}

const runaway = `
name: runaway
isa: 1
step_budget: 10
source: |
  loop:
    call move_right
    jmp loop
`

func TestBudgetExceededKeepsActions(t *testing.T) {
	b := newBattle()
	p := NewPlayer(core.Combatant1, loadBot(t, runaway))

	actions, err := p.Actions(b)
	if !errors.Is(err, script.ErrBudgetExceeded) {
		t.Fatalf("Actions() error = %v, expected ErrBudgetExceeded", err)
	}
	if len(actions) != 5 {
		t.Fatalf("Actions() returned %d actions, expected 5", len(actions))
	}

	accepted := 0
	for _, a := range actions {
		if a.Kind != battle.ActionMoveRight || a.Combatant != core.Combatant1 {
			t.Errorf("action = %+v, expected move_right for P1", a)
		}
		if b.Submit(a) {
			accepted++
		}
	}
	if accepted == 0 {
		t.Fatal("no queued action was accepted by the battle")
	}

	moved := 0
	for _, e := range b.DrainEvents() {
		if e.Kind == battle.EventPieceMoved {
			moved++
		}
	}
	if moved != accepted {
		t.Errorf("PieceMoved events = %d, expected %d", moved, accepted)
	}

	if s := p.Stats(); s.BudgetExceeded != 1 || s.Runs != 1 {
		t.Errorf("Stats() = %+v, expected one run over budget", s)
	}
}

func TestRunsOncePerBeat(t *testing.T) {
	b := newBattle()
	p := NewPlayer(core.Combatant1, loadBot(t, runaway))

	if _, err := p.Actions(b); err == nil {
		t.Fatal("expected the first run to exceed its budget")
	}
	b.AdvanceTick()
	for b.Stamp().Beat == 0 {
		if actions, err := p.Actions(b); actions != nil || err != nil {
			t.Fatalf("tick %d: Actions() = %v, %v, expected no run within the beat", b.Tick(), actions, err)
		}
		b.AdvanceTick()
	}
	if actions, _ := p.Actions(b); len(actions) != 5 {
		t.Errorf("Actions() on the next beat returned %d actions, expected 5", len(actions))
	}
}

func TestDropperLocks(t *testing.T) {
	b := newBattle()
	p := NewPlayer(core.Combatant2, loadBot(t, "name: dropper\nisa: 1\nsource: |\n  call hard_drop\n  halt\n"))

	actions, err := p.Actions(b)
	if err != nil {
		t.Fatalf("Actions() error = %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != battle.ActionHardDrop {
		t.Fatalf("Actions() = %v, expected one hard drop", actions)
	}
	b.Submit(actions[0])

	events := b.DrainEvents()
	if len(events) == 0 || events[0].Kind != battle.EventPieceLocked || events[0].Combatant != core.Combatant2 {
		t.Errorf("DrainEvents() = %v, expected P2 PieceLocked first", events)
	}
}

func TestWithBudget(t *testing.T) {
	b := newBattle()
	p := NewPlayer(core.Combatant1, loadBot(t, runaway), WithBudget(4))
	actions, _ := p.Actions(b)
	if len(actions) != 2 {
		t.Errorf("Actions() returned %d actions, expected 2", len(actions))
	}
}

func TestSnapshot(t *testing.T) {
	b := newBattle()
	if err := b.SetRow(core.Combatant1, 39, "X........."); err != nil {
		t.Fatal(err)
	}
	s := snapshot{v: b.View(core.Combatant1)}

	if !s.Occupied(0, 39) || s.Occupied(1, 39) {
		t.Error("Occupied() does not reflect row 39")
	}
	if !s.Occupied(-1, 0) {
		t.Error("Occupied() should be true outside the board")
	}
	if s.ColumnHeight(0) != 1 {
		t.Errorf("ColumnHeight(0) = %d, expected 1", s.ColumnHeight(0))
	}
	if s.HoldShape() != -1 {
		t.Errorf("HoldShape() = %d, expected -1", s.HoldShape())
	}
	if s.NextShape(99) != -1 {
		t.Errorf("NextShape(99) = %d, expected -1", s.NextShape(99))
	}
	if s.PieceShape() < 0 || s.PieceX() != battle.SpawnX {
		t.Errorf("piece = shape %d x %d, expected a spawned piece", s.PieceShape(), s.PieceX())
	}
}
