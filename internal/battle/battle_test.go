package battle

import (
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/roguedex/internal/bag"
	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/core"
)

func testClock() *beat.Clock {
	return beat.MustNew(120, beat.DefaultWindow)
}

func newTestBattle(t *testing.T, cfg Config, opts ...Option) *Battle {
	t.Helper()
	return New(cfg, 42, testClock(), opts...)
}

// setupSingleHole fills row 39 except column 5 and parks a vertical I above it.
func setupSingleHole(t *testing.T, b *Battle) {
	t.Helper()
	if err := b.SetRow(core.Combatant1, 39, "XXXXX.XXXX"); err != nil {
		t.Fatalf("SetRow() failed: %v", err)
	}
	if err := b.SetPiece(core.Combatant1, Piece{Shape: ShapeI, Rotation: 1, X: 3, Y: 30}); err != nil {
		t.Fatalf("SetPiece() failed: %v", err)
	}
}

func TestHardDropSingleClearOffBeat(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	setupSingleHole(t, b)

	off := b.Clock().Stamp(250 * time.Millisecond)
	if off.OnBeat {
		t.Fatal("250ms should be off-beat at 120 BPM")
	}
	if !b.Submit(NewAction(ActionHardDrop, core.Combatant1, off)) {
		t.Fatal("Submit(HardDrop) was dropped")
	}

	expected := []Event{
		{Kind: EventPieceLocked, Combatant: core.Combatant1, Piece: Piece{Shape: ShapeI, Rotation: 1, X: 3, Y: 36}},
		{Kind: EventLinesCleared, Combatant: core.Combatant1, Lines: 1, OnBeat: false},
	}
	if got := b.DrainEvents(); !reflect.DeepEqual(got, expected) {
		t.Errorf("DrainEvents() = %v, expected %v", got, expected)
	}

	v := b.View(core.Combatant1)
	if v.Lines != 1 {
		t.Errorf("Lines = %d, expected 1", v.Lines)
	}
	// The rest of the I piece drops into rows 37-39 of column 5.
	for y := 37; y < Rows; y++ {
		if !v.Board[y][5].Filled() {
			t.Errorf("row %d column 5 should be filled", y)
		}
	}
	if v.Board[39][0].Filled() {
		t.Error("cleared row should be gone")
	}
}

func TestHardDropSingleClearOnBeat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RouteGarbage = true
	b := newTestBattle(t, cfg)
	setupSingleHole(t, b)

	on := b.Clock().Stamp(100 * time.Millisecond)
	if !on.OnBeat {
		t.Fatal("100ms should be on-beat at 120 BPM")
	}
	b.Submit(NewAction(ActionHardDrop, core.Combatant1, on))

	expected := []Event{
		{Kind: EventPieceLocked, Combatant: core.Combatant1, Piece: Piece{Shape: ShapeI, Rotation: 1, X: 3, Y: 36}},
		{Kind: EventLinesCleared, Combatant: core.Combatant1, Lines: 1, OnBeat: true},
		{Kind: EventGarbageSent, Combatant: core.Combatant1, Lines: 1},
	}
	if got := b.DrainEvents(); !reflect.DeepEqual(got, expected) {
		t.Errorf("DrainEvents() = %v, expected %v", got, expected)
	}

	if p := b.View(core.Combatant2).Pending; p != 1 {
		t.Errorf("opponent Pending = %d, expected 1", p)
	}
}

func TestDrainEventsIdempotent(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	b.Submit(b.Action(ActionHardDrop, core.Combatant1))
	b.AdvanceTick()

	if len(b.DrainEvents()) == 0 {
		t.Fatal("expected events after a hard drop")
	}
	if got := b.DrainEvents(); len(got) != 0 {
		t.Errorf("second DrainEvents() = %v, expected empty", got)
	}
}

func TestInvalidActionsAreDropped(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	if err := b.SetPiece(core.Combatant1, Piece{Shape: ShapeO, Rotation: 0, X: -1, Y: 30}); err != nil {
		t.Fatalf("SetPiece() failed: %v", err)
	}
	before := b.Digest()

	tests := []Action{
		b.Action(ActionMoveLeft, core.Combatant1),
		b.Action(ActionCustom, core.Combatant1),
		b.Action(ActionHardDrop, core.CombatantID(9)),
	}
	for _, a := range tests {
		if b.Submit(a) {
			t.Errorf("Submit(%s) accepted, expected drop", a.Kind)
		}
	}
	if b.Digest() != before {
		t.Error("dropped actions changed state")
	}
	if got := b.DrainEvents(); len(got) != 0 {
		t.Errorf("dropped actions logged %v", got)
	}
}

func TestHoldOncePerPiece(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	first := b.View(core.Combatant1)

	if !b.Submit(b.Action(ActionHold, core.Combatant1)) {
		t.Fatal("first Hold() was dropped")
	}
	after := b.View(core.Combatant1)
	if !after.HasHold || after.Hold != first.Piece.Shape {
		t.Errorf("Hold = %v, expected %v", after.Hold, first.Piece.Shape)
	}
	if after.Piece.Shape != first.Next[0] {
		t.Errorf("active = %v, expected next %v", after.Piece.Shape, first.Next[0])
	}
	if b.Submit(b.Action(ActionHold, core.Combatant1)) {
		t.Error("second Hold() before a lock should be dropped")
	}

	b.Submit(b.Action(ActionHardDrop, core.Combatant1))
	if !b.Submit(b.Action(ActionHold, core.Combatant1)) {
		t.Fatal("Hold() after a lock was dropped")
	}
	if got := b.View(core.Combatant1).Piece; got != spawnPiece(first.Piece.Shape) {
		t.Errorf("swapped piece = %+v, expected %v at spawn", got, first.Piece.Shape)
	}
}

func TestSpawnCollisionTopsOut(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	if err := b.SetPiece(core.Combatant1, Piece{Shape: ShapeT, Rotation: 0, X: 0, Y: 30}); err != nil {
		t.Fatalf("SetPiece() failed: %v", err)
	}
	b.SetRow(core.Combatant1, 18, "XXXXXXXXX.")
	b.SetRow(core.Combatant1, 19, "XXXXXXXXX.")

	b.Submit(b.Action(ActionHardDrop, core.Combatant1))
	events := b.DrainEvents()
	if len(events) != 2 || events[0].Kind != EventPieceLocked || events[1].Kind != EventTopOut {
		t.Fatalf("events = %v, expected [PieceLocked TopOut]", events)
	}
	if b.Status(core.Combatant1) != StatusToppedOut {
		t.Error("combatant should be topped out")
	}
	if b.Submit(b.Action(ActionMoveLeft, core.Combatant1)) {
		t.Error("actions after TopOut should be dropped")
	}
	if b.Status(core.Combatant2) != StatusActive {
		t.Error("the other combatant keeps playing")
	}
}

func TestLockInBufferTopsOut(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	b.SetRow(core.Combatant1, 20, "XXXXXXXXX.")
	if err := b.SetPiece(core.Combatant1, Piece{Shape: ShapeO, Rotation: 0, X: 3, Y: 18}); err != nil {
		t.Fatalf("SetPiece() failed: %v", err)
	}

	b.Submit(b.Action(ActionHardDrop, core.Combatant1))
	events := b.DrainEvents()
	if len(events) != 2 || events[1].Kind != EventTopOut {
		t.Fatalf("events = %v, expected lock-out", events)
	}
}

func TestGarbageInsertedOnNextLock(t *testing.T) {
	b := newTestBattle(t, DefaultConfig())
	hole, ok := b.ReceiveGarbage(core.Combatant1, 2, 0)
	if !ok {
		t.Fatal("ReceiveGarbage() rejected")
	}

	// The sender can predict the hole with its own copy of the stream.
	if want := bag.NewGarbageStream(42, core.Combatant1).Hole(); hole != want {
		t.Errorf("hole = %d, expected %d", hole, want)
	}
	if p := b.View(core.Combatant1).Pending; p != 2 {
		t.Errorf("Pending = %d, expected 2", p)
	}

	b.Submit(b.Action(ActionHardDrop, core.Combatant1))
	var received *Event
	for _, e := range b.DrainEvents() {
		if e.Kind == EventGarbageReceived {
			e := e
			received = &e
		}
	}
	if received == nil || received.Lines != 2 || received.Hole != hole {
		t.Fatalf("GarbageReceived = %v, expected lines 2 hole %d", received, hole)
	}

	v := b.View(core.Combatant1)
	for _, y := range []int{38, 39} {
		for x := 0; x < Cols; x++ {
			want := CellGarbage
			if x == hole {
				want = CellEmpty
			}
			if v.Board[y][x] != want {
				t.Errorf("row %d col %d = %d, expected %d", y, x, v.Board[y][x], want)
			}
		}
	}
	if v.Pending != 0 {
		t.Errorf("Pending = %d after insertion", v.Pending)
	}
}

func TestGravityLocksPiece(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GravityTicks = 1
	cfg.LockDelayTicks = 2
	b := newTestBattle(t, cfg)

	locked := false
	for i := 0; i < 100 && !locked; i++ {
		b.AdvanceTick()
		for _, e := range b.DrainEvents() {
			if e.Kind == EventPieceLocked && e.Combatant == core.Combatant1 {
				locked = true
			}
		}
	}
	if !locked {
		t.Fatal("gravity never locked the first piece")
	}
}

func TestMirroredCombatant(t *testing.T) {
	b := newTestBattle(t, DefaultConfig(), WithMirrored(core.Combatant2))

	if b.Submit(b.Action(ActionMoveLeft, core.Combatant2)) {
		t.Error("actions for a mirrored combatant should be dropped")
	}
	if _, ok := b.ReceiveGarbage(core.Combatant2, 1, 0); ok {
		t.Error("garbage for a mirrored combatant belongs to its owner")
	}

	m := Mirror{Status: StatusActive, Piece: Piece{Shape: ShapeT, X: 4, Y: 25}, HasPiece: true, Score: 900, LastLockTick: 12}
	if !b.ApplyMirror(core.Combatant2, m) {
		t.Fatal("ApplyMirror() rejected")
	}
	v := b.View(core.Combatant2)
	if v.Score != 900 || v.Piece != m.Piece || v.LastLockTick != 12 {
		t.Errorf("mirror view = %+v", v)
	}
	if b.ApplyMirror(core.Combatant1, m) {
		t.Error("ApplyMirror() should reject the local combatant")
	}
}

func TestCustomActionHandler(t *testing.T) {
	handler := func(v View, a Action) ([]Event, bool) {
		if len(a.Payload) == 0 {
			return nil, false
		}
		return []Event{{Kind: EventCustom, Payload: a.Payload}}, true
	}
	b := newTestBattle(t, DefaultConfig(), WithCustomHandler(handler))

	if b.Submit(NewCustomAction(core.Combatant1, b.Stamp(), nil)) {
		t.Error("empty payload should be dropped by the handler")
	}
	if !b.Submit(NewCustomAction(core.Combatant1, b.Stamp(), []byte("taunt"))) {
		t.Fatal("custom action dropped")
	}
	events := b.DrainEvents()
	if len(events) != 1 || string(events[0].Payload) != "taunt" || events[0].Combatant != core.Combatant1 {
		t.Errorf("events = %v", events)
	}
}

func TestDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RouteGarbage = true

	run := func() ([]Event, [32]byte) {
		b := New(cfg, 1234, testClock())
		var log []Event
		kinds := []ActionKind{ActionMoveLeft, ActionRotateCW, ActionMoveRight, ActionMoveRight, ActionHardDrop, ActionHold, ActionSoftDrop}
		for tick := 0; tick < 900; tick++ {
			if tick%7 == 0 {
				id := core.CombatantID(tick / 7 % 2)
				b.Submit(b.Action(kinds[tick/7%len(kinds)], id))
			}
			b.AdvanceTick()
			log = append(log, b.DrainEvents()...)
		}
		return log, b.Digest()
	}

	log1, d1 := run()
	log2, d2 := run()
	if d1 != d2 {
		t.Error("same seed and actions produced different digests")
	}
	if !reflect.DeepEqual(log1, log2) {
		t.Error("same seed and actions produced different event logs")
	}
	if len(log1) == 0 {
		t.Error("expected the run to log events")
	}
}
