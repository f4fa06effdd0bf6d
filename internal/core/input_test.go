package core

import "testing"

func TestInputFrame(t *testing.T) {
	var f InputFrame
	if f.Has(IntentLeft) {
		t.Fatal("zero frame should hold nothing")
	}

	f.Set(IntentLeft)
	f.Set(IntentHardDrop)
	clone := f.Clone()
	f.Clear()

	if f.Has(IntentLeft) {
		t.Error("Clear() left IntentLeft held")
	}
	if !clone.Has(IntentLeft) || !clone.Has(IntentHardDrop) {
		t.Error("Clone() should be independent of the source frame")
	}
}

func TestCombatantOpponent(t *testing.T) {
	if Combatant1.Opponent() != Combatant2 || Combatant2.Opponent() != Combatant1 {
		t.Error("Opponent() should swap sides")
	}
	if CombatantID(7).Valid() {
		t.Error("Valid() = true for out-of-range id")
	}
}
