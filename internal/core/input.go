package core

// Intent represents a semantic player intent, abstracted from physical key presses.
// The input layer turns held intents into battle actions with DAS/ARR timing.
type Intent int

const (
	IntentNone      Intent = iota
	IntentLeft             // Left arrow, A
	IntentRight            // Right arrow, D
	IntentSoftDrop         // Down arrow, S
	IntentHardDrop         // Space
	IntentRotateCW         // Up arrow, X
	IntentRotateCCW        // Z, Ctrl
	IntentHold             // C, Shift
	IntentQuit             // Q, Ctrl+C
)

// String returns a human-readable name for the intent.
func (a Intent) String() string {
	switch a {
	case IntentNone:
		return "None"
	case IntentLeft:
		return "Left"
	case IntentRight:
		return "Right"
	case IntentSoftDrop:
		return "SoftDrop"
	case IntentHardDrop:
		return "HardDrop"
	case IntentRotateCW:
		return "RotateCW"
	case IntentRotateCCW:
		return "RotateCCW"
	case IntentHold:
		return "Hold"
	case IntentQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// InputFrame holds the intents that are held down during one simulation tick.
type InputFrame struct {
	// Held maps intents to whether they are held this frame.
	Held map[Intent]bool
}

// NewInputFrame creates an empty input frame.
func NewInputFrame() InputFrame {
	return InputFrame{
		Held: make(map[Intent]bool),
	}
}

// Set marks an intent as held for this frame.
func (f *InputFrame) Set(a Intent) {
	if f.Held == nil {
		f.Held = make(map[Intent]bool)
	}
	f.Held[a] = true
}

// Has returns true if the given intent is held this frame.
func (f InputFrame) Has(a Intent) bool {
	if f.Held == nil {
		return false
	}
	return f.Held[a]
}

// Clear resets all intents for the next frame.
func (f *InputFrame) Clear() {
	for k := range f.Held {
		delete(f.Held, k)
	}
}

// Clone creates a copy of this input frame.
func (f InputFrame) Clone() InputFrame {
	clone := NewInputFrame()
	for k, v := range f.Held {
		clone.Held[k] = v
	}
	return clone
}
