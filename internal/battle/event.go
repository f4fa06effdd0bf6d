package battle

import (
	"fmt"

	"github.com/vovakirdan/roguedex/internal/core"
)

// EventKind enumerates resolved outcomes.
type EventKind uint8

const (
	EventPieceMoved EventKind = iota
	EventPieceRotated
	EventPieceLocked
	EventLinesCleared
	EventGarbageSent
	EventGarbageReceived
	EventTopOut
	EventPieceHeld
	EventCustom
)

var eventNames = [...]string{
	EventPieceMoved:      "piece_moved",
	EventPieceRotated:    "piece_rotated",
	EventPieceLocked:     "piece_locked",
	EventLinesCleared:    "lines_cleared",
	EventGarbageSent:     "garbage_sent",
	EventGarbageReceived: "garbage_received",
	EventTopOut:          "top_out",
	EventPieceHeld:       "piece_held",
	EventCustom:          "custom",
}

// String returns the snake_case name of the event.
func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// ParseEventKind converts a name back into an EventKind.
func ParseEventKind(name string) (EventKind, error) {
	for i, n := range eventNames {
		if n == name {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("battle: unknown event %q", name)
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *EventKind) UnmarshalText(b []byte) error {
	v, err := ParseEventKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Event is one entry of the ordered event log. Fields beyond Kind,
// Combatant and Tick are meaningful only for the kinds that set them:
//
//	PieceMoved, PieceRotated, PieceLocked, PieceHeld: Piece
//	LinesCleared: Lines, OnBeat
//	GarbageSent: Lines
//	GarbageReceived: Lines, Hole
//	Custom: Payload
type Event struct {
	Kind      EventKind        `json:"kind"`
	Combatant core.CombatantID `json:"combatant"`
	Tick      uint64           `json:"tick"`
	Piece     Piece            `json:"piece"`
	Lines     int              `json:"lines,omitempty"`
	OnBeat    bool             `json:"on_beat,omitempty"`
	Hole      int              `json:"hole,omitempty"`
	Payload   []byte           `json:"payload,omitempty"`
}

// String formats the event for logs.
func (e Event) String() string {
	switch e.Kind {
	case EventLinesCleared:
		return fmt.Sprintf("%s %s(%d, onBeat=%v)@%d", e.Combatant, e.Kind, e.Lines, e.OnBeat, e.Tick)
	case EventGarbageSent:
		return fmt.Sprintf("%s %s(%d)@%d", e.Combatant, e.Kind, e.Lines, e.Tick)
	case EventGarbageReceived:
		return fmt.Sprintf("%s %s(%d, hole=%d)@%d", e.Combatant, e.Kind, e.Lines, e.Hole, e.Tick)
	case EventTopOut, EventCustom:
		return fmt.Sprintf("%s %s@%d", e.Combatant, e.Kind, e.Tick)
	default:
		return fmt.Sprintf("%s %s %s r%d (%d,%d)@%d", e.Combatant, e.Kind, e.Piece.Shape, e.Piece.Rotation, e.Piece.X, e.Piece.Y, e.Tick)
	}
}
