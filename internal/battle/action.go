package battle

import (
	"fmt"

	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/core"
)

// ActionKind enumerates the requests a combatant can make.
type ActionKind uint8

const (
	ActionMoveLeft ActionKind = iota
	ActionMoveRight
	ActionSoftDrop
	ActionHardDrop
	ActionRotateCW
	ActionRotateCCW
	ActionHold

	// ActionCustom carries an opaque payload for an embedding game's own
	// rules. It is dropped unless a CustomHandler is installed.
	ActionCustom
)

var actionNames = [...]string{
	ActionMoveLeft:  "move_left",
	ActionMoveRight: "move_right",
	ActionSoftDrop:  "soft_drop",
	ActionHardDrop:  "hard_drop",
	ActionRotateCW:  "rotate_cw",
	ActionRotateCCW: "rotate_ccw",
	ActionHold:      "hold",
	ActionCustom:    "custom",
}

// String returns the snake_case name of the action.
func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "unknown"
}

// ParseActionKind converts a name back into an ActionKind.
func ParseActionKind(name string) (ActionKind, error) {
	for i, n := range actionNames {
		if n == name {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("battle: unknown action %q", name)
}

// MarshalText encodes the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ActionKind) UnmarshalText(b []byte) error {
	v, err := ParseActionKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Action is an immutable request from a human or a bot. Its beat stamp is
// fixed at creation and never reevaluated.
type Action struct {
	Kind      ActionKind       `json:"kind"`
	Combatant core.CombatantID `json:"combatant"`
	Beat      int64            `json:"beat"`
	OnBeat    bool             `json:"on_beat"`
	Payload   []byte           `json:"payload,omitempty"`
}

// NewAction creates an action stamped with the given beat verdict.
func NewAction(kind ActionKind, id core.CombatantID, s beat.Stamp) Action {
	return Action{Kind: kind, Combatant: id, Beat: s.Beat, OnBeat: s.OnBeat}
}

// NewCustomAction creates an ActionCustom carrying payload.
func NewCustomAction(id core.CombatantID, s beat.Stamp, payload []byte) Action {
	a := NewAction(ActionCustom, id, s)
	a.Payload = append([]byte(nil), payload...)
	return a
}
