package multiplayer

import (
	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/input"
)

// Source produces the actions for one combatant at the current tick. An
// error comes with the actions gathered before it and is logged, not fatal.
// *bot.Player is a Source.
type Source interface {
	Actions(b *battle.Battle) ([]battle.Action, error)
}

// FrameFunc returns the intents held at a tick.
type FrameFunc func(tick uint64) core.InputFrame

// InputSource turns held intents into actions through DAS/ARR auto-repeat.
type InputSource struct {
	id    core.CombatantID
	rep   *input.Repeater
	frame FrameFunc
}

// NewInputSource creates a source for combatant id reading frames from f.
func NewInputSource(id core.CombatantID, rep *input.Repeater, f FrameFunc) *InputSource {
	return &InputSource{id: id, rep: rep, frame: f}
}

// Actions steps the repeater with the frame held at the current tick.
func (s *InputSource) Actions(b *battle.Battle) ([]battle.Action, error) {
	kinds := s.rep.Step(s.frame(b.Tick()))
	if len(kinds) == 0 {
		return nil, nil
	}
	stamp := b.Stamp()
	out := make([]battle.Action, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, battle.NewAction(k, s.id, stamp))
	}
	return out, nil
}
