// Package bot drives a combatant from a script program. The program runs
// at most once per beat against a snapshot of the combatant, and the
// commands it queues become ordinary actions.
package bot

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/script"
)

var commandActions = [...]battle.ActionKind{
	script.CmdMoveLeft:  battle.ActionMoveLeft,
	script.CmdMoveRight: battle.ActionMoveRight,
	script.CmdMoveDown:  battle.ActionSoftDrop,
	script.CmdRotateCW:  battle.ActionRotateCW,
	script.CmdRotateCCW: battle.ActionRotateCCW,
	script.CmdHardDrop:  battle.ActionHardDrop,
	script.CmdHold:      battle.ActionHold,
}

// ActionFor maps a script command to the action it requests.
func ActionFor(c script.Command) (battle.ActionKind, bool) {
	if int(c) >= len(commandActions) {
		return 0, false
	}
	return commandActions[c], true
}

// Stats counts how runs ended.
type Stats struct {
	Runs           int
	Commands       int
	BudgetExceeded int
	Faults         int
}

// Player runs one bot for one combatant.
type Player struct {
	id      core.CombatantID
	bot     *script.Bot
	machine *script.Machine
	budget  int
	log     *log.Logger

	lastBeat int64
	ran      bool
	stats    Stats
}

// Option configures a Player.
type Option func(*Player)

// WithBudget overrides the manifest step budget.
func WithBudget(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.budget = n
		}
	}
}

// WithLogger sets the player logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPlayer creates a player for combatant id.
func NewPlayer(id core.CombatantID, b *script.Bot, opts ...Option) *Player {
	p := &Player{
		id:      id,
		bot:     b,
		machine: script.NewMachine(b.Program),
		budget:  b.Budget(),
		log:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the combatant the player drives.
func (p *Player) ID() core.CombatantID { return p.id }

// Name returns the bot name.
func (p *Player) Name() string { return p.bot.Name }

// Stats returns run counters.
func (p *Player) Stats() Stats { return p.stats }

// Actions runs the program if the battle has entered a new beat and
// returns the resulting actions, stamped at the current tick. A budget stop
// or fault is returned as the error next to the actions queued before it;
// both are normal outcomes for the caller to log, not to abort on.
func (p *Player) Actions(b *battle.Battle) ([]battle.Action, error) {
	stamp := b.Stamp()
	if p.ran && stamp.Beat == p.lastBeat {
		return nil, nil
	}
	if b.Status(p.id) != battle.StatusActive {
		return nil, nil
	}
	p.ran = true
	p.lastBeat = stamp.Beat

	res, err := p.machine.Run(snapshot{v: b.View(p.id)}, p.budget)
	p.stats.Runs++
	p.stats.Commands += len(res.Commands)
	switch {
	case errors.Is(err, script.ErrBudgetExceeded):
		p.stats.BudgetExceeded++
		p.log.Debug("bot budget exceeded", "bot", p.bot.Name, "steps", res.Steps, "commands", len(res.Commands))
	case err != nil:
		p.stats.Faults++
		p.log.Debug("bot fault", "bot", p.bot.Name, "err", err)
	}

	actions := make([]battle.Action, 0, len(res.Commands))
	for _, c := range res.Commands {
		if kind, ok := ActionFor(c); ok {
			actions = append(actions, battle.NewAction(kind, p.id, stamp))
		}
	}
	return actions, err
}
