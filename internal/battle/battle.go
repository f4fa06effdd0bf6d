// Package battle is the lockstep turn engine. It resolves actions into an
// ordered event log for two combatants and owns every rule that decides
// piece placement, line clears and garbage.
//
// A Battle is not safe for concurrent use; the match loop is its only writer.
package battle

import (
	"time"

	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/core"
)

// Config holds the rule parameters. Both peers must agree on every field.
type Config struct {
	TickRate        int         `yaml:"tick_rate" json:"tick_rate"`
	NextQueue       int         `yaml:"next_queue" json:"next_queue"`
	GravityTicks    int         `yaml:"gravity_ticks" json:"gravity_ticks"`
	GravityStep     int         `yaml:"gravity_step" json:"gravity_step"`
	MinGravityTicks int         `yaml:"min_gravity_ticks" json:"min_gravity_ticks"`
	LockDelayTicks  int         `yaml:"lock_delay_ticks" json:"lock_delay_ticks"`
	MaxLockResets   int         `yaml:"max_lock_resets" json:"max_lock_resets"`
	Attack          AttackTable `yaml:"attack" json:"attack"`

	// RouteGarbage delivers GarbageSent to the opponent in the same tick.
	// Used when both combatants are simulated in this process.
	RouteGarbage bool `yaml:"route_garbage" json:"route_garbage"`
}

// DefaultConfig returns the standard rules at 60 ticks per second.
func DefaultConfig() Config {
	return Config{
		TickRate:        60,
		NextQueue:       5,
		GravityTicks:    60,
		GravityStep:     3,
		MinGravityTicks: 3,
		LockDelayTicks:  30,
		MaxLockResets:   15,
		Attack:          DefaultAttack,
	}
}

// CustomHandler resolves an ActionCustom. It sees a read-only view and may
// only contribute events; returning false drops the action.
type CustomHandler func(v View, a Action) ([]Event, bool)

// Option configures a Battle.
type Option func(*Battle)

// WithMirrored marks a combatant as owned by a remote peer. Mirrored
// combatants are never ticked or acted on locally; ApplyMirror updates them.
func WithMirrored(id core.CombatantID) Option {
	return func(b *Battle) {
		if c := b.combatant(id); c != nil {
			c.mirrored = true
		}
	}
}

// WithCustomHandler installs the resolver for ActionCustom.
func WithCustomHandler(h CustomHandler) Option {
	return func(b *Battle) {
		b.custom = h
	}
}

// Battle aggregates two combatants, the tick counter and the event log of
// the current tick.
type Battle struct {
	cfg     Config
	seed    uint64
	clock   *beat.Clock
	runtime core.RuntimeConfig

	combatants [2]*Combatant
	tick       uint64
	events     []Event
	custom     CustomHandler
}

// New creates a battle for a match seed. Both combatants draw from the same
// piece sequence and spawn their first piece immediately.
func New(cfg Config, seed uint64, clock *beat.Clock, opts ...Option) *Battle {
	if cfg.NextQueue < 1 {
		cfg.NextQueue = 1
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	b := &Battle{
		cfg:     cfg,
		seed:    seed,
		clock:   clock,
		runtime: core.RuntimeConfig{TickRate: cfg.TickRate, Seed: seed},
	}
	for i := range b.combatants {
		b.combatants[i] = newCombatant(core.CombatantID(i), seed, cfg.NextQueue)
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, c := range b.combatants {
		if !c.mirrored {
			b.spawn(c, c.popNext())
		}
	}
	// Spawning never collides on an empty board, so nothing was logged.
	b.events = nil
	return b
}

// Config returns the rule parameters.
func (b *Battle) Config() Config { return b.cfg }

// Seed returns the match seed.
func (b *Battle) Seed() uint64 { return b.seed }

// Clock returns the beat clock.
func (b *Battle) Clock() *beat.Clock { return b.clock }

// Tick returns the number of ticks advanced so far.
func (b *Battle) Tick() uint64 { return b.tick }

// Elapsed returns the logical match time of the current tick.
func (b *Battle) Elapsed() time.Duration { return b.runtime.Elapsed(b.tick) }

// Stamp returns the beat verdict for the current tick.
func (b *Battle) Stamp() beat.Stamp {
	return b.clock.Stamp(b.runtime.Elapsed(b.tick))
}

// Action creates an action stamped at the current tick.
func (b *Battle) Action(kind ActionKind, id core.CombatantID) Action {
	return NewAction(kind, id, b.Stamp())
}

// Status returns a combatant's lifecycle state.
func (b *Battle) Status(id core.CombatantID) Status {
	if c := b.combatant(id); c != nil {
		return c.status
	}
	return StatusToppedOut
}

// Mirrored reports whether a combatant is owned by a remote peer.
func (b *Battle) Mirrored(id core.CombatantID) bool {
	c := b.combatant(id)
	return c != nil && c.mirrored
}

func (b *Battle) combatant(id core.CombatantID) *Combatant {
	if !id.Valid() {
		return nil
	}
	return b.combatants[id]
}

func (b *Battle) emit(e Event) {
	e.Tick = b.tick
	b.events = append(b.events, e)
}

// Submit resolves an action immediately. It returns false when the action
// is illegal for the combatant's current state; dropped actions change
// nothing and log nothing.
func (b *Battle) Submit(a Action) bool {
	c := b.combatant(a.Combatant)
	if c == nil || c.mirrored || c.status != StatusActive || !c.hasPiece {
		return false
	}

	switch a.Kind {
	case ActionMoveLeft:
		return b.shift(c, -1)
	case ActionMoveRight:
		return b.shift(c, 1)
	case ActionSoftDrop:
		return b.softDrop(c)
	case ActionHardDrop:
		b.hardDrop(c, a.OnBeat)
		return true
	case ActionRotateCW:
		return b.rotate(c, 1)
	case ActionRotateCCW:
		return b.rotate(c, -1)
	case ActionHold:
		return b.hold(c)
	case ActionCustom:
		if b.custom == nil {
			return false
		}
		evs, ok := b.custom(c.view(), a)
		if !ok {
			return false
		}
		for _, e := range evs {
			e.Combatant = c.id
			b.emit(e)
		}
		return true
	}
	return false
}

// AdvanceTick applies gravity and lock delay to every locally simulated
// combatant, then moves to the next tick.
func (b *Battle) AdvanceTick() {
	stamp := b.Stamp()
	for _, c := range b.combatants {
		if c.mirrored || c.status != StatusActive || !c.hasPiece {
			continue
		}
		b.gravity(c, stamp.OnBeat)
	}
	b.tick++
}

// DrainEvents returns and clears the events logged since the last drain.
func (b *Battle) DrainEvents() []Event {
	if len(b.events) == 0 {
		return nil
	}
	out := b.events
	b.events = nil
	return out
}

// ReceiveGarbage queues an attack against a locally simulated combatant.
// The hole column is drawn from that combatant's garbage stream now; the
// rows are inserted at its next lock that clears nothing.
func (b *Battle) ReceiveGarbage(id core.CombatantID, lines int, sourceTick uint32) (int, bool) {
	c := b.combatant(id)
	if c == nil || c.mirrored || c.status != StatusActive || lines <= 0 {
		return 0, false
	}
	hole := c.holes.Hole()
	c.pending = append(c.pending, PendingGarbage{Lines: lines, Hole: hole, SourceTick: sourceTick})
	return hole, true
}

func (b *Battle) gravityTicks(c *Combatant) int {
	if b.cfg.GravityTicks <= 0 {
		return 0
	}
	g := b.cfg.GravityTicks - (c.level()-1)*b.cfg.GravityStep
	if g < b.cfg.MinGravityTicks {
		g = b.cfg.MinGravityTicks
	}
	if g < 1 {
		g = 1
	}
	return g
}

func (b *Battle) gravity(c *Combatant, onBeat bool) {
	if !c.grounded() {
		g := b.gravityTicks(c)
		if g == 0 {
			return
		}
		c.gravityCounter++
		if c.gravityCounter >= g {
			c.gravityCounter = 0
			c.piece.Y++
			c.lockCounter = 0
			c.lockResets = 0
		}
		return
	}

	c.lockCounter++
	if c.lockCounter >= b.cfg.LockDelayTicks {
		b.lock(c, onBeat)
	}
}

// afterMove refreshes lock delay when a grounded piece is moved.
func (b *Battle) afterMove(c *Combatant) {
	if c.grounded() && c.lockResets < b.cfg.MaxLockResets {
		c.lockCounter = 0
		c.lockResets++
	}
}

func (b *Battle) shift(c *Combatant, dx int) bool {
	cand := c.piece.Moved(dx, 0)
	if c.board.Collides(cand) {
		return false
	}
	c.piece = cand
	b.emit(Event{Kind: EventPieceMoved, Combatant: c.id, Piece: c.piece})
	b.afterMove(c)
	return true
}

func (b *Battle) softDrop(c *Combatant) bool {
	cand := c.piece.Moved(0, 1)
	if c.board.Collides(cand) {
		return false
	}
	c.piece = cand
	c.score++
	c.gravityCounter = 0
	c.lockCounter = 0
	c.lockResets = 0
	b.emit(Event{Kind: EventPieceMoved, Combatant: c.id, Piece: c.piece})
	return true
}

func (b *Battle) hardDrop(c *Combatant, onBeat bool) {
	d := c.board.dropDistance(c.piece)
	c.piece = c.piece.Moved(0, d)
	c.score += 2 * d
	b.lock(c, onBeat)
}

// rotate takes the first kick offset, in table order, that fits.
func (b *Battle) rotate(c *Combatant, dir int) bool {
	from := c.piece.Rotation
	to := (from + dir + 4) % 4
	for _, k := range Kicks(c.piece.Shape, from, to) {
		cand := c.piece.Rotated(to, k)
		if c.board.Collides(cand) {
			continue
		}
		c.piece = cand
		b.emit(Event{Kind: EventPieceRotated, Combatant: c.id, Piece: c.piece})
		b.afterMove(c)
		return true
	}
	return false
}

func (b *Battle) hold(c *Combatant) bool {
	if !c.canHold {
		return false
	}
	cur := c.piece.Shape
	var s Shape
	if c.hasHold {
		s = c.hold
	} else {
		s = c.popNext()
	}
	c.hold = cur
	c.hasHold = true
	b.emit(Event{Kind: EventPieceHeld, Combatant: c.id, Piece: spawnPiece(cur)})
	b.spawn(c, s)
	c.canHold = false
	return true
}

// spawn places a new piece, topping out on collision.
func (b *Battle) spawn(c *Combatant, s Shape) {
	c.piece = spawnPiece(s)
	c.gravityCounter = 0
	c.lockCounter = 0
	c.lockResets = 0
	c.canHold = true
	if c.board.Collides(c.piece) {
		b.topOut(c)
		return
	}
	c.hasPiece = true
}

func (b *Battle) topOut(c *Combatant) {
	c.hasPiece = false
	c.status = StatusToppedOut
	b.emit(Event{Kind: EventTopOut, Combatant: c.id})
}

// lock finalizes the active piece and resolves everything that follows it.
func (b *Battle) lock(c *Combatant, onBeat bool) {
	p := c.piece
	c.board.Place(p)
	c.hasPiece = false
	c.lastLockTick = b.tick
	b.emit(Event{Kind: EventPieceLocked, Combatant: c.id, Piece: p})

	if entirelyHidden(p) {
		b.topOut(c)
		return
	}

	level := c.level()
	n := c.board.ClearLines()
	if n > 0 {
		c.combo++
		c.lines += n
		c.score += clearScore(n, level, c.combo, onBeat)
		b.emit(Event{Kind: EventLinesCleared, Combatant: c.id, Lines: n, OnBeat: onBeat})

		if atk := b.cfg.Attack.Lines(n, onBeat); atk > 0 {
			b.emit(Event{Kind: EventGarbageSent, Combatant: c.id, Lines: atk})
			if b.cfg.RouteGarbage {
				b.ReceiveGarbage(c.id.Opponent(), atk, uint32(b.tick))
			}
		}
	} else {
		c.combo = 0
		if !b.insertPending(c) {
			return
		}
	}

	b.spawn(c, c.popNext())
}

// insertPending raises the stack by every queued attack. It returns false
// if the combatant topped out.
func (b *Battle) insertPending(c *Combatant) bool {
	pending := c.pending
	c.pending = nil
	for _, g := range pending {
		ok := c.board.InsertGarbage(g.Lines, g.Hole)
		b.emit(Event{Kind: EventGarbageReceived, Combatant: c.id, Lines: g.Lines, Hole: g.Hole})
		if !ok {
			b.topOut(c)
			return false
		}
	}
	return true
}
