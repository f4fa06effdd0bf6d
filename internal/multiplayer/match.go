package multiplayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/netcode"
	"github.com/vovakirdan/roguedex/internal/replay"
)

var (
	// ErrInvalidOptions is returned by NewMatch for unusable options.
	ErrInvalidOptions = errors.New("multiplayer: invalid match options")

	// ErrStalled marks a desync caused by the local loop missing a beat.
	ErrStalled = errors.New("multiplayer: tick loop fell behind the beat")
)

// DefaultDeltaEvery is how many ticks pass between state deltas.
const DefaultDeltaEvery = 3

// finalDeltas is how many copies of the last delta are sent when the match
// ends, since deltas are never retransmitted.
const finalDeltas = 3

// Recorder receives the match log. *replay.Writer is a Recorder.
type Recorder interface {
	Start(h replay.Header) error
	RecordTick(t replay.Tick) error
	Finish(e replay.End) error
}

// Options configures a match.
type Options struct {
	ID     MatchID
	Mode   Mode
	Battle battle.Config
	Clock  *beat.Clock

	// Seed is the match seed for local modes. Online matches take the
	// seed from the session.
	Seed uint64

	// Sources drive the combatants, indexed by combatant. A nil source
	// leaves its combatant to gravity. Online, the remote source is ignored.
	Sources [2]Source
	Players [2]string

	// Session and Transport are required online.
	Session   *netcode.Session
	Transport netcode.Transport

	DeltaEvery    int
	AbortOnDesync bool
	MaxTicks      uint64
	Recorder      Recorder
	Logger        *log.Logger
}

// CombatantSummary is a combatant view plus its visible rows.
type CombatantSummary struct {
	battle.View
	Rows []string `json:"rows"`
}

// Summary is a point-in-time copy of a match for observers.
type Summary struct {
	MatchID    MatchID             `json:"match_id"`
	Mode       Mode                `json:"mode"`
	Seed       uint64              `json:"seed"`
	Tick       uint64              `json:"tick"`
	Beat       int64               `json:"beat"`
	Synced     bool                `json:"synced"`
	Desync     string              `json:"desync,omitempty"`
	Players    [2]string           `json:"players"`
	Combatants [2]CombatantSummary `json:"combatants"`
	Done       bool                `json:"done"`
	Result     *MatchResult        `json:"result,omitempty"`
}

// Match is one peer's authoritative simulation loop. Step and Run must be
// called from a single goroutine; Summary, Subscribe and Cancel are safe
// from any goroutine.
type Match struct {
	opts    Options
	log     *log.Logger
	clock   *beat.Clock
	runtime core.RuntimeConfig
	subs    *SubscriberRegistry

	session   *netcode.Session
	transport netcode.Transport
	battle    *battle.Battle
	local     core.CombatantID

	started  bool
	synced   bool
	desync   error
	recorder Recorder

	mu      sync.RWMutex
	summary Summary
	result  *MatchResult

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

// NewMatch validates opts and creates a match that has not run any tick.
func NewMatch(opts Options) (*Match, error) {
	if opts.Clock == nil {
		return nil, fmt.Errorf("%w: missing clock", ErrInvalidOptions)
	}
	if opts.Mode == ModeOnline {
		if opts.Session == nil || opts.Transport == nil {
			return nil, fmt.Errorf("%w: online matches need a session and a transport", ErrInvalidOptions)
		}
	} else {
		if opts.Seed == 0 {
			return nil, fmt.Errorf("%w: zero seed", ErrInvalidOptions)
		}
		if opts.Session != nil {
			return nil, fmt.Errorf("%w: %s matches take no session", ErrInvalidOptions, opts.Mode)
		}
	}
	if opts.DeltaEvery <= 0 {
		opts.DeltaEvery = DefaultDeltaEvery
	}
	if opts.Battle.TickRate <= 0 {
		opts.Battle.TickRate = 60
	}
	// Garbage crosses the wire online; locally it is handed over directly.
	opts.Battle.RouteGarbage = opts.Mode.Local()

	m := &Match{
		opts:      opts,
		log:       opts.Logger,
		clock:     opts.Clock,
		runtime:   core.RuntimeConfig{TickRate: opts.Battle.TickRate},
		subs:      NewSubscriberRegistry(),
		session:   opts.Session,
		transport: opts.Transport,
		recorder:  opts.Recorder,
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if m.log == nil {
		m.log = log.New(io.Discard)
	}
	if m.session != nil {
		m.local = m.session.Local()
	}
	m.summary = Summary{MatchID: opts.ID, Mode: opts.Mode, Players: opts.Players}
	return m, nil
}

// ID returns the match identifier.
func (m *Match) ID() MatchID { return m.opts.ID }

// Mode returns the match mode.
func (m *Match) Mode() Mode { return m.opts.Mode }

// Battle returns the battle, or nil before the seed is known.
func (m *Match) Battle() *battle.Battle { return m.battle }

// Synced reports whether an online match has reached the synced state.
// Local matches are always synced once started.
func (m *Match) Synced() bool { return m.synced }

// Desync returns the first desync detected, or nil.
func (m *Match) Desync() error { return m.desync }

// Done returns a channel closed when the match has ended.
func (m *Match) Done() <-chan struct{} { return m.done }

// Subscribe registers s for match events.
func (m *Match) Subscribe(s Subscriber) { m.subs.Register(s) }

// Unsubscribe removes a subscriber.
func (m *Match) Unsubscribe(id SubscriberID) { m.subs.Unregister(id) }

// Cancel asks the match to end at its next step.
func (m *Match) Cancel() {
	m.cancelOnce.Do(func() { close(m.cancel) })
}

// Summary returns a copy of the latest published state.
func (m *Match) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary
}

// Result returns the outcome once the match has ended.
func (m *Match) Result() (MatchResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.result == nil {
		return MatchResult{}, false
	}
	return *m.result, true
}

func (m *Match) finished() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Step runs one iteration of the loop at wall time now and reports whether
// the match has ended. Network input is only read here, at the start of
// the iteration, so a tick always sees one consistent snapshot.
func (m *Match) Step(now time.Time) bool {
	if m.finished() {
		return true
	}
	select {
	case <-m.cancel:
		m.finish(EndCancelled, nil)
		return true
	default:
	}

	if !m.started {
		m.started = true
		if m.session != nil {
			m.session.Start(now)
		}
	}

	if m.session != nil {
		if !m.pumpNetwork(now) {
			return true
		}
		if m.battle == nil || m.session.State() != netcode.StateSynced {
			if m.battle != nil {
				m.session.SendDelta(m.delta())
			}
			m.flushOutgoing()
			return false
		}
		if !m.synced {
			m.synced = true
			m.log.Info("match synced", "match", m.opts.ID, "seed", m.battle.Seed())
			m.subs.Broadcast(SyncedEvent{MatchID: m.opts.ID, Seed: m.battle.Seed()})
		}
	} else if m.battle == nil {
		m.begin(m.opts.Seed, now)
		m.synced = true
	}

	return m.tick(now)
}

// pumpNetwork feeds received datagrams to the session and runs its timers.
// It returns false when the match ended because the session did.
func (m *Match) pumpNetwork(now time.Time) bool {
	for _, b := range m.transport.Drain() {
		if err := m.session.Receive(b, now); err != nil && !errors.Is(err, netcode.ErrClosed) {
			m.log.Debug("dropping datagram", "err", err)
		}
	}
	if err := m.session.Update(now); err != nil {
		m.finish(EndDisconnect, err)
		return false
	}
	if m.session.State() == netcode.StateDisconnected {
		m.finish(EndDisconnect, m.session.Err())
		return false
	}
	if m.battle == nil {
		if seed, ok := m.session.Seed(); ok {
			m.begin(seed, now)
		}
	}
	return true
}

func (m *Match) begin(seed uint64, now time.Time) {
	var opts []battle.Option
	var mirrored []core.CombatantID
	if m.session != nil {
		mirrored = append(mirrored, m.session.Remote())
		opts = append(opts, battle.WithMirrored(m.session.Remote()))
	}
	m.battle = battle.New(m.opts.Battle, seed, m.clock, opts...)
	m.clock.Start(now)

	if m.recorder != nil {
		err := m.recorder.Start(replay.Header{
			MatchID:   string(m.opts.ID),
			Mode:      m.opts.Mode.String(),
			Seed:      seed,
			BPM:       m.clock.BPM(),
			Window:    m.clock.Window(),
			Battle:    m.battle.Config(),
			Mirrored:  mirrored,
			Players:   m.opts.Players,
			StartedAt: now.UTC(),
		})
		m.recordErr(err)
	}

	m.publish()
	m.log.Info("match started", "match", m.opts.ID, "mode", m.opts.Mode, "seed", seed)
	m.subs.Broadcast(MatchStartedEvent{MatchID: m.opts.ID, Mode: m.opts.Mode, Seed: seed, Players: m.opts.Players})
}

func (m *Match) tick(now time.Time) bool {
	b := m.battle
	tick := b.Tick()
	rec := replay.Tick{Tick: tick}

	if m.session != nil {
		in := m.session.Poll(tick)
		if in.HasDelta {
			m.applyDelta(in.Delta)
		}
		if in.Desync != nil && m.onDesync(in.Desync) {
			return true
		}
		for _, g := range in.Garbage {
			if _, ok := b.ReceiveGarbage(m.local, int(g.Lines), g.SourceTick); ok {
				rec.Garbage = append(rec.Garbage, replay.Garbage{Combatant: m.local, Lines: int(g.Lines), SourceTick: g.SourceTick})
			}
		}
	}

	// Attacks buffered by earlier ticks leave once this tick has reached
	// a beat boundary; this tick's own attacks wait for the next one.
	if m.session != nil && tick > 0 && m.clock.Crossed(m.runtime.Elapsed(tick-1), m.runtime.Elapsed(tick)) {
		if n := m.session.FlushGarbage(now); n > 0 {
			m.log.Debug("garbage flushed", "attacks", n, "tick", tick)
		}
	}

	for i, src := range m.opts.Sources {
		id := core.CombatantID(i)
		if src == nil || b.Mirrored(id) {
			continue
		}
		acts, err := src.Actions(b)
		if err != nil {
			m.log.Debug("source error", "combatant", id, "err", err)
		}
		for _, a := range acts {
			b.Submit(a)
			rec.Actions = append(rec.Actions, a)
		}
	}

	b.AdvanceTick()
	evs := b.DrainEvents()
	rec.Events = evs

	if m.session != nil {
		for _, e := range evs {
			if e.Kind == battle.EventGarbageSent && e.Combatant == m.local {
				m.session.QueueGarbage(e.Lines, uint32(e.Tick))
			}
		}
		if tick%uint64(m.opts.DeltaEvery) == 0 {
			m.session.SendDelta(m.delta())
		}
		m.flushOutgoing()
	}

	if m.recorder != nil && (len(rec.Garbage) > 0 || len(rec.Actions) > 0 || len(evs) > 0) {
		rec.Digest = b.DigestHex()
		m.recordErr(m.recorder.RecordTick(rec))
	}

	m.publish()
	if len(evs) > 0 {
		m.subs.Broadcast(TickEvent{MatchID: m.opts.ID, Tick: tick, Events: evs})
	}

	return m.checkEnd()
}

// checkEnd ends the match on a top-out or the tick limit.
func (m *Match) checkEnd() bool {
	b := m.battle
	out1 := b.Status(core.Combatant1) == battle.StatusToppedOut
	out2 := b.Status(core.Combatant2) == battle.StatusToppedOut
	if out1 || out2 {
		if m.session != nil {
			for i := 0; i < finalDeltas; i++ {
				m.session.SendDelta(m.delta())
			}
			m.flushOutgoing()
		}
		m.finish(EndCompleted, nil)
		return true
	}
	if m.opts.MaxTicks > 0 && b.Tick() >= m.opts.MaxTicks {
		m.finish(EndTickLimit, nil)
		return true
	}
	return false
}

// stalled records that the loop missed a beat boundary.
func (m *Match) stalled(gap time.Duration) bool {
	err := fmt.Errorf("%w: %w: %s between ticks", netcode.ErrDesync, ErrStalled, gap)
	return m.onDesync(err)
}

// onDesync reports the first desync and reports whether the match ended
// because of it.
func (m *Match) onDesync(err error) bool {
	if m.desync != nil {
		return false
	}
	m.desync = err
	var tick uint64
	if m.battle != nil {
		tick = m.battle.Tick()
	}
	m.log.Warn("desync", "match", m.opts.ID, "tick", tick, "err", err)
	m.mu.Lock()
	m.summary.Desync = err.Error()
	m.mu.Unlock()
	m.subs.Broadcast(DesyncEvent{MatchID: m.opts.ID, Tick: tick, Err: err})
	if m.opts.AbortOnDesync {
		m.finish(EndDesync, err)
		return true
	}
	return false
}

func (m *Match) delta() netcode.Delta {
	v := m.battle.View(m.local)
	return netcode.Delta{
		Combatant:    m.local,
		Status:       uint8(v.Status),
		Shape:        uint8(v.Piece.Shape),
		Rotation:     uint8(v.Piece.Rotation),
		X:            int8(v.Piece.X),
		Y:            int8(v.Piece.Y),
		Score:        uint32(v.Score),
		LastLockTick: uint32(v.LastLockTick),
		Tick:         uint32(m.battle.Tick()),
		Draws:        uint32(v.Draws),
		TailShape:    uint8(v.Tail()),
	}
}

func (m *Match) applyDelta(d netcode.Delta) {
	status := battle.Status(d.Status)
	m.battle.ApplyMirror(m.session.Remote(), battle.Mirror{
		Status:       status,
		Piece:        battle.Piece{Shape: battle.Shape(d.Shape), Rotation: int(d.Rotation), X: int(d.X), Y: int(d.Y)},
		HasPiece:     status == battle.StatusActive,
		Score:        int(d.Score),
		LastLockTick: uint64(d.LastLockTick),
	})
}

func (m *Match) flushOutgoing() {
	for _, d := range m.session.Outgoing() {
		if err := m.transport.Send(d); err != nil && !errors.Is(err, netcode.ErrNoPeer) {
			m.log.Debug("send failed", "err", err)
		}
	}
}

func (m *Match) recordErr(err error) {
	if err == nil {
		return
	}
	m.log.Warn("match recording stopped", "match", m.opts.ID, "err", err)
	m.recorder = nil
}

func (m *Match) publish() {
	b := m.battle
	s := Summary{
		MatchID: m.opts.ID,
		Mode:    m.opts.Mode,
		Seed:    b.Seed(),
		Tick:    b.Tick(),
		Beat:    b.Stamp().Beat,
		Synced:  m.synced,
		Players: m.opts.Players,
	}
	if m.desync != nil {
		s.Desync = m.desync.Error()
	}
	for i := range s.Combatants {
		v := b.View(core.CombatantID(i))
		s.Combatants[i] = CombatantSummary{View: v, Rows: v.Rows(false)}
	}

	m.mu.Lock()
	m.summary = s
	m.mu.Unlock()
}

func (m *Match) finish(reason MatchEndReason, err error) {
	if m.finished() {
		return
	}
	res := MatchResult{
		MatchID: m.opts.ID,
		Mode:    m.opts.Mode,
		Reason:  reason,
		Players: m.opts.Players,
	}
	if err != nil {
		res.Error = err.Error()
	}

	if b := m.battle; b != nil {
		res.Ticks = b.Tick()
		res.Digest = b.DigestHex()
		for i := range res.Scores {
			v := b.View(core.CombatantID(i))
			res.Scores[i] = v.Score
			res.Lines[i] = v.Lines
		}
		res.Winner, res.HasWinner = m.winner(reason)
	}
	if reason == EndDisconnect && m.session != nil {
		// The peer left; the local side keeps the win.
		res.Winner, res.HasWinner = m.local, true
	}

	if m.session != nil {
		m.session.Close()
	}
	if m.recorder != nil && m.battle != nil {
		end := replay.End{Reason: reason.String(), Ticks: res.Ticks, Digest: res.Digest}
		if res.HasWinner {
			end.Winner = res.Winner.String()
		}
		if err := m.recorder.Finish(end); err != nil {
			m.log.Warn("cannot finish match log", "match", m.opts.ID, "err", err)
		}
		m.recorder = nil
	}

	if m.battle != nil {
		m.publish()
	}
	m.mu.Lock()
	m.result = &res
	m.summary.Done = true
	m.summary.Result = &res
	m.mu.Unlock()
	close(m.done)

	m.log.Info("match ended", "match", m.opts.ID, "reason", reason, "winner", res.WinnerName(), "ticks", res.Ticks)
	m.subs.Broadcast(MatchEndedEvent{Result: res})
}

func (m *Match) winner(reason MatchEndReason) (core.CombatantID, bool) {
	b := m.battle
	switch reason {
	case EndCompleted:
		out1 := b.Status(core.Combatant1) == battle.StatusToppedOut
		out2 := b.Status(core.Combatant2) == battle.StatusToppedOut
		switch {
		case out1 && !out2:
			return core.Combatant2, true
		case out2 && !out1:
			return core.Combatant1, true
		}
	case EndTickLimit:
		s1, s2 := b.View(core.Combatant1).Score, b.View(core.Combatant2).Score
		switch {
		case s1 > s2:
			return core.Combatant1, true
		case s2 > s1:
			return core.Combatant2, true
		}
	}
	return 0, false
}

// Run drives the match from a ticker at the tick rate until it ends or ctx
// is cancelled. A gap between ticks longer than a beat period is reported
// as a local desync.
func (m *Match) Run(ctx context.Context) (MatchResult, error) {
	ticker := time.NewTicker(m.runtime.TickPeriod())
	defer ticker.Stop()

	last := time.Now()
	if m.Step(last) {
		res, _ := m.Result()
		return res, nil
	}

	for {
		select {
		case <-ctx.Done():
			m.finish(EndCancelled, ctx.Err())
			res, _ := m.Result()
			return res, ctx.Err()
		case now := <-ticker.C:
			if gap := now.Sub(last); gap > m.clock.Period() && m.battle != nil {
				if m.stalled(gap) {
					res, _ := m.Result()
					return res, nil
				}
			}
			last = now
			if m.Step(now) {
				res, _ := m.Result()
				return res, nil
			}
		}
	}
}

// RunFast steps the match without sleeping, on logical time starting at
// start, until it ends. Only local matches can run this way.
func (m *Match) RunFast(start time.Time) (MatchResult, error) {
	if !m.opts.Mode.Local() {
		return MatchResult{}, fmt.Errorf("%w: %s matches need wall-clock pacing", ErrInvalidOptions, m.opts.Mode)
	}
	period := m.runtime.TickPeriod()
	for i := 0; ; i++ {
		if m.Step(start.Add(time.Duration(i) * period)) {
			res, _ := m.Result()
			return res, nil
		}
	}
}
