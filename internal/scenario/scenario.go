// Package scenario runs Lua scripts that build battles, drive them with
// actions and ticks, and check the resulting events.
//
// A script sees two globals:
//
//	Battle.new{seed=42, bpm=120, window_ms=200, route_garbage=true}
//	expect(cond, message)
//
// and a battle value with the methods fill_row, set_piece, submit, garbage,
// tick, events, view, now and digest. Players are numbered 1 and 2.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/roguedex/internal/bag"
	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/core"
)

const battleTypeName = "roguedex.battle"

var (
	// ErrExpectation is returned when an expect call fails.
	ErrExpectation = errors.New("scenario: expectation failed")
	// ErrScript is returned when a script does not load or raises an error.
	ErrScript = errors.New("scenario: script error")
)

// Result summarizes a finished script.
type Result struct {
	Name    string
	Checks  int
	Battles int
	Ticks   uint64
}

// Option configures a run.
type Option func(*runner)

// WithLogger routes the script's log() calls to l.
func WithLogger(l *log.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.log = l
		}
	}
}

type runner struct {
	log     *log.Logger
	result  Result
	battles []*scenarioBattle
	failed  bool
}

type scenarioBattle struct {
	b     *battle.Battle
	clock *beat.Clock
}

// RunString runs src as a script called name.
func RunString(name, src string, opts ...Option) (Result, error) {
	return run(name, opts, func(l *lua.State) error {
		return lua.LoadBuffer(l, src, name, "")
	})
}

// RunFile runs the script at path.
func RunFile(path string, opts ...Option) (Result, error) {
	return run(path, opts, func(l *lua.State) error {
		return lua.LoadFile(l, path, "")
	})
}

func run(name string, opts []Option, load func(*lua.State) error) (Result, error) {
	r := &runner{log: log.New(io.Discard), result: Result{Name: name}}
	for _, opt := range opts {
		opt(r)
	}

	state := lua.NewState()
	lua.OpenLibraries(state)
	r.register(state)

	if err := load(state); err != nil {
		return r.result, fmt.Errorf("%w: %s: %v", ErrScript, name, err)
	}
	err := state.ProtectedCall(0, 0, 0)
	r.finish()
	if err != nil {
		if r.failed {
			return r.result, fmt.Errorf("%w: %v", ErrExpectation, err)
		}
		return r.result, fmt.Errorf("%w: %v", ErrScript, err)
	}
	return r.result, nil
}

func (r *runner) finish() {
	r.result.Battles = len(r.battles)
	for _, sb := range r.battles {
		r.result.Ticks += sb.b.Tick()
	}
}

func (r *runner) register(state *lua.State) {
	lua.NewMetaTable(state, battleTypeName)
	state.NewTable()
	lua.SetFunctions(state, battleMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{{Name: "new", Function: r.newBattle}}, 0)
	state.SetGlobal("Battle")

	state.Register("expect", r.expect)
	state.Register("log", r.logLine)
}

func (r *runner) newBattle(state *lua.State) int {
	cfg := battle.DefaultConfig()
	seed, bpm, windowMS := 1, 120, int(beat.DefaultWindow/time.Millisecond)
	if state.TypeOf(1) == lua.TypeTable {
		seed = intField(state, 1, "seed", seed)
		bpm = intField(state, 1, "bpm", bpm)
		windowMS = intField(state, 1, "window_ms", windowMS)
		cfg.TickRate = intField(state, 1, "tick_rate", cfg.TickRate)
		cfg.GravityTicks = intField(state, 1, "gravity_ticks", cfg.GravityTicks)
		cfg.LockDelayTicks = intField(state, 1, "lock_delay_ticks", cfg.LockDelayTicks)
		cfg.NextQueue = intField(state, 1, "next_queue", cfg.NextQueue)
		cfg.RouteGarbage = boolField(state, 1, "route_garbage", cfg.RouteGarbage)
	}
	clock, err := beat.New(bpm, time.Duration(windowMS)*time.Millisecond)
	if err != nil {
		lua.Errorf(state, "%s", err.Error())
		return 0
	}
	sb := &scenarioBattle{
		b:     battle.New(cfg, uint64(seed), clock), //nolint:gosec // scripts pass small seeds
		clock: clock,
	}
	r.battles = append(r.battles, sb)
	state.PushUserData(sb)
	lua.SetMetaTableNamed(state, battleTypeName)
	return 1
}

func (r *runner) expect(state *lua.State) int {
	r.result.Checks++
	if state.ToBoolean(1) {
		return 0
	}
	msg := lua.OptString(state, 2, "expectation failed")
	r.failed = true
	lua.Errorf(state, "%s", msg)
	return 0
}

func (r *runner) logLine(state *lua.State) int {
	msg := lua.CheckString(state, 1)
	r.log.Info(msg, "script", r.result.Name)
	return 0
}

var battleMethods = []lua.RegistryFunction{
	{Name: "fill_row", Function: battleFillRow},
	{Name: "set_piece", Function: battleSetPiece},
	{Name: "submit", Function: battleSubmit},
	{Name: "garbage", Function: battleGarbage},
	{Name: "tick", Function: battleTick},
	{Name: "events", Function: battleEvents},
	{Name: "view", Function: battleView},
	{Name: "now", Function: battleNow},
	{Name: "digest", Function: battleDigest},
}

func checkBattle(state *lua.State) *scenarioBattle {
	ud := lua.CheckUserData(state, 1, battleTypeName)
	if sb, ok := ud.(*scenarioBattle); ok && sb != nil {
		return sb
	}
	lua.ArgumentError(state, 1, "battle expected")
	return nil
}

// checkPlayer reads a 1-based player number.
func checkPlayer(state *lua.State, index int) core.CombatantID {
	n := lua.CheckInteger(state, index)
	lua.ArgumentCheck(state, n == 1 || n == 2, index, "player must be 1 or 2")
	return core.CombatantID(n - 1) //nolint:gosec // checked above
}

func battleFillRow(state *lua.State) int {
	sb := checkBattle(state)
	id := checkPlayer(state, 2)
	y := lua.CheckInteger(state, 3)
	pattern := lua.CheckString(state, 4)
	if err := sb.b.SetRow(id, y, pattern); err != nil {
		lua.Errorf(state, "%s", err.Error())
	}
	return 0
}

func battleSetPiece(state *lua.State) int {
	sb := checkBattle(state)
	id := checkPlayer(state, 2)
	lua.CheckType(state, 3, lua.TypeTable)

	shape, err := bag.ParseShape(stringField(state, 3, "shape", ""))
	if err != nil {
		lua.ArgumentError(state, 3, err.Error())
		return 0
	}
	p := battle.Piece{
		Shape:    shape,
		Rotation: intField(state, 3, "rotation", 0),
		X:        intField(state, 3, "x", battle.SpawnX),
		Y:        intField(state, 3, "y", battle.SpawnY),
	}
	if err := sb.b.SetPiece(id, p); err != nil {
		lua.Errorf(state, "%s", err.Error())
	}
	return 0
}

// battleSubmit resolves an action. The stamp comes from the current tick
// unless opts carries elapsed_ms or an explicit on_beat verdict.
func battleSubmit(state *lua.State) int {
	sb := checkBattle(state)
	kind, err := battle.ParseActionKind(lua.CheckString(state, 2))
	if err != nil {
		lua.ArgumentError(state, 2, err.Error())
		return 0
	}
	id := checkPlayer(state, 3)

	stamp := sb.b.Stamp()
	if state.TypeOf(4) == lua.TypeTable {
		if ms := intField(state, 4, "elapsed_ms", -1); ms >= 0 {
			stamp = sb.clock.Stamp(time.Duration(ms) * time.Millisecond)
		}
		state.Field(4, "on_beat")
		if !state.IsNil(-1) {
			stamp.OnBeat = state.ToBoolean(-1)
		}
		state.Pop(1)
	}

	var a battle.Action
	if kind == battle.ActionCustom {
		a = battle.NewCustomAction(id, stamp, []byte(stringFieldAt(state, 4, "payload")))
	} else {
		a = battle.NewAction(kind, id, stamp)
	}
	state.PushBoolean(sb.b.Submit(a))
	return 1
}

func battleGarbage(state *lua.State) int {
	sb := checkBattle(state)
	id := checkPlayer(state, 2)
	lines := lua.CheckInteger(state, 3)
	hole, ok := sb.b.ReceiveGarbage(id, lines, uint32(sb.b.Tick())) //nolint:gosec // scenario ticks are small
	if !ok {
		state.PushNil()
		return 1
	}
	state.PushInteger(hole)
	return 1
}

func battleTick(state *lua.State) int {
	sb := checkBattle(state)
	n := lua.OptInteger(state, 2, 1)
	lua.ArgumentCheck(state, n >= 0, 2, "tick count must not be negative")
	for i := 0; i < n; i++ {
		sb.b.AdvanceTick()
	}
	state.PushInteger(int(sb.b.Tick())) //nolint:gosec // scenario ticks are small
	return 1
}

// battleEvents drains the events logged since the previous call into an
// array of tables.
func battleEvents(state *lua.State) int {
	sb := checkBattle(state)
	evs := sb.b.DrainEvents()
	state.CreateTable(len(evs), 0)
	for i, e := range evs {
		pushEvent(state, e)
		state.RawSetInt(-2, i+1)
	}
	return 1
}

func pushEvent(state *lua.State, e battle.Event) {
	state.CreateTable(0, 10)
	setString(state, "kind", e.Kind.String())
	setInt(state, "player", int(e.Combatant)+1)
	setInt(state, "tick", int(e.Tick)) //nolint:gosec // scenario ticks are small
	switch e.Kind {
	case battle.EventLinesCleared:
		setInt(state, "lines", e.Lines)
		setBool(state, "on_beat", e.OnBeat)
	case battle.EventGarbageSent:
		setInt(state, "lines", e.Lines)
	case battle.EventGarbageReceived:
		setInt(state, "lines", e.Lines)
		setInt(state, "hole", e.Hole)
	case battle.EventCustom:
		setString(state, "payload", string(e.Payload))
	case battle.EventTopOut:
	default:
		pushPiece(state, e.Piece)
		state.SetField(-2, "piece")
	}
}

func pushPiece(state *lua.State, p battle.Piece) {
	state.CreateTable(0, 4)
	setString(state, "shape", p.Shape.String())
	setInt(state, "rotation", p.Rotation)
	setInt(state, "x", p.X)
	setInt(state, "y", p.Y)
}

func battleView(state *lua.State) int {
	sb := checkBattle(state)
	v := sb.b.View(checkPlayer(state, 2))

	state.CreateTable(0, 12)
	setString(state, "status", v.Status.String())
	setInt(state, "score", v.Score)
	setInt(state, "lines", v.Lines)
	setInt(state, "level", v.Level)
	setInt(state, "combo", v.Combo)
	setInt(state, "pending", v.Pending)
	setBool(state, "has_piece", v.HasPiece)
	if v.HasPiece {
		pushPiece(state, v.Piece)
		state.SetField(-2, "piece")
	}
	if v.HasHold {
		setString(state, "hold", v.Hold.String())
	}

	state.CreateTable(len(v.Next), 0)
	for i, s := range v.Next {
		state.PushString(s.String())
		state.RawSetInt(-2, i+1)
	}
	state.SetField(-2, "next")

	rows := v.Rows(false)
	state.CreateTable(len(rows), 0)
	for i, row := range rows {
		state.PushString(row)
		state.RawSetInt(-2, i+1)
	}
	state.SetField(-2, "rows")
	return 1
}

// battleNow returns the current tick, beat index and on-beat verdict.
func battleNow(state *lua.State) int {
	sb := checkBattle(state)
	s := sb.b.Stamp()
	state.PushInteger(int(sb.b.Tick())) //nolint:gosec // scenario ticks are small
	state.PushInteger(int(s.Beat))
	state.PushBoolean(s.OnBeat)
	return 3
}

func battleDigest(state *lua.State) int {
	sb := checkBattle(state)
	state.PushString(sb.b.DigestHex())
	return 1
}

func setString(state *lua.State, key, value string) {
	state.PushString(value)
	state.SetField(-2, key)
}

func setInt(state *lua.State, key string, value int) {
	state.PushInteger(value)
	state.SetField(-2, key)
}

func setBool(state *lua.State, key string, value bool) {
	state.PushBoolean(value)
	state.SetField(-2, key)
}

func intField(state *lua.State, index int, key string, def int) int {
	state.Field(index, key)
	if state.IsNil(-1) {
		state.Pop(1)
		return def
	}
	v, ok := state.ToInteger(-1)
	if !ok {
		lua.Errorf(state, "field %q must be an integer", key)
	}
	state.Pop(1)
	return v
}

func boolField(state *lua.State, index int, key string, def bool) bool {
	state.Field(index, key)
	v := def
	if !state.IsNil(-1) {
		v = state.ToBoolean(-1)
	}
	state.Pop(1)
	return v
}

func stringField(state *lua.State, index int, key, def string) string {
	state.Field(index, key)
	if state.IsNil(-1) {
		state.Pop(1)
		return def
	}
	v, ok := state.ToString(-1)
	if !ok {
		lua.Errorf(state, "field %q must be a string", key)
	}
	state.Pop(1)
	return v
}

// stringFieldAt is stringField for an optional table argument.
func stringFieldAt(state *lua.State, index int, key string) string {
	if state.TypeOf(index) != lua.TypeTable {
		return ""
	}
	return stringField(state, index, key, "")
}
