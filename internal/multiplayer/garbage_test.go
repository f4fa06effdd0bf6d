package multiplayer

import (
	"testing"
	"time"

	"github.com/vovakirdan/roguedex/internal/bag"
	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/core"
	"github.com/vovakirdan/roguedex/internal/netcode"
)

// stepCounter numbers the Step calls of a test loop.
type stepCounter struct{ n int }

// lateClearSource plays the host side. It hard-drops an I piece into a
// one-hole row at a fixed tick, producing an on-beat single that sends one
// garbage line.
type lateClearSource struct {
	steps *stepCounter
	at    uint64
	fired int
}

func (s *lateClearSource) Actions(b *battle.Battle) ([]battle.Action, error) {
	if b.Tick() != s.at {
		return nil, nil
	}
	if err := b.SetRow(core.Combatant1, 39, "XXXXX.XXXX"); err != nil {
		return nil, err
	}
	if err := b.SetPiece(core.Combatant1, battle.Piece{Shape: bag.ShapeI, Rotation: 1, X: 3, Y: 30}); err != nil {
		return nil, err
	}
	s.fired = s.steps.n
	return []battle.Action{battle.NewAction(battle.ActionHardDrop, core.Combatant1, b.Stamp())}, nil
}

type garbageSend struct {
	step       int
	sourceTick uint32
}

// garbageRecorder notes the step at which each garbage datagram leaves.
type garbageRecorder struct {
	netcode.Transport
	steps *stepCounter
	sent  []garbageSend
}

func (r *garbageRecorder) Send(b []byte) error {
	if p, err := netcode.Unmarshal(b); err == nil {
		if g, ok := p.Payload.(netcode.Garbage); ok {
			r.sent = append(r.sent, garbageSend{step: r.steps.n, sourceTick: g.SourceTick})
		}
	}
	return r.Transport.Send(b)
}

func TestGarbageWaitsForBeatBoundary(t *testing.T) {
	// At 60Hz and 120 BPM tick 119 starts 1.983s in, on the beat at 2s, and
	// tick 120 starts exactly on that boundary.
	const attackTick = 119

	hostSession, err := netcode.NewHost(netcode.DefaultConfig(), 7)
	if err != nil {
		t.Fatalf("NewHost() failed: %v", err)
	}
	joinSession := netcode.NewJoin(netcode.DefaultConfig())
	a, b := netcode.NewPipe()

	steps := &stepCounter{}
	src := &lateClearSource{steps: steps, at: attackTick, fired: -1}
	rec := &garbageRecorder{Transport: a, steps: steps}

	var hostSources [2]Source
	hostSources[hostSession.Local()] = src
	host, err := NewMatch(Options{
		Mode:      ModeOnline,
		Battle:    battle.DefaultConfig(),
		Clock:     testClock(),
		Sources:   hostSources,
		Session:   hostSession,
		Transport: rec,
		MaxTicks:  400,
	})
	if err != nil {
		t.Fatalf("NewMatch() failed: %v", err)
	}
	var joinSources [2]Source
	joinSources[joinSession.Local()] = newPlayer(t, joinSession.Local(), "idle")
	join, err := NewMatch(Options{
		Mode:      ModeOnline,
		Battle:    battle.DefaultConfig(),
		Clock:     testClock(),
		Sources:   joinSources,
		Session:   joinSession,
		Transport: b,
		MaxTicks:  400,
	})
	if err != nil {
		t.Fatalf("NewMatch() failed: %v", err)
	}

	period := time.Second / 60
	for steps.n = 0; steps.n < 2000; steps.n++ {
		now := epoch.Add(time.Duration(steps.n) * period)
		hostDone := host.Step(now)
		joinDone := join.Step(now)
		if hostDone && joinDone {
			break
		}
	}

	if src.fired < 0 {
		t.Fatal("the clearing drop never ran")
	}
	if len(rec.sent) == 0 {
		t.Fatal("no garbage datagram was sent")
	}
	for _, s := range rec.sent {
		if s.step <= src.fired {
			t.Errorf("garbage sent at step %d, expected after the attack's step %d", s.step, src.fired)
		}
		if s.sourceTick != attackTick {
			t.Errorf("SourceTick = %d, expected %d", s.sourceTick, attackTick)
		}
	}
	if first := rec.sent[0].step; first != src.fired+1 {
		t.Errorf("first garbage send at step %d, expected the boundary step %d", first, src.fired+1)
	}
}
