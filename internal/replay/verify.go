package replay

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/beat"
)

// ErrMismatch is returned when re-simulation diverges from the log.
var ErrMismatch = errors.New("replay: mismatch")

// Report summarizes a successful verification.
type Report struct {
	Ticks   uint64
	Actions int
	Events  int
	Digest  string
}

// Verify rebuilds the battle from the header and re-applies every recorded
// input, checking each tick's events and digests.
func Verify(l *Log) (Report, error) {
	h := l.Header
	clock, err := beat.New(h.BPM, h.Window)
	if err != nil {
		return Report{}, fmt.Errorf("replay: bad clock in header: %w", err)
	}
	var opts []battle.Option
	for _, id := range h.Mirrored {
		opts = append(opts, battle.WithMirrored(id))
	}
	b := battle.New(h.Battle, h.Seed, clock, opts...)

	var rep Report
	for _, t := range l.Ticks {
		if t.Tick < b.Tick() {
			return rep, fmt.Errorf("%w: tick %d recorded after tick %d", ErrMismatch, t.Tick, b.Tick())
		}
		if err := advanceQuiet(b, t.Tick); err != nil {
			return rep, err
		}

		for _, g := range t.Garbage {
			b.ReceiveGarbage(g.Combatant, g.Lines, g.SourceTick)
		}
		for _, a := range t.Actions {
			b.Submit(a)
		}
		b.AdvanceTick()
		rep.Actions += len(t.Actions)

		got := b.DrainEvents()
		if !sameEvents(got, t.Events) {
			return rep, fmt.Errorf("%w: tick %d produced %v, log has %v", ErrMismatch, t.Tick, got, t.Events)
		}
		rep.Events += len(got)
		if t.Digest != "" && t.Digest != b.DigestHex() {
			return rep, fmt.Errorf("%w: tick %d digest %s, log has %s", ErrMismatch, t.Tick, b.DigestHex(), t.Digest)
		}
	}

	if l.End != nil {
		if err := advanceQuiet(b, l.End.Ticks); err != nil {
			return rep, err
		}
		if l.End.Digest != "" && l.End.Digest != b.DigestHex() {
			return rep, fmt.Errorf("%w: final digest %s, log has %s", ErrMismatch, b.DigestHex(), l.End.Digest)
		}
	}

	rep.Ticks = b.Tick()
	rep.Digest = b.DigestHex()
	return rep, nil
}

// advanceQuiet runs unrecorded ticks, which must produce nothing.
func advanceQuiet(b *battle.Battle, until uint64) error {
	for b.Tick() < until {
		tick := b.Tick()
		b.AdvanceTick()
		if evs := b.DrainEvents(); len(evs) > 0 {
			return fmt.Errorf("%w: unrecorded tick %d produced %v", ErrMismatch, tick, evs)
		}
	}
	return nil
}

func sameEvents(a, b []battle.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if !bytes.Equal(x.Payload, y.Payload) {
			return false
		}
		x.Payload, y.Payload = nil, nil
		if !reflect.DeepEqual(x, y) {
			return false
		}
	}
	return true
}
