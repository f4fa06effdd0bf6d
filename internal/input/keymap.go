package input

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/roguedex/internal/core"
)

// KeyMapper translates key names to intents. It centralizes the default
// bindings so keyboard front ends and key scripts agree.
type KeyMapper struct {
	keys map[string]core.Intent
}

// NewKeyMapper creates a key mapper with default bindings.
func NewKeyMapper() *KeyMapper {
	return &KeyMapper{keys: map[string]core.Intent{
		"left": core.IntentLeft, "a": core.IntentLeft,
		"right": core.IntentRight, "d": core.IntentRight,
		"down": core.IntentSoftDrop, "s": core.IntentSoftDrop,
		"space": core.IntentHardDrop, " ": core.IntentHardDrop,
		"up": core.IntentRotateCW, "x": core.IntentRotateCW,
		"z": core.IntentRotateCCW, "ctrl": core.IntentRotateCCW,
		"c": core.IntentHold, "shift": core.IntentHold,
		"q": core.IntentQuit, "ctrl+c": core.IntentQuit,
	}}
}

// MapKey returns the intent bound to a key and whether it is a quit request.
func (km *KeyMapper) MapKey(key string) (intent core.Intent, isQuit bool) {
	intent, ok := km.keys[strings.ToLower(key)]
	if !ok {
		return core.IntentNone, false
	}
	return intent, intent == core.IntentQuit
}

// Bind overrides the intent for a key.
func (km *KeyMapper) Bind(key string, intent core.Intent) {
	km.keys[strings.ToLower(key)] = intent
}

// MapKeyToFrame marks the key's intent as held. It returns true if the key
// was a quit request.
func (km *KeyMapper) MapKeyToFrame(key string, frame *core.InputFrame) bool {
	intent, isQuit := km.MapKey(key)
	if intent != core.IntentNone {
		frame.Set(intent)
	}
	return isQuit
}

// Hold is a span of ticks, inclusive on both ends, during which intents
// are held.
type Hold struct {
	From, To uint64
	Intents  []core.Intent
}

// Timeline is a scripted input sequence for headless play and tests.
type Timeline struct {
	holds []Hold
}

// ParseTimeline reads entries of the form "from[-to]:key[+key]" separated
// by whitespace or commas, e.g. "0-20:left 30:space".
func ParseTimeline(km *KeyMapper, s string) (*Timeline, error) {
	t := &Timeline{}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	for _, f := range fields {
		span, keys, ok := strings.Cut(f, ":")
		if !ok || keys == "" {
			return nil, fmt.Errorf("input: bad timeline entry %q", f)
		}
		var h Hold
		from, to, ranged := strings.Cut(span, "-")
		if _, err := fmt.Sscan(from, &h.From); err != nil {
			return nil, fmt.Errorf("input: bad tick in %q: %w", f, err)
		}
		h.To = h.From
		if ranged {
			if _, err := fmt.Sscan(to, &h.To); err != nil {
				return nil, fmt.Errorf("input: bad tick in %q: %w", f, err)
			}
			if h.To < h.From {
				return nil, fmt.Errorf("input: reversed span in %q", f)
			}
		}
		for _, k := range strings.Split(keys, "+") {
			intent, _ := km.MapKey(k)
			if intent == core.IntentNone {
				return nil, fmt.Errorf("input: unknown key %q in %q", k, f)
			}
			h.Intents = append(h.Intents, intent)
		}
		t.holds = append(t.holds, h)
	}
	return t, nil
}

// Frame returns the intents held at tick.
func (t *Timeline) Frame(tick uint64) core.InputFrame {
	f := core.NewInputFrame()
	for _, h := range t.holds {
		if tick >= h.From && tick <= h.To {
			for _, i := range h.Intents {
				f.Set(i)
			}
		}
	}
	return f
}

// End returns the last tick with any held intent.
func (t *Timeline) End() uint64 {
	var end uint64
	for _, h := range t.holds {
		if h.To > end {
			end = h.To
		}
	}
	return end
}
