// Package input turns held intents into battle actions. Horizontal moves
// and soft drop auto-repeat with DAS (delay before repeating) and ARR
// (interval between repeats); everything else fires once per press.
package input

import (
	"time"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/core"
)

// instantRepeat is how many moves an ARR of zero produces per tick; enough
// to cross the board.
const instantRepeat = battle.Cols

type binding struct {
	intent  core.Intent
	action  battle.ActionKind
	repeats bool
}

// bindings is ordered: actions produced in the same tick are submitted in
// this order.
var bindings = []binding{
	{core.IntentHold, battle.ActionHold, false},
	{core.IntentRotateCW, battle.ActionRotateCW, false},
	{core.IntentRotateCCW, battle.ActionRotateCCW, false},
	{core.IntentLeft, battle.ActionMoveLeft, true},
	{core.IntentRight, battle.ActionMoveRight, true},
	{core.IntentSoftDrop, battle.ActionSoftDrop, true},
	{core.IntentHardDrop, battle.ActionHardDrop, false},
}

// Repeater tracks how long each intent has been held, in ticks.
type Repeater struct {
	das  int
	arr  int
	held map[core.Intent]int
}

// NewRepeater converts DAS and ARR to ticks at the given tick rate,
// rounding up so a nonzero duration is never shorter than asked.
func NewRepeater(das, arr time.Duration, tickRate int) *Repeater {
	period := core.RuntimeConfig{TickRate: tickRate}.TickPeriod()
	return &Repeater{
		das:  ticks(das, period),
		arr:  ticks(arr, period),
		held: make(map[core.Intent]int),
	}
}

func ticks(d, period time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + period - 1) / period)
}

// DAS returns the repeat delay in ticks.
func (r *Repeater) DAS() int { return r.das }

// ARR returns the repeat interval in ticks.
func (r *Repeater) ARR() int { return r.arr }

// Step consumes one tick of input and returns the actions it produces.
func (r *Repeater) Step(f core.InputFrame) []battle.ActionKind {
	var out []battle.ActionKind
	for _, b := range bindings {
		if !f.Has(b.intent) {
			delete(r.held, b.intent)
			continue
		}
		r.held[b.intent]++
		n := r.held[b.intent]
		switch {
		case n == 1:
			out = append(out, b.action)
		case !b.repeats || n <= r.das:
		case r.arr == 0:
			for i := 0; i < instantRepeat; i++ {
				out = append(out, b.action)
			}
		case (n-1-r.das)%r.arr == 0:
			out = append(out, b.action)
		}
	}
	return out
}

// Reset forgets every held intent.
func (r *Repeater) Reset() {
	clear(r.held)
}
