package netcode

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/roguedex/internal/bag"
)

// ErrDesync is returned when a remote delta contradicts local state.
var ErrDesync = errors.New("netcode: desync detected")

// maxCheckedDraws bounds how far a remote delta can push the local
// sequence record.
const maxCheckedDraws = 1 << 20

// CheckDelta compares a remote delta against local expectations: its tick
// must be within tolerance of ours, and the shape it claims as its latest
// draw must match the shared sequence at that draw index.
func CheckDelta(d Delta, localTick uint64, tolerance uint32, seq *bag.Sequence) error {
	remote := uint64(d.Tick)
	var drift uint64
	if remote > localTick {
		drift = remote - localTick
	} else {
		drift = localTick - remote
	}
	if drift > uint64(tolerance) {
		return fmt.Errorf("%w: remote tick %d, local tick %d", ErrDesync, remote, localTick)
	}

	if d.Draws == 0 || seq == nil {
		return nil
	}
	if d.Draws > maxCheckedDraws {
		return fmt.Errorf("%w: implausible draw count %d", ErrDesync, d.Draws)
	}
	want := seq.At(uint64(d.Draws) - 1)
	if bag.Shape(d.TailShape) != want {
		return fmt.Errorf("%w: draw %d is %s remotely, %s locally", ErrDesync, d.Draws-1, bag.Shape(d.TailShape), want)
	}
	return nil
}
