// Package beat converts match time and a configured tempo into discrete beat
// indices and an on-beat verdict.
//
// All arithmetic is integer nanoseconds so two peers evaluating the same
// logical time always agree.
package beat

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/roguedex/internal/core"
)

// DefaultWindow is the on-beat tolerance on either side of a beat.
const DefaultWindow = 200 * time.Millisecond

// ErrInvalidTempo is returned for a non-positive BPM or an unusable window.
var ErrInvalidTempo = errors.New("beat: invalid tempo")

// Stamp is the beat verdict recorded on an Action or Event at creation.
// It is never recomputed downstream.
type Stamp struct {
	Beat   int64 `json:"beat"`
	OnBeat bool  `json:"on_beat"`
}

// Clock maps elapsed match time onto beats.
type Clock struct {
	bpm    int
	period time.Duration
	window time.Duration
	start  time.Time
}

// New creates a clock for the given tempo and window.
// The window must be non-negative and smaller than half a beat period,
// otherwise every instant would be on-beat.
func New(bpm int, window time.Duration) (*Clock, error) {
	if bpm <= 0 {
		return nil, fmt.Errorf("%w: bpm %d", ErrInvalidTempo, bpm)
	}
	period := time.Minute / time.Duration(bpm)
	if window < 0 || 2*window >= period {
		return nil, fmt.Errorf("%w: window %s for period %s", ErrInvalidTempo, window, period)
	}
	return &Clock{bpm: bpm, period: period, window: window}, nil
}

// MustNew is like New but panics on error. Intended for tests and constants.
func MustNew(bpm int, window time.Duration) *Clock {
	c, err := New(bpm, window)
	if err != nil {
		panic(err)
	}
	return c
}

// BPM returns the configured tempo.
func (c *Clock) BPM() int { return c.bpm }

// Period returns the duration of one beat.
func (c *Clock) Period() time.Duration { return c.period }

// Window returns the on-beat tolerance.
func (c *Clock) Window() time.Duration { return c.window }

// BeatIndex returns floor(elapsed / period).
func (c *Clock) BeatIndex(elapsed time.Duration) int64 {
	return core.FloorDiv(int64(elapsed), int64(c.period))
}

// IsOnBeat reports whether elapsed lies within the window of the nearest beat.
func (c *Clock) IsOnBeat(elapsed time.Duration) bool {
	r := core.FloorMod(int64(elapsed), int64(c.period))
	dist := r
	if other := int64(c.period) - r; other < dist {
		dist = other
	}
	return dist <= int64(c.window)
}

// Stamp evaluates both verdicts for elapsed at once.
func (c *Clock) Stamp(elapsed time.Duration) Stamp {
	return Stamp{Beat: c.BeatIndex(elapsed), OnBeat: c.IsOnBeat(elapsed)}
}

// BeatTime returns the elapsed time at which beat n begins.
func (c *Clock) BeatTime(n int64) time.Duration {
	return time.Duration(n) * c.period
}

// NextBoundary returns the first beat start strictly after elapsed.
func (c *Clock) NextBoundary(elapsed time.Duration) time.Duration {
	return c.BeatTime(c.BeatIndex(elapsed) + 1)
}

// Crossed reports whether a beat boundary lies in (prev, cur].
func (c *Clock) Crossed(prev, cur time.Duration) bool {
	return c.BeatIndex(cur) != c.BeatIndex(prev)
}

// Start anchors the wall-clock forms at match_start.
func (c *Clock) Start(t time.Time) {
	c.start = t
}

// StartedAt returns the anchor set by Start.
func (c *Clock) StartedAt() time.Time { return c.start }

// BeatIndexAt is BeatIndex for a wall-clock instant.
func (c *Clock) BeatIndexAt(now time.Time) int64 {
	return c.BeatIndex(now.Sub(c.start))
}

// IsOnBeatAt is IsOnBeat for a wall-clock instant.
func (c *Clock) IsOnBeatAt(now time.Time) bool {
	return c.IsOnBeat(now.Sub(c.start))
}
