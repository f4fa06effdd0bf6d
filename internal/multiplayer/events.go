package multiplayer

import "github.com/vovakirdan/roguedex/internal/battle"

// Event is sent from a match to its subscribers.
type Event interface {
	matchEvent()
}

// MatchStartedEvent is sent once the battle exists, which for online
// matches is after the seed exchange.
type MatchStartedEvent struct {
	MatchID MatchID
	Mode    Mode
	Seed    uint64
	Players [2]string
}

func (MatchStartedEvent) matchEvent() {}

// SyncedEvent is sent when an online session reaches the synced state.
type SyncedEvent struct {
	MatchID MatchID
	Seed    uint64
}

func (SyncedEvent) matchEvent() {}

// TickEvent carries the battle events one tick produced. Ticks that
// produced nothing are not sent.
type TickEvent struct {
	MatchID MatchID
	Tick    uint64
	Events  []battle.Event
}

func (TickEvent) matchEvent() {}

// DesyncEvent reports a desync, from a contradicting peer delta or from
// the local loop falling behind the beat. It is reported once per match.
type DesyncEvent struct {
	MatchID MatchID
	Tick    uint64
	Err     error
}

func (DesyncEvent) matchEvent() {}

// MatchEndedEvent is sent when the match ends.
type MatchEndedEvent struct {
	Result MatchResult
}

func (MatchEndedEvent) matchEvent() {}
