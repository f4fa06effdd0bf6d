package observer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/multiplayer"
)

// Message types on the live feed.
const (
	MsgSnapshot = "snapshot"
	MsgStarted  = "started"
	MsgSynced   = "synced"
	MsgTick     = "tick"
	MsgDesync   = "desync"
	MsgEnded    = "ended"
)

const (
	feedBuffer   = 256
	writeTimeout = 5 * time.Second
)

// Message is one live feed frame.
type Message struct {
	Type    string                   `json:"type"`
	MatchID multiplayer.MatchID      `json:"match_id"`
	Tick    uint64                   `json:"tick,omitempty"`
	Seed    uint64                   `json:"seed,omitempty"`
	Events  []battle.Event           `json:"events,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Summary *multiplayer.Summary     `json:"summary,omitempty"`
	Result  *multiplayer.MatchResult `json:"result,omitempty"`
}

// toMessage converts a match event into a feed frame.
func toMessage(evt multiplayer.Event, m *multiplayer.Match) (Message, bool) {
	switch e := evt.(type) {
	case multiplayer.MatchStartedEvent:
		return Message{Type: MsgStarted, MatchID: e.MatchID, Seed: e.Seed}, true
	case multiplayer.SyncedEvent:
		return Message{Type: MsgSynced, MatchID: e.MatchID, Seed: e.Seed}, true
	case multiplayer.TickEvent:
		sum := m.Summary()
		return Message{Type: MsgTick, MatchID: e.MatchID, Tick: e.Tick, Events: e.Events, Summary: &sum}, true
	case multiplayer.DesyncEvent:
		return Message{Type: MsgDesync, MatchID: e.MatchID, Tick: e.Tick, Error: e.Err.Error()}, true
	case multiplayer.MatchEndedEvent:
		res := e.Result
		return Message{Type: MsgEnded, MatchID: res.MatchID, Tick: res.Ticks, Result: &res}, true
	}
	return Message{}, false
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := multiplayer.MatchID(chi.URLParam(r, "id"))
	m, ok := s.coord.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "match not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := multiplayer.NewChannelSubscriber(multiplayer.SubscriberID(uuid.NewString()), feedBuffer)
	m.Subscribe(sub)
	defer func() {
		sub.Close()
		m.Unsubscribe(sub.ID())
	}()
	s.log.Debug("watcher joined", "match", id, "subscriber", sub.ID())

	send := func(msg Message) bool {
		b, err := json.Marshal(msg)
		if err != nil {
			s.log.Debug("cannot encode feed message", "err", err)
			return true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, b) == nil
	}
	bye := func(reason string) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), time.Now().Add(time.Second))
	}

	sum := m.Summary()
	if !send(Message{Type: MsgSnapshot, MatchID: id, Tick: sum.Tick, Summary: &sum}) {
		return
	}
	if sum.Done && sum.Result != nil {
		send(Message{Type: MsgEnded, MatchID: id, Tick: sum.Result.Ticks, Result: sum.Result})
		bye("match over")
		return
	}

	// The feed is one-way; reads only notice the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case evt := <-sub.Events():
			msg, ok := toMessage(evt, m)
			if !ok {
				continue
			}
			if !send(msg) {
				return
			}
			if msg.Type == MsgEnded {
				bye("match over")
				return
			}
		}
	}
}
