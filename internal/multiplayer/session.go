package multiplayer

import "sync"

// Subscriber receives match events. Send must not block.
type Subscriber interface {
	// ID returns the unique subscriber identifier.
	ID() SubscriberID

	// Send delivers an event asynchronously.
	Send(evt Event)

	// Done returns a channel that closes when the subscriber goes away.
	Done() <-chan struct{}
}

// ChannelSubscriber is a Subscriber backed by a buffered channel.
type ChannelSubscriber struct {
	id       SubscriberID
	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSubscriber creates a channel subscriber. bufferSize controls
// how many events are buffered before the oldest are dropped.
func NewChannelSubscriber(id SubscriberID, bufferSize int) *ChannelSubscriber {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelSubscriber{
		id:     id,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the subscriber identifier.
func (s *ChannelSubscriber) ID() SubscriberID {
	return s.id
}

// Send delivers an event. If the buffer is full the oldest event is
// dropped so the match loop never blocks.
func (s *ChannelSubscriber) Send(evt Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- evt:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- evt:
		default:
		}
	}
}

// Events returns the channel to receive events from.
func (s *ChannelSubscriber) Events() <-chan Event {
	return s.events
}

// Done returns the done channel.
func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Close marks the subscriber as done. Safe to call multiple times.
func (s *ChannelSubscriber) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// SubscriberRegistry tracks subscribers. Safe for concurrent use.
type SubscriberRegistry struct {
	mu   sync.RWMutex
	subs map[SubscriberID]Subscriber
}

// NewSubscriberRegistry creates an empty registry.
func NewSubscriberRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{
		subs: make(map[SubscriberID]Subscriber),
	}
}

// Register adds a subscriber.
func (r *SubscriberRegistry) Register(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.ID()] = s
}

// Unregister removes a subscriber.
func (r *SubscriberRegistry) Unregister(id SubscriberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// Get retrieves a subscriber by ID.
func (r *SubscriberRegistry) Get(id SubscriberID) (Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[id]
	return s, ok
}

// Count returns the number of registered subscribers.
func (r *SubscriberRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Broadcast sends evt to every live subscriber and forgets the ones whose
// Done channel has closed.
func (r *SubscriberRegistry) Broadcast(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.subs {
		select {
		case <-s.Done():
			delete(r.subs, id)
			continue
		default:
		}
		s.Send(evt)
	}
}
