package netcode

import "sync"

// LossFunc decides whether a datagram is lost in transit.
type LossFunc func(b []byte) bool

// PipeEnd is one side of an in-memory Transport pair.
type PipeEnd struct {
	peer *PipeEnd

	mu     sync.Mutex
	queue  [][]byte
	loss   LossFunc
	closed bool
}

// NewPipe returns two connected ends. Datagrams are delivered in order
// unless a loss hook drops them.
func NewPipe() (*PipeEnd, *PipeEnd) {
	a, b := &PipeEnd{}, &PipeEnd{}
	a.peer, b.peer = b, a
	return a, b
}

// SetLoss installs a hook consulted for every datagram this end sends.
func (p *PipeEnd) SetLoss(f LossFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loss = f
}

// Send delivers a copy of b to the other end.
func (p *PipeEnd) Send(b []byte) error {
	p.mu.Lock()
	loss, closed := p.loss, p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if loss != nil && loss(b) {
		return nil
	}

	q := p.peer
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	if len(q.queue) >= QueueSize {
		q.queue = q.queue[1:]
	}
	q.queue = append(q.queue, append([]byte(nil), b...))
	return nil
}

// Drain returns what the other end has sent.
func (p *PipeEnd) Drain() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.queue
	p.queue = nil
	return out
}

// Close stops delivery in both directions for this end.
func (p *PipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.queue = nil
	return nil
}
