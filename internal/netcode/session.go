package netcode

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/roguedex/internal/bag"
	"github.com/vovakirdan/roguedex/internal/core"
)

var (
	// ErrProtocolTimeout is returned when the peer stops acknowledging.
	ErrProtocolTimeout = errors.New("netcode: protocol timeout")

	// ErrClosed is returned for operations on a disconnected session.
	ErrClosed = errors.New("netcode: session closed")

	// ErrZeroSeed is returned when a host is created without a seed.
	ErrZeroSeed = errors.New("netcode: match seed must be nonzero")
)

// State is the session lifecycle.
type State uint8

const (
	StateHandshaking State = iota
	StateSynced
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateSynced:
		return "synced"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Role selects which side of the handshake a session plays.
type Role uint8

const (
	RoleHost Role = iota
	RoleJoin
)

// String returns the role name.
func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "join"
}

// Config holds protocol timing.
type Config struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	ResendInterval   time.Duration `yaml:"resend_interval" json:"resend_interval"`
	DesyncTolerance  uint32        `yaml:"desync_tolerance" json:"desync_tolerance"`
}

// DefaultConfig returns protocol timing suited to a LAN or a nearby WAN peer.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		Timeout:          3 * time.Second,
		ResendInterval:   100 * time.Millisecond,
		DesyncTolerance:  30,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Inbound is what arrived since the last Poll.
type Inbound struct {
	// Delta is the newest remote delta, valid when HasDelta is set.
	Delta    Delta
	HasDelta bool

	// Garbage lists attacks in arrival order, each delivered once.
	Garbage []Garbage

	// Desync is set when Delta contradicts local state.
	Desync error
}

type reliable struct {
	seq       uint32
	payload   Payload
	firstSent time.Time
	lastSent  time.Time
}

const (
	deltaHistory = 32
	seenWindow   = 1024
)

// Session is the per-peer protocol state. It does no I/O: datagrams go in
// through Receive and come out of Outgoing, so the match loop decides when
// the network is touched. A Session is not safe for concurrent use.
type Session struct {
	cfg    Config
	role   Role
	local  core.CombatantID
	log    *log.Logger
	state  State
	err    error
	desync error

	seed       uint64
	seedKnown  bool
	deltaAcked bool
	sequence   *bag.Sequence

	nextSeq uint32
	recv    ackWindow

	started   time.Time
	lastRecv  time.Time
	lastHello time.Time

	handshake *reliable
	inflight  []*reliable
	buffered  []Garbage

	deltaSeqs [deltaHistory]uint32
	deltaN    int

	lastDeltaSeq uint32
	haveDelta    bool
	latest       *Delta

	seenGarbage map[uint32]struct{}
	inbox       []Garbage

	outbox [][]byte
}

func newSession(cfg Config, role Role, opts []Option) *Session {
	s := &Session{
		cfg:         cfg,
		role:        role,
		local:       core.Combatant1,
		log:         log.New(io.Discard),
		nextSeq:     1,
		seenGarbage: make(map[uint32]struct{}),
	}
	if role == RoleJoin {
		s.local = core.Combatant2
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHost creates the hosting side, which owns combatant 1 and the seed.
func NewHost(cfg Config, seed uint64, opts ...Option) (*Session, error) {
	if seed == 0 {
		return nil, ErrZeroSeed
	}
	s := newSession(cfg, RoleHost, opts)
	s.seed = seed
	s.sequence = bag.NewSequence(seed)
	return s, nil
}

// NewJoin creates the joining side, which owns combatant 2.
func NewJoin(cfg Config, opts ...Option) *Session {
	return newSession(cfg, RoleJoin, opts)
}

// Start begins the handshake. A joiner sends its first hello.
func (s *Session) Start(now time.Time) {
	s.started = now
	s.lastRecv = now
	if s.role == RoleJoin {
		s.sendHello(now)
	}
}

// Role returns the session role.
func (s *Session) Role() Role { return s.role }

// Local returns the combatant this peer simulates.
func (s *Session) Local() core.CombatantID { return s.local }

// Remote returns the combatant mirrored from the peer.
func (s *Session) Remote() core.CombatantID { return s.local.Opponent() }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns why the session disconnected, or nil.
func (s *Session) Err() error { return s.err }

// Desync returns the first desync detected, or nil.
func (s *Session) Desync() error { return s.desync }

// Seed returns the match seed once both sides agree on it.
func (s *Session) Seed() (uint64, bool) {
	if !s.seedKnown {
		return 0, false
	}
	return s.seed, true
}

// InFlight returns the number of garbage packets awaiting acknowledgment.
func (s *Session) InFlight() int { return len(s.inflight) }

// Buffered returns the number of attacks waiting for the next flush.
func (s *Session) Buffered() int { return len(s.buffered) }

// Receive processes one datagram.
func (s *Session) Receive(b []byte, now time.Time) error {
	if s.state == StateDisconnected {
		return ErrClosed
	}
	pkt, err := Unmarshal(b)
	if err != nil {
		return err
	}
	seq := pkt.Header.Sequence

	s.lastRecv = now
	s.recv.observe(seq)
	s.processAcks(pkt.Header.Ack, pkt.Header.AckBits)

	switch p := pkt.Payload.(type) {
	case Handshake:
		s.onHandshake(seq, p, now)
	case Delta:
		if p.Combatant != s.Remote() {
			return fmt.Errorf("%w: delta for %s from the peer owning %s", ErrBadPacket, p.Combatant, s.Remote())
		}
		if s.seedKnown && (!s.haveDelta || seqNewer(seq, s.lastDeltaSeq)) {
			s.haveDelta = true
			s.lastDeltaSeq = seq
			s.latest = &p
		}
	case Garbage:
		s.send(Ack{Acked: seq})
		if _, dup := s.seenGarbage[seq]; dup {
			break
		}
		s.seenGarbage[seq] = struct{}{}
		s.inbox = append(s.inbox, p)
		s.pruneSeen()
	case Ack:
		s.processAcks(p.Acked, 0)
	}

	s.updateState()
	return nil
}

func (s *Session) onHandshake(seq uint32, p Handshake, now time.Time) {
	switch s.role {
	case RoleHost:
		if p.Seed != 0 {
			return
		}
		if s.handshake == nil {
			s.handshake = &reliable{seq: s.take(), payload: Handshake{Seed: s.seed}, firstSent: now}
			s.log.Debug("hello received, sending seed", "seed", s.seed)
		}
		if !s.seedKnown {
			s.resend(s.handshake, now)
		}
	case RoleJoin:
		if p.Seed == 0 {
			return
		}
		if !s.seedKnown {
			s.seed = p.Seed
			s.seedKnown = true
			s.sequence = bag.NewSequence(p.Seed)
			s.log.Debug("seed received", "seed", p.Seed)
		} else if p.Seed != s.seed && s.desync == nil {
			s.desync = fmt.Errorf("%w: seed changed from %d to %d", ErrDesync, s.seed, p.Seed)
		}
		s.send(Ack{Acked: seq})
	}
}

func (s *Session) processAcks(ack, bits uint32) {
	if h := s.handshake; h != nil && !s.seedKnown && acked(h.seq, ack, bits) {
		s.seedKnown = true
		s.log.Debug("seed acknowledged", "seed", s.seed)
	}

	if len(s.inflight) > 0 {
		kept := s.inflight[:0]
		for _, r := range s.inflight {
			if !acked(r.seq, ack, bits) {
				kept = append(kept, r)
			}
		}
		s.inflight = kept
	}

	if !s.deltaAcked {
		for i := 0; i < s.deltaN && i < deltaHistory; i++ {
			if acked(s.deltaSeqs[i], ack, bits) {
				s.deltaAcked = true
				break
			}
		}
	}
}

func (s *Session) updateState() {
	if s.state == StateHandshaking && s.seedKnown && s.deltaAcked {
		s.state = StateSynced
		s.log.Info("session synced", "role", s.role, "seed", s.seed)
	}
}

func (s *Session) pruneSeen() {
	if len(s.seenGarbage) <= seenWindow/4 {
		return
	}
	floor := s.recv.last - seenWindow
	for seq := range s.seenGarbage {
		if seqNewer(floor, seq) {
			delete(s.seenGarbage, seq)
		}
	}
}

// SendDelta queues a best-effort delta of the local combatant. Deltas are
// never retransmitted; the next one supersedes them.
func (s *Session) SendDelta(d Delta) {
	if s.state == StateDisconnected || !s.seedKnown {
		return
	}
	d.Combatant = s.local
	seq := s.take()
	s.deltaSeqs[s.deltaN%deltaHistory] = seq
	s.deltaN++
	s.sendSeq(seq, d)
}

// QueueGarbage buffers an attack until the next FlushGarbage. Nothing is
// sent here, whatever the timing.
func (s *Session) QueueGarbage(lines int, sourceTick uint32) {
	if lines <= 0 || s.state == StateDisconnected {
		return
	}
	if lines > 255 {
		lines = 255
	}
	s.buffered = append(s.buffered, Garbage{Lines: uint8(lines), SourceTick: sourceTick})
}

// FlushGarbage sends every buffered attack. The match loop calls it on
// beat boundaries only. Each attack is retransmitted with its sequence
// until acknowledged.
func (s *Session) FlushGarbage(now time.Time) int {
	if s.state == StateDisconnected || !s.seedKnown || len(s.buffered) == 0 {
		return 0
	}
	n := len(s.buffered)
	for _, g := range s.buffered {
		r := &reliable{seq: s.take(), payload: g, firstSent: now}
		s.inflight = append(s.inflight, r)
		s.resend(r, now)
	}
	s.buffered = nil
	return n
}

// Update runs timers: retransmissions and timeouts. It returns
// ErrProtocolTimeout once, when the session disconnects because of one.
func (s *Session) Update(now time.Time) error {
	if s.state == StateDisconnected {
		return nil
	}

	if s.state == StateHandshaking && now.Sub(s.started) > s.cfg.HandshakeTimeout {
		return s.timeout("handshake")
	}
	if now.Sub(s.lastRecv) > s.cfg.Timeout && (s.seedKnown || s.role == RoleJoin) {
		return s.timeout("peer silent")
	}

	if s.role == RoleJoin && !s.seedKnown && now.Sub(s.lastHello) >= s.cfg.ResendInterval {
		s.sendHello(now)
	}
	if h := s.handshake; h != nil && !s.seedKnown && now.Sub(h.lastSent) >= s.cfg.ResendInterval {
		s.resend(h, now)
	}
	for _, r := range s.inflight {
		if now.Sub(r.firstSent) > s.cfg.Timeout {
			return s.timeout("garbage unacknowledged")
		}
		if now.Sub(r.lastSent) >= s.cfg.ResendInterval {
			s.log.Debug("retransmitting garbage", "seq", r.seq)
			s.resend(r, now)
		}
	}
	return nil
}

func (s *Session) timeout(reason string) error {
	s.state = StateDisconnected
	s.err = fmt.Errorf("%w: %s", ErrProtocolTimeout, reason)
	s.log.Warn("session timed out", "role", s.role, "reason", reason)
	return s.err
}

// Close disconnects the session. Pending traffic is discarded.
func (s *Session) Close() {
	if s.state == StateDisconnected {
		return
	}
	s.state = StateDisconnected
	s.outbox = nil
	s.buffered = nil
	s.inflight = nil
}

// Outgoing returns and clears the datagrams produced since the last call.
func (s *Session) Outgoing() [][]byte {
	out := s.outbox
	s.outbox = nil
	return out
}

// Poll returns what arrived since the last call and checks the newest
// delta against the local tick.
func (s *Session) Poll(localTick uint64) Inbound {
	var in Inbound
	if s.latest != nil {
		in.Delta = *s.latest
		in.HasDelta = true
		s.latest = nil
		if err := CheckDelta(in.Delta, localTick, s.cfg.DesyncTolerance, s.sequence); err != nil {
			in.Desync = err
			if s.desync == nil {
				s.desync = err
				s.log.Warn("desync detected", "err", err)
			}
		}
	}
	in.Garbage = s.inbox
	s.inbox = nil
	return in
}

func (s *Session) sendHello(now time.Time) {
	s.lastHello = now
	s.send(Handshake{})
}

func (s *Session) resend(r *reliable, now time.Time) {
	r.lastSent = now
	s.sendSeq(r.seq, r.payload)
}

func (s *Session) take() uint32 {
	seq := s.nextSeq
	s.nextSeq++
	return seq
}

func (s *Session) send(p Payload) {
	s.sendSeq(s.take(), p)
}

func (s *Session) sendSeq(seq uint32, p Payload) {
	ack, bits := s.recv.header()
	s.outbox = append(s.outbox, Marshal(Header{Sequence: seq, Ack: ack, AckBits: bits}, p))
}
