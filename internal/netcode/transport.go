package netcode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// ErrNoPeer is returned by Send before a listening transport has heard
// from its peer.
var ErrNoPeer = errors.New("netcode: no peer yet")

// QueueSize bounds datagrams buffered between ticks.
const QueueSize = 256

// Transport moves datagrams. Send must not block; Drain returns whatever
// has been received since the previous call without waiting.
type Transport interface {
	Send(b []byte) error
	Drain() [][]byte
	Close() error
}

// UDPTransport is a Transport over one UDP socket. A reader goroutine
// fills a bounded queue; when the queue is full the oldest datagram is
// dropped, which the protocol tolerates.
type UDPTransport struct {
	conn   *net.UDPConn
	dialed bool
	log    *log.Logger

	mu   sync.Mutex
	peer *net.UDPAddr

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	dropped   atomic.Uint64
}

// TransportOption configures a UDPTransport.
type TransportOption func(*UDPTransport)

// WithTransportLogger sets the transport logger.
func WithTransportLogger(l *log.Logger) TransportOption {
	return func(t *UDPTransport) {
		if l != nil {
			t.log = l
		}
	}
}

// Listen opens a host socket. The first peer to send a datagram carrying
// the protocol id becomes the only peer.
func Listen(addr string, opts ...TransportOption) (*UDPTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot listen on %q: %w", addr, err)
	}
	return startUDP(conn, false, nil, opts), nil
}

// Dial opens a socket connected to a host.
func Dial(addr string, opts ...TransportOption) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot dial %q: %w", addr, err)
	}
	return startUDP(conn, true, raddr, opts), nil
}

func startUDP(conn *net.UDPConn, dialed bool, peer *net.UDPAddr, opts []TransportOption) *UDPTransport {
	t := &UDPTransport{
		conn:   conn,
		dialed: dialed,
		peer:   peer,
		log:    log.New(io.Discard),
		queue:  make(chan []byte, QueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.wg.Add(1)
	go t.readLoop()
	return t
}

// LocalAddr returns the bound address.
func (t *UDPTransport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// Peer returns the peer address, or nil before the first datagram.
func (t *UDPTransport) Peer() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.peer == nil {
		return nil
	}
	return t.peer
}

// Dropped returns how many received datagrams were discarded.
func (t *UDPTransport) Dropped() uint64 { return t.dropped.Load() }

func (t *UDPTransport) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, 1500)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.log.Debug("udp read failed", "err", err)
			continue
		}
		if n < HeaderSize || binary.BigEndian.Uint32(buf) != ProtocolID || !t.accept(from) {
			t.dropped.Add(1)
			continue
		}
		t.enqueue(append([]byte(nil), buf[:n]...))
	}
}

func (t *UDPTransport) accept(from *net.UDPAddr) bool {
	if t.dialed {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.peer == nil {
		t.peer = from
		t.log.Info("peer connected", "addr", from)
		return true
	}
	return t.peer.IP.Equal(from.IP) && t.peer.Port == from.Port
}

func (t *UDPTransport) enqueue(b []byte) {
	select {
	case t.queue <- b:
		return
	default:
	}
	select {
	case <-t.queue:
		t.dropped.Add(1)
	default:
	}
	select {
	case t.queue <- b:
	default:
		t.dropped.Add(1)
	}
}

// Send writes one datagram to the peer.
func (t *UDPTransport) Send(b []byte) error {
	if t.dialed {
		_, err := t.conn.Write(b)
		return err
	}
	t.mu.Lock()
	peer := t.peer
	t.mu.Unlock()
	if peer == nil {
		return ErrNoPeer
	}
	_, err := t.conn.WriteToUDP(b, peer)
	return err
}

// Drain returns buffered datagrams without blocking.
func (t *UDPTransport) Drain() [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-t.queue:
			out = append(out, b)
		default:
			return out
		}
	}
}

// Close stops the reader and closes the socket. Safe to call multiple times.
func (t *UDPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
		t.wg.Wait()
	})
	return err
}
