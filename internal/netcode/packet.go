// Package netcode implements picoNet, the UDP session layer that keeps two
// peers in lockstep. It distributes the match seed, carries best-effort
// combatant deltas and delivers garbage attacks reliably on beat
// boundaries.
package netcode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vovakirdan/roguedex/internal/core"
)

// ProtocolID opens every datagram ("ROGU").
const ProtocolID uint32 = 0x524F4755

// HeaderSize is the encoded header length.
const HeaderSize = 17

// MaxDatagram bounds the size of anything the codec produces.
const MaxDatagram = 64

// ErrBadPacket is returned for datagrams that do not decode.
var ErrBadPacket = errors.New("netcode: bad packet")

// PacketType tags the payload of a datagram.
type PacketType uint8

const (
	TypeHandshake PacketType = 1
	TypeDelta     PacketType = 2
	TypeGarbage   PacketType = 3
	TypeAck       PacketType = 4
)

// String returns the packet type name.
func (t PacketType) String() string {
	switch t {
	case TypeHandshake:
		return "handshake"
	case TypeDelta:
		return "delta"
	case TypeGarbage:
		return "garbage"
	case TypeAck:
		return "ack"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Header precedes every payload. Ack is the newest remote sequence seen and
// bit i of AckBits marks Ack-1-i as received.
type Header struct {
	Sequence uint32
	Ack      uint32
	AckBits  uint32
	Type     PacketType
}

// Payload is one of Handshake, Delta, Garbage or Ack.
type Payload interface {
	packetType() PacketType
	size() int
	appendTo(b []byte) []byte
}

// Handshake carries the match seed. A zero seed is a joiner's hello.
type Handshake struct {
	Seed uint64
}

// Delta is the compact per-tick state of the sender's own combatant.
type Delta struct {
	Combatant    core.CombatantID
	Status       uint8
	Shape        uint8
	Rotation     uint8
	X            int8
	Y            int8
	Score        uint32
	LastLockTick uint32
	Tick         uint32
	Draws        uint32
	TailShape    uint8
}

// Garbage is an attack against the receiver.
type Garbage struct {
	Lines      uint8
	SourceTick uint32
}

// Ack explicitly acknowledges one sequence.
type Ack struct {
	Acked uint32
}

func (Handshake) packetType() PacketType { return TypeHandshake }
func (Delta) packetType() PacketType     { return TypeDelta }
func (Garbage) packetType() PacketType   { return TypeGarbage }
func (Ack) packetType() PacketType       { return TypeAck }

func (Handshake) size() int { return 8 }
func (Delta) size() int     { return 23 }
func (Garbage) size() int   { return 5 }
func (Ack) size() int       { return 4 }

func (p Handshake) appendTo(b []byte) []byte {
	return binary.BigEndian.AppendUint64(b, p.Seed)
}

func (p Delta) appendTo(b []byte) []byte {
	b = append(b, byte(p.Combatant), p.Status, p.Shape, p.Rotation, byte(p.X), byte(p.Y))
	b = binary.BigEndian.AppendUint32(b, p.Score)
	b = binary.BigEndian.AppendUint32(b, p.LastLockTick)
	b = binary.BigEndian.AppendUint32(b, p.Tick)
	b = binary.BigEndian.AppendUint32(b, p.Draws)
	return append(b, p.TailShape)
}

func (p Garbage) appendTo(b []byte) []byte {
	b = append(b, p.Lines)
	return binary.BigEndian.AppendUint32(b, p.SourceTick)
}

func (p Ack) appendTo(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, p.Acked)
}

// Packet is a decoded datagram.
type Packet struct {
	Header  Header
	Payload Payload
}

// Marshal encodes a packet. The header type is taken from the payload.
func Marshal(h Header, p Payload) []byte {
	b := make([]byte, 0, HeaderSize+p.size())
	b = binary.BigEndian.AppendUint32(b, ProtocolID)
	b = binary.BigEndian.AppendUint32(b, h.Sequence)
	b = binary.BigEndian.AppendUint32(b, h.Ack)
	b = binary.BigEndian.AppendUint32(b, h.AckBits)
	b = append(b, byte(p.packetType()))
	return p.appendTo(b)
}

// Unmarshal decodes a datagram. Trailing bytes are rejected.
func Unmarshal(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrBadPacket, len(b))
	}
	if id := binary.BigEndian.Uint32(b); id != ProtocolID {
		return Packet{}, fmt.Errorf("%w: protocol id 0x%08x", ErrBadPacket, id)
	}
	h := Header{
		Sequence: binary.BigEndian.Uint32(b[4:]),
		Ack:      binary.BigEndian.Uint32(b[8:]),
		AckBits:  binary.BigEndian.Uint32(b[12:]),
		Type:     PacketType(b[16]),
	}
	body := b[HeaderSize:]

	var p Payload
	switch h.Type {
	case TypeHandshake:
		if len(body) != (Handshake{}).size() {
			return Packet{}, sizeError(h.Type, len(body))
		}
		p = Handshake{Seed: binary.BigEndian.Uint64(body)}
	case TypeDelta:
		if len(body) != (Delta{}).size() {
			return Packet{}, sizeError(h.Type, len(body))
		}
		p = Delta{
			Combatant:    core.CombatantID(body[0]),
			Status:       body[1],
			Shape:        body[2],
			Rotation:     body[3],
			X:            int8(body[4]),
			Y:            int8(body[5]),
			Score:        binary.BigEndian.Uint32(body[6:]),
			LastLockTick: binary.BigEndian.Uint32(body[10:]),
			Tick:         binary.BigEndian.Uint32(body[14:]),
			Draws:        binary.BigEndian.Uint32(body[18:]),
			TailShape:    body[22],
		}
	case TypeGarbage:
		if len(body) != (Garbage{}).size() {
			return Packet{}, sizeError(h.Type, len(body))
		}
		p = Garbage{Lines: body[0], SourceTick: binary.BigEndian.Uint32(body[1:])}
	case TypeAck:
		if len(body) != (Ack{}).size() {
			return Packet{}, sizeError(h.Type, len(body))
		}
		p = Ack{Acked: binary.BigEndian.Uint32(body)}
	default:
		return Packet{}, fmt.Errorf("%w: unknown type %d", ErrBadPacket, uint8(h.Type))
	}
	return Packet{Header: h, Payload: p}, nil
}

func sizeError(t PacketType, n int) error {
	return fmt.Errorf("%w: %s payload of %d bytes", ErrBadPacket, t, n)
}
