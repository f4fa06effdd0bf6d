package battle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Digest hashes every locally simulated combatant plus the tick counter.
// Two processes that resolved the same inputs produce the same digest.
// Mirrored combatants are excluded since their state is only what the
// network last delivered.
func (b *Battle) Digest() [32]byte {
	h := sha256.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	put(b.tick)
	for _, c := range b.combatants {
		if c.mirrored {
			continue
		}
		put(uint64(c.id))
		put(uint64(c.status))
		for y := range c.board {
			row := c.board[y]
			h.Write(cellBytes(row[:]))
		}
		put(uint64(c.piece.Shape))
		put(uint64(c.piece.Rotation))
		put(uint64(int64(c.piece.X)))
		put(uint64(int64(c.piece.Y)))
		put(boolBit(c.hasPiece))
		put(uint64(c.hold))
		put(boolBit(c.hasHold))
		put(boolBit(c.canHold))
		for _, s := range c.next {
			put(uint64(s))
		}
		for _, g := range c.pending {
			put(uint64(g.Lines))
			put(uint64(g.Hole))
		}
		put(uint64(c.score))
		put(uint64(c.lines))
		put(uint64(c.combo))
		put(uint64(c.gravityCounter))
		put(uint64(c.lockCounter))
		put(uint64(c.lockResets))
		put(c.lastLockTick)
		put(c.gen.Draws())
		put(c.holes.Draws())
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DigestHex is Digest encoded as lowercase hex.
func (b *Battle) DigestHex() string {
	d := b.Digest()
	return hex.EncodeToString(d[:])
}

func cellBytes(row []Cell) []byte {
	out := make([]byte, len(row))
	for i, c := range row {
		out[i] = byte(c)
	}
	return out
}

func boolBit(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
