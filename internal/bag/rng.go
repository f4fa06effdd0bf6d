// Package bag provides the deterministic random source and the 7-bag piece
// generator shared by both peers of a match.
package bag

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// defaultState replaces a zero state, which xorshift cannot leave.
const defaultState = 88172645463325252

// RNG is a xorshift64* generator. It is deterministic across platforms and
// never consults system randomness.
type RNG struct {
	state uint64
}

// NewRNG creates a generator from seed.
func NewRNG(seed uint64) *RNG {
	if seed == 0 {
		seed = defaultState
	}
	return &RNG{state: seed}
}

// Uint64 returns the next 64-bit value.
func (r *RNG) Uint64() uint64 {
	r.state ^= r.state >> 12
	r.state ^= r.state << 25
	r.state ^= r.state >> 27
	return r.state * 2685821657736338717
}

// Intn returns a value in [0, n).
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Uint64() % uint64(n))
}

// State returns the raw generator state.
func (r *RNG) State() uint64 {
	return r.state
}

// Derive computes an independent stream seed from the match seed and a label.
// Streams with different labels never share draws.
func Derive(matchSeed uint64, label string) uint64 {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], matchSeed)
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(label))
	sum := mac.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
