package netcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roguedex/internal/bag"
	"github.com/vovakirdan/roguedex/internal/core"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// exchange delivers datagrams both ways until neither side has output.
func exchange(t *testing.T, a, b *Session, now time.Time) {
	t.Helper()
	for i := 0; i < 10; i++ {
		outA, outB := a.Outgoing(), b.Outgoing()
		if len(outA) == 0 && len(outB) == 0 {
			return
		}
		for _, d := range outA {
			require.NoError(t, b.Receive(d, now))
		}
		for _, d := range outB {
			require.NoError(t, a.Receive(d, now))
		}
	}
	t.Fatalf("exchange did not settle")
}

func syncedPair(t *testing.T, now time.Time) (host, join *Session) {
	t.Helper()
	host, err := NewHost(DefaultConfig(), 42)
	require.NoError(t, err)
	join = NewJoin(DefaultConfig())
	host.Start(now)
	join.Start(now)

	for i := 0; i < 5; i++ {
		if host.State() == StateSynced && join.State() == StateSynced {
			break
		}
		host.SendDelta(Delta{})
		join.SendDelta(Delta{})
		exchange(t, host, join, now)
	}
	require.Equal(t, StateSynced, host.State())
	require.Equal(t, StateSynced, join.State())
	host.Poll(0)
	join.Poll(0)
	return host, join
}

func types(t *testing.T, datagrams [][]byte) []PacketType {
	t.Helper()
	var out []PacketType
	for _, d := range datagrams {
		p, err := Unmarshal(d)
		require.NoError(t, err)
		out = append(out, p.Header.Type)
	}
	return out
}

func TestPacketCodec(t *testing.T) {
	d := Delta{
		Combatant: core.Combatant2, Status: 1, Shape: 5, Rotation: 3,
		X: -2, Y: 37, Score: 123456, LastLockTick: 99, Tick: 1000, Draws: 12, TailShape: 4,
	}
	b := Marshal(Header{Sequence: 7, Ack: 6, AckBits: 0xF0F0F0F0}, d)
	assert.Len(t, b, HeaderSize+23)

	p, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, Header{Sequence: 7, Ack: 6, AckBits: 0xF0F0F0F0, Type: TypeDelta}, p.Header)
	assert.Equal(t, d, p.Payload)

	g := Marshal(Header{Sequence: 1}, Garbage{Lines: 3, SourceTick: 77})
	assert.Len(t, g, HeaderSize+5)
	assert.Equal(t, []byte{0x52, 0x4F, 0x47, 0x55}, g[:4])
}

func TestPacketRejects(t *testing.T) {
	good := Marshal(Header{Sequence: 1}, Ack{Acked: 1})

	wrongID := append([]byte(nil), good...)
	wrongID[0] = 0

	unknown := append([]byte(nil), good...)
	unknown[16] = 9

	tests := map[string][]byte{
		"short":         good[:10],
		"wrong id":      wrongID,
		"unknown type":  unknown,
		"trailing byte": append(append([]byte(nil), good...), 0),
		"truncated":     good[:len(good)-1],
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(b)
			assert.ErrorIs(t, err, ErrBadPacket)
		})
	}
}

func TestSequenceWindow(t *testing.T) {
	assert.True(t, seqNewer(1, 0xFFFFFFFF))
	assert.False(t, seqNewer(0xFFFFFFFF, 1))
	assert.False(t, seqNewer(5, 5))

	var w ackWindow
	w.observe(10)
	w.observe(8)
	w.observe(12)
	ack, bits := w.header()
	assert.Equal(t, uint32(12), ack)
	assert.Equal(t, uint32(0b1010), bits)

	assert.True(t, acked(12, ack, bits))
	assert.True(t, acked(10, ack, bits))
	assert.True(t, acked(8, ack, bits))
	assert.False(t, acked(11, ack, bits))
	assert.False(t, acked(13, ack, bits))

	w.observe(100)
	_, bits = w.header()
	assert.Zero(t, bits, "a jump past the window forgets older sequences")
}

func TestHandshakeReachesSynced(t *testing.T) {
	host, join := syncedPair(t, epoch)

	hs, ok := host.Seed()
	require.True(t, ok)
	js, ok := join.Seed()
	require.True(t, ok)
	assert.Equal(t, uint64(42), hs)
	assert.Equal(t, hs, js)

	assert.Equal(t, core.Combatant1, host.Local())
	assert.Equal(t, core.Combatant2, join.Local())
	assert.Equal(t, core.Combatant1, join.Remote())
}

func TestSeedExchangeAloneIsNotSynced(t *testing.T) {
	host, err := NewHost(DefaultConfig(), 9)
	require.NoError(t, err)
	join := NewJoin(DefaultConfig())
	host.Start(epoch)
	join.Start(epoch)
	exchange(t, host, join, epoch)

	_, ok := join.Seed()
	assert.True(t, ok)
	_, ok = host.Seed()
	assert.True(t, ok)
	assert.Equal(t, StateHandshaking, host.State())
	assert.Equal(t, StateHandshaking, join.State())
}

func TestHandshakeSurvivesLoss(t *testing.T) {
	cfg := DefaultConfig()
	host, err := NewHost(cfg, 5)
	require.NoError(t, err)
	join := NewJoin(cfg)
	host.Start(epoch)
	join.Start(epoch)

	// First hello lost.
	join.Outgoing()
	now := epoch.Add(cfg.ResendInterval)
	require.NoError(t, join.Update(now))
	for _, d := range join.Outgoing() {
		require.NoError(t, host.Receive(d, now))
	}

	// Seed lost, then retransmitted with the same sequence.
	first := host.Outgoing()
	require.Len(t, first, 1)
	now = now.Add(cfg.ResendInterval)
	require.NoError(t, host.Update(now))
	again := host.Outgoing()
	require.Len(t, again, 1)
	p1, _ := Unmarshal(first[0])
	p2, _ := Unmarshal(again[0])
	assert.Equal(t, p1.Header.Sequence, p2.Header.Sequence)

	for _, d := range again {
		require.NoError(t, join.Receive(d, now))
	}
	exchange(t, host, join, now)
	_, ok := host.Seed()
	assert.True(t, ok)
}

func TestZeroSeedRejected(t *testing.T) {
	_, err := NewHost(DefaultConfig(), 0)
	assert.ErrorIs(t, err, ErrZeroSeed)
}

func TestGarbageIsBeatGated(t *testing.T) {
	host, join := syncedPair(t, epoch)

	host.QueueGarbage(2, 17)
	assert.NotContains(t, types(t, host.Outgoing()), TypeGarbage)
	require.NoError(t, host.Update(epoch.Add(10*time.Millisecond)))
	assert.NotContains(t, types(t, host.Outgoing()), TypeGarbage)
	assert.Equal(t, 1, host.Buffered())
	assert.Empty(t, join.Poll(0).Garbage)

	now := epoch.Add(500 * time.Millisecond)
	assert.Equal(t, 1, host.FlushGarbage(now))
	out := host.Outgoing()
	assert.Equal(t, []PacketType{TypeGarbage}, types(t, out))

	for _, d := range out {
		require.NoError(t, join.Receive(d, now))
	}
	assert.Equal(t, []Garbage{{Lines: 2, SourceTick: 17}}, join.Poll(0).Garbage)
}

func TestGarbageRetransmitAndDedupe(t *testing.T) {
	host, join := syncedPair(t, epoch)
	cfg := DefaultConfig()

	host.QueueGarbage(4, 30)
	host.FlushGarbage(epoch)
	lost := host.Outgoing()
	require.Len(t, lost, 1)
	assert.Equal(t, 1, host.InFlight())

	now := epoch.Add(cfg.ResendInterval)
	require.NoError(t, host.Update(now))
	resent := host.Outgoing()
	require.Len(t, resent, 1)
	assert.Equal(t, lost[0], resent[0])

	// Delivered twice; applied once.
	require.NoError(t, join.Receive(resent[0], now))
	require.NoError(t, join.Receive(resent[0], now))
	assert.Len(t, join.Poll(0).Garbage, 1)

	for _, d := range join.Outgoing() {
		require.NoError(t, host.Receive(d, now))
	}
	assert.Equal(t, 0, host.InFlight())

	require.NoError(t, host.Update(now.Add(cfg.ResendInterval)))
	assert.NotContains(t, types(t, host.Outgoing()), TypeGarbage)
}

func TestDeltaLastWriteWins(t *testing.T) {
	host, join := syncedPair(t, epoch)

	host.SendDelta(Delta{Tick: 5, Score: 100})
	host.SendDelta(Delta{Tick: 6, Score: 200})
	out := host.Outgoing()
	require.Len(t, out, 2)

	require.NoError(t, join.Receive(out[1], epoch))
	require.NoError(t, join.Receive(out[0], epoch))

	in := join.Poll(6)
	require.True(t, in.HasDelta)
	assert.Equal(t, uint32(200), in.Delta.Score)
	assert.Equal(t, core.Combatant1, in.Delta.Combatant)
	assert.NoError(t, in.Desync)

	assert.False(t, join.Poll(6).HasDelta)
}

func TestDeltaForWrongCombatant(t *testing.T) {
	_, join := syncedPair(t, epoch)
	b := Marshal(Header{Sequence: 1000}, Delta{Combatant: core.Combatant2})
	assert.ErrorIs(t, join.Receive(b, epoch), ErrBadPacket)
}

func TestTimeouts(t *testing.T) {
	host, _ := syncedPair(t, epoch)
	err := host.Update(epoch.Add(4 * time.Second))
	require.ErrorIs(t, err, ErrProtocolTimeout)
	assert.Equal(t, StateDisconnected, host.State())
	assert.ErrorIs(t, host.Err(), ErrProtocolTimeout)
	assert.NoError(t, host.Update(epoch.Add(5*time.Second)), "timeout is reported once")

	join := NewJoin(DefaultConfig())
	join.Start(epoch)
	require.ErrorIs(t, join.Update(epoch.Add(11*time.Second)), ErrProtocolTimeout)

	alone, err := NewHost(DefaultConfig(), 1)
	require.NoError(t, err)
	alone.Start(epoch)
	require.NoError(t, alone.Update(epoch.Add(5*time.Second)))
	require.ErrorIs(t, alone.Update(epoch.Add(11*time.Second)), ErrProtocolTimeout)
}

func TestUnackedGarbageTimesOut(t *testing.T) {
	host, join := syncedPair(t, epoch)
	cfg := DefaultConfig()

	host.QueueGarbage(1, 1)
	host.FlushGarbage(epoch)
	var err error
	for now := epoch; now.Before(epoch.Add(2 * cfg.Timeout)); now = now.Add(cfg.ResendInterval) {
		host.Outgoing()
		// Keep the peer audible so only the missing ack can time out.
		join.SendDelta(Delta{})
		for _, d := range join.Outgoing() {
			_ = host.Receive(d, now)
		}
		if err = host.Update(now); err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrProtocolTimeout)
}

func TestClose(t *testing.T) {
	host, _ := syncedPair(t, epoch)
	host.QueueGarbage(2, 0)
	host.Close()
	assert.Equal(t, StateDisconnected, host.State())
	assert.NoError(t, host.Err())
	assert.ErrorIs(t, host.Receive(Marshal(Header{}, Ack{}), epoch), ErrClosed)
	assert.Equal(t, 0, host.FlushGarbage(epoch))
}

func TestCheckDelta(t *testing.T) {
	seq := bag.NewSequence(42)
	tail := seq.At(6)

	assert.NoError(t, CheckDelta(Delta{Tick: 10, Draws: 7, TailShape: uint8(tail)}, 12, 30, seq))
	assert.NoError(t, CheckDelta(Delta{Tick: 10}, 40, 30, seq))

	wrong := uint8((tail + 1) % bag.NumShapes)
	assert.ErrorIs(t, CheckDelta(Delta{Tick: 10, Draws: 7, TailShape: wrong}, 10, 30, seq), ErrDesync)
	assert.ErrorIs(t, CheckDelta(Delta{Tick: 100}, 10, 30, seq), ErrDesync)
	assert.ErrorIs(t, CheckDelta(Delta{Tick: 10}, 100, 30, seq), ErrDesync)
	assert.ErrorIs(t, CheckDelta(Delta{Tick: 10, Draws: 1 << 30}, 10, 30, seq), ErrDesync)
}

func TestPollFlagsDesync(t *testing.T) {
	host, join := syncedPair(t, epoch)
	host.SendDelta(Delta{Tick: 500})
	for _, d := range host.Outgoing() {
		require.NoError(t, join.Receive(d, epoch))
	}
	in := join.Poll(0)
	assert.ErrorIs(t, in.Desync, ErrDesync)
	assert.ErrorIs(t, join.Desync(), ErrDesync)
}
