package replay

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roguedex/internal/battle"
	"github.com/vovakirdan/roguedex/internal/beat"
	"github.com/vovakirdan/roguedex/internal/core"
)

const testSeed = 777

// record plays a short scripted match and writes it the way a match loop does.
func record(t *testing.T, w *Writer, ticks uint64) string {
	t.Helper()
	cfg := battle.DefaultConfig()
	cfg.RouteGarbage = true
	clock := beat.MustNew(120, beat.DefaultWindow)
	b := battle.New(cfg, testSeed, clock)

	require.NoError(t, w.Start(Header{
		MatchID:   "m-1",
		Mode:      "bots",
		Seed:      testSeed,
		BPM:       clock.BPM(),
		Window:    clock.Window(),
		Battle:    cfg,
		Players:   [2]string{"dropper", "lefty"},
		StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	for b.Tick() < ticks {
		tick := b.Tick()
		var acts []battle.Action
		if tick%20 == 0 {
			acts = append(acts, b.Action(battle.ActionMoveLeft, core.Combatant2))
		}
		if tick%45 == 0 {
			acts = append(acts, b.Action(battle.ActionHardDrop, core.Combatant1))
		}
		for _, a := range acts {
			b.Submit(a)
		}
		b.AdvanceTick()
		evs := b.DrainEvents()
		if len(acts) == 0 && len(evs) == 0 {
			continue
		}
		require.NoError(t, w.RecordTick(Tick{Tick: tick, Actions: acts, Events: evs, Digest: b.DigestHex()}))
	}

	digest := b.DigestHex()
	require.NoError(t, w.Finish(End{Reason: "tick_limit", Ticks: b.Tick(), Digest: digest}))
	return digest
}

func TestRoundTripAndVerify(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	digest := record(t, w, 300)

	log, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, log.Header.Version)
	assert.Equal(t, uint64(testSeed), log.Header.Seed)
	assert.Equal(t, [2]string{"dropper", "lefty"}, log.Header.Players)
	require.NotNil(t, log.End)
	assert.Equal(t, uint64(300), log.End.Ticks)
	assert.NotEmpty(t, log.Ticks)

	rep, err := Verify(log)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), rep.Ticks)
	assert.Equal(t, digest, rep.Digest)
	assert.Positive(t, rep.Actions)
	assert.Positive(t, rep.Events)
}

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "match.jsonl.zst")
	w, err := Create(path)
	require.NoError(t, err)
	record(t, w, 60)

	log, err := Open(path)
	require.NoError(t, err)
	_, err = Verify(log)
	require.NoError(t, err)
}

func TestVerifyDetectsTampering(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	record(t, w, 200)

	log, err := Read(&buf)
	require.NoError(t, err)
	require.NotEmpty(t, log.Ticks)

	// Dropping an action leaves its recorded events unexplained.
	for i := range log.Ticks {
		if len(log.Ticks[i].Actions) > 0 {
			log.Ticks[i].Actions = nil
			break
		}
	}
	_, err = Verify(log)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestVerifyDetectsDigestMismatch(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	record(t, w, 60)

	log, err := Read(&buf)
	require.NoError(t, err)
	log.End.Digest = "00"
	_, err = Verify(log)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestWriterAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Start(Header{Seed: 1, BPM: 120, Window: beat.DefaultWindow}))
	require.NoError(t, w.Finish(End{Reason: "cancelled"}))

	assert.ErrorIs(t, w.RecordTick(Tick{}), ErrFinished)
	assert.NoError(t, w.Close())
}

func TestReadRejectsBadLogs(t *testing.T) {
	encode := func(lines ...string) *bytes.Buffer {
		var buf bytes.Buffer
		w, err := NewWriter(&buf)
		require.NoError(t, err)
		for _, l := range lines {
			_, err := w.w.WriteString(l + "\n")
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
		return &buf
	}

	tests := []struct {
		name  string
		lines []string
	}{
		{"empty", nil},
		{"not json", []string{"{"}},
		{"tick before header", []string{`{"type":"tick","tick":{"tick":0}}`}},
		{"wrong version", []string{`{"type":"header","header":{"version":9}}`}},
		{"two headers", []string{
			`{"type":"header","header":{"version":1}}`,
			`{"type":"header","header":{"version":1}}`,
		}},
		{"tick after end", []string{
			`{"type":"header","header":{"version":1}}`,
			`{"type":"end","end":{"reason":"completed"}}`,
			`{"type":"tick","tick":{"tick":3}}`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(encode(tt.lines...))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}
