package beat

import (
	"errors"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		bpm    int
		window time.Duration
		ok     bool
	}{
		{"default", 120, DefaultWindow, true},
		{"zero bpm", 0, DefaultWindow, false},
		{"negative window", 120, -time.Millisecond, false},
		{"window covers the beat", 120, 250 * time.Millisecond, false},
		{"zero window", 120, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.bpm, tc.window)
			if tc.ok && err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidTempo) {
				t.Fatalf("New() error = %v, expected ErrInvalidTempo", err)
			}
		})
	}
}

func TestBeatIndex(t *testing.T) {
	c := MustNew(120, DefaultWindow) // 500ms period

	tests := []struct {
		elapsed  time.Duration
		expected int64
	}{
		{0, 0},
		{499 * time.Millisecond, 0},
		{500 * time.Millisecond, 1},
		{1750 * time.Millisecond, 3},
		{-1 * time.Millisecond, -1},
		{-500 * time.Millisecond, -1},
		{-501 * time.Millisecond, -2},
	}

	for _, tc := range tests {
		if got := c.BeatIndex(tc.elapsed); got != tc.expected {
			t.Errorf("BeatIndex(%s) = %d, expected %d", tc.elapsed, got, tc.expected)
		}
	}
}

func TestIsOnBeat(t *testing.T) {
	c := MustNew(120, DefaultWindow)

	tests := []struct {
		elapsed  time.Duration
		expected bool
	}{
		{0, true},
		{200 * time.Millisecond, true},
		{201 * time.Millisecond, false},
		{250 * time.Millisecond, false},
		{299 * time.Millisecond, false},
		{300 * time.Millisecond, true},
		{500 * time.Millisecond, true},
		{-150 * time.Millisecond, true},
		{-250 * time.Millisecond, false},
	}

	for _, tc := range tests {
		if got := c.IsOnBeat(tc.elapsed); got != tc.expected {
			t.Errorf("IsOnBeat(%s) = %v, expected %v", tc.elapsed, got, tc.expected)
		}
	}
}

func TestStampAndBoundaries(t *testing.T) {
	c := MustNew(120, DefaultWindow)

	s := c.Stamp(1100 * time.Millisecond)
	if s.Beat != 2 || !s.OnBeat {
		t.Errorf("Stamp(1100ms) = %+v, expected beat 2 on-beat", s)
	}

	if got := c.NextBoundary(1100 * time.Millisecond); got != 1500*time.Millisecond {
		t.Errorf("NextBoundary() = %s, expected 1.5s", got)
	}
	if !c.Crossed(499*time.Millisecond, 500*time.Millisecond) {
		t.Error("Crossed() should include the boundary at cur")
	}
	if c.Crossed(500*time.Millisecond, 999*time.Millisecond) {
		t.Error("Crossed() should be false within one beat")
	}
}

func TestWallClockForms(t *testing.T) {
	c := MustNew(60, 100*time.Millisecond)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Start(start)

	if got := c.BeatIndexAt(start.Add(2500 * time.Millisecond)); got != 2 {
		t.Errorf("BeatIndexAt() = %d, expected 2", got)
	}
	if !c.IsOnBeatAt(start.Add(2950 * time.Millisecond)) {
		t.Error("IsOnBeatAt() should accept 50ms before a beat")
	}
}
