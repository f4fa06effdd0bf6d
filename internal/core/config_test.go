package core

import (
	"testing"
	"time"
)

func TestElapsed(t *testing.T) {
	tests := []struct {
		rate     int
		tick     uint64
		expected time.Duration
	}{
		{60, 0, 0},
		{60, 1, 16666666 * time.Nanosecond},
		{60, 30, 500 * time.Millisecond},
		{60, 60, time.Second},
		{60, 119, 1983333333 * time.Nanosecond},
		{60, 120, 2 * time.Second},
		{144, 72, 500 * time.Millisecond},
		{0, 30, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		got := RuntimeConfig{TickRate: tt.rate}.Elapsed(tt.tick)
		if got != tt.expected {
			t.Errorf("Elapsed(%d) at %dHz = %v, expected %v", tt.tick, tt.rate, got, tt.expected)
		}
	}
}

func TestTickPeriod(t *testing.T) {
	if got := (RuntimeConfig{TickRate: 50}).TickPeriod(); got != 20*time.Millisecond {
		t.Errorf("TickPeriod() = %v, expected 20ms", got)
	}
	if got := (RuntimeConfig{}).TickPeriod(); got != time.Second/60 {
		t.Errorf("TickPeriod() = %v, expected the 60Hz default", got)
	}
}
