package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMockClock_Fixed(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("second Now() = %v, want %v", got, start)
	}

	clock.Advance(3 * time.Second)
	if d := clock.Since(start); d != 3*time.Second {
		t.Errorf("Since() = %v, want 3s", d)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestMockClock_Stepping(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewSteppingClock(start, 250*time.Millisecond)

	first := clock.Now()
	second := clock.Now()
	if d := second.Sub(first); d != 250*time.Millisecond {
		t.Errorf("step = %v, want 250ms", d)
	}

	// Since reads without stepping.
	if d := clock.Since(first); d != 500*time.Millisecond {
		t.Errorf("Since() = %v, want 500ms", d)
	}
	if d := clock.Since(first); d != 500*time.Millisecond {
		t.Errorf("repeated Since() = %v, want 500ms", d)
	}
}

func TestClockInterface(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = (*MockClock)(nil)
}
