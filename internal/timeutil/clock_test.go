package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	c.Sleep(time.Millisecond)
	if got := c.Since(start); got < time.Millisecond {
		t.Errorf("Since() = %v, want >= 1ms", got)
	}
}

func TestMockClockAdvanceAndSleep(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewMockClock(base)

	if !c.Now().Equal(base) {
		t.Fatalf("Now() = %v, want %v", c.Now(), base)
	}

	c.Advance(2 * time.Second)
	if got := c.Since(base); got != 2*time.Second {
		t.Errorf("Since() = %v, want 2s", got)
	}

	c.Sleep(500 * time.Millisecond)
	c.Sleep(250 * time.Millisecond)
	if got := c.Since(base); got != 2750*time.Millisecond {
		t.Errorf("Since() after sleeps = %v, want 2.75s", got)
	}
	if sleeps := c.Sleeps(); len(sleeps) != 2 || sleeps[0] != 500*time.Millisecond {
		t.Errorf("Sleeps() = %v", sleeps)
	}

	later := base.Add(time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Set() did not move the clock")
	}
}

func TestSteppingClock(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	c := NewSteppingClock(base, 100*time.Millisecond)

	first := c.Now()
	second := c.Now()
	if !first.Equal(base) {
		t.Errorf("first Now() = %v, want %v", first, base)
	}
	if second.Sub(first) != 100*time.Millisecond {
		t.Errorf("step = %v, want 100ms", second.Sub(first))
	}
}
