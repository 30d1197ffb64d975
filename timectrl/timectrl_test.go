package timectrl

import (
	"testing"
	"time"
)

func TestSystemClockReportsUTC(t *testing.T) {
	now := SystemClock{}.Now()
	if now.Location() != time.UTC {
		t.Errorf("Now() in %v, want UTC", now.Location())
	}
	if d := time.Since(now); d < 0 || d > time.Minute {
		t.Errorf("Now() = %v, not close to wall time", now)
	}
}

func TestScaledClockAdvancesAtScale(t *testing.T) {
	epoch := time.Date(2024, 8, 6, 0, 0, 0, 0, time.UTC)
	c := NewScaledClock(epoch, 60)

	cases := []struct {
		wall time.Duration
		want time.Duration
	}{
		{0, 0},
		{time.Second, time.Minute},
		{10 * time.Second, 10 * time.Minute},
	}
	for _, tc := range cases {
		got := c.at(c.started.Add(tc.wall))
		if want := epoch.Add(tc.want); !got.Equal(want) {
			t.Errorf("at(start+%v) = %v, want %v", tc.wall, got, want)
		}
	}
}

func TestScaledClockRunsBackwards(t *testing.T) {
	epoch := time.Date(2024, 8, 6, 12, 0, 0, 0, time.UTC)
	c := NewScaledClock(epoch, -1)

	got := c.at(c.started.Add(30 * time.Second))
	if want := epoch.Add(-30 * time.Second); !got.Equal(want) {
		t.Errorf("at(start+30s) = %v, want %v", got, want)
	}
}

func TestScaledClockStartsAtEpoch(t *testing.T) {
	epoch := time.Date(2024, 8, 6, 0, 0, 0, 0, time.UTC)
	c := NewScaledClock(epoch, 1000)

	// Within the first wall millisecond the timeline is still within a
	// second of the epoch at scale 1000.
	if d := c.Now().Sub(epoch); d < 0 || d > 10*time.Second {
		t.Errorf("Now() drifted %v from the epoch immediately after creation", d)
	}
	if c.Epoch() != epoch || c.Scale() != 1000 {
		t.Errorf("accessors = (%v, %v), want the construction values", c.Epoch(), c.Scale())
	}
}
