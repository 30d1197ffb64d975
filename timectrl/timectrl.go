// Package timectrl supplies the clocks a tracker loop reads its
// observation instants from: the system clock for live tracking, and a
// scaled clock for replaying a past window or fast-forwarding through a
// future one.
package timectrl

import "time"

// Clock yields the instant a tick observes. Every propagation call takes
// this instant explicitly; nothing below the loop consults a clock of
// its own.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ScaledClock maps wall-clock time onto a replay timeline. It reads
// Epoch at the moment it is created and advances Scale timeline seconds
// per wall second: 1 replays in real time, 60 compresses a minute into a
// second, a negative scale runs the timeline backwards.
type ScaledClock struct {
	epoch   time.Time
	started time.Time
	scale   float64
}

// NewScaledClock anchors a replay timeline starting at epoch to the
// current wall time.
func NewScaledClock(epoch time.Time, scale float64) *ScaledClock {
	return &ScaledClock{epoch: epoch, started: time.Now(), scale: scale}
}

// Now implements Clock.
func (c *ScaledClock) Now() time.Time {
	return c.at(time.Now())
}

// Scale returns the timeline speed relative to wall time.
func (c *ScaledClock) Scale() float64 { return c.scale }

// Epoch returns the timeline instant the clock started from.
func (c *ScaledClock) Epoch() time.Time { return c.epoch }

func (c *ScaledClock) at(wall time.Time) time.Time {
	elapsed := wall.Sub(c.started)
	return c.epoch.Add(time.Duration(float64(elapsed) * c.scale))
}
