// internal/nucleus/clock.go

package nucleus

import "time"

// Clock is the nucleus time base. Time is counted in nanoseconds since the
// nucleus booted and is converted to ticks of a fixed duration.
type Clock struct {
	epoch time.Time
	tick  int64 // ns per tick
}

func newClock(tickNS int64) *Clock {
	return &Clock{epoch: time.Now(), tick: tickNS}
}

// Now returns the monotonic nucleus time in nanoseconds.
func (c *Clock) Now() int64 {
	return int64(time.Since(c.epoch))
}

// Ticks returns the current time in ticks.
func (c *Clock) Ticks() int64 {
	return c.Now() / c.tick
}

// TickNS returns the tick duration in nanoseconds.
func (c *Clock) TickNS() int64 { return c.tick }

// NsToTicks converts a relative duration to ticks. A positive duration never
// rounds down to 0, since a 0 tick timeout means "infinite" to the nucleus.
func (c *Clock) NsToTicks(ns int64) int64 {
	if ns <= 0 {
		return ns / c.tick
	}
	return (ns + c.tick - 1) / c.tick
}

// TicksToNs converts ticks back to nanoseconds.
func (c *Clock) TicksToNs(ticks int64) int64 {
	return ticks * c.tick
}

// NextTick returns the absolute time of the next tick boundary.
func (c *Clock) NextTick() int64 {
	return (c.Ticks() + 1) * c.tick
}
