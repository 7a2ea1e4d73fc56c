package playback

import "time"

// clock maps wall-clock elapsed time onto the virtual playback timeline.
// Pausing freezes virtual time; the accumulated pause total is subtracted
// after resume, so the timeline continues without a jump and resumed playback
// never "catches up" by skipping frames.
type clock struct {
	now        func() time.Time
	start      time.Time
	offset     time.Duration // virtual time at start, rebased by seeks
	pauseTotal time.Duration
	pausedAt   time.Time
	paused     bool
}

func newClock(now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now}
}

// Reset restarts the timeline at virtual time 0.
func (c *clock) Reset() {
	c.start = c.now()
	c.offset = 0
	c.pauseTotal = 0
	c.paused = false
}

// Virtual returns the current virtual playback time.
func (c *clock) Virtual() time.Duration {
	if c.paused {
		return c.offset + c.pausedAt.Sub(c.start) - c.pauseTotal
	}
	return c.offset + c.now().Sub(c.start) - c.pauseTotal
}

// Pause freezes virtual time at the current instant.
func (c *clock) Pause() {
	if c.paused {
		return
	}
	c.pausedAt = c.now()
	c.paused = true
}

// Resume unfreezes virtual time, accumulating the paused span.
func (c *clock) Resume() {
	if !c.paused {
		return
	}
	c.pauseTotal += c.now().Sub(c.pausedAt)
	c.paused = false
}

// SetVirtual rebases the timeline so Virtual() equals v at the current
// instant. Pause state is preserved.
func (c *clock) SetVirtual(v time.Duration) {
	c.start = c.now()
	c.offset = v
	c.pauseTotal = 0
	if c.paused {
		c.pausedAt = c.start
	}
}
