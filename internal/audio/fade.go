package audio

import "time"

// Crossfade ramps volume from an outgoing sink to an incoming one over a
// fixed duration (spec §4.3's crossfade algorithm). Pausing freezes the
// ratio in place; resuming picks back up from where it left off.
type Crossfade struct {
	from, to Sink
	start    time.Time
	duration time.Duration
	now      func() time.Time

	pausedAt    *time.Time
	pausedTotal time.Duration
}

// NewCrossfade starts a fade from from to to over durationMs (clamped to at
// least 1ms to avoid a divide-by-zero ratio).
func NewCrossfade(from, to Sink, durationMs int64) *Crossfade {
	if durationMs < 1 {
		durationMs = 1
	}
	return &Crossfade{
		from:     from,
		to:       to,
		start:    time.Now(),
		duration: time.Duration(durationMs) * time.Millisecond,
		now:      time.Now,
	}
}

// Pause freezes the fade's ratio at the current instant.
func (c *Crossfade) Pause() {
	if c.pausedAt == nil {
		now := c.now()
		c.pausedAt = &now
	}
}

// Resume un-freezes the fade, crediting the paused interval so the ratio
// continues from where it was.
func (c *Crossfade) Resume() {
	if c.pausedAt != nil {
		c.pausedTotal += c.now().Sub(*c.pausedAt)
		c.pausedAt = nil
	}
}

func (c *Crossfade) PauseSinks() {
	c.from.Pause()
	c.to.Pause()
}

func (c *Crossfade) ResumeSinks() {
	c.from.Play()
	c.to.Play()
}

// Apply advances the fade against baseVolume and applies the resulting
// volumes to both sinks. It returns true once the fade has completed, at
// which point it has already stopped the outgoing sink.
func (c *Crossfade) Apply(baseVolume float64) bool {
	now := c.now()
	if c.pausedAt != nil {
		now = *c.pausedAt
	}
	elapsed := now.Sub(c.start) - c.pausedTotal
	if elapsed < 0 {
		elapsed = 0
	}

	t := float64(elapsed) / float64(c.duration)
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}

	c.from.SetVolume(baseVolume * (1 - t))
	c.to.SetVolume(baseVolume * t)

	if t >= 1 {
		c.from.Stop()
		return true
	}
	return false
}

// Stop cuts the fade short, immediately silencing the outgoing sink. The
// incoming sink is left untouched since it is (or is becoming) the current
// sink regardless of how the fade ends.
func (c *Crossfade) Stop() {
	c.from.Stop()
}
