package app

import (
	"errors"
	"sync"
	"time"
)

// DefaultTickCadence is how often display ticks are delivered.
const DefaultTickCadence = time.Second

var (
	errClockStarted    = errors.New("session clock already started")
	errInvalidDuration = errors.New("session clock duration must be at least one second")
)

// Scheduler arranges callbacks for a SessionClock. Callbacks must be delivered
// serially with every other call into the clock.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
	After(delay time.Duration, fn func()) (cancel func())
}

// SessionClock is the countdown of one attempt. Remaining time is always
// derived from the start instant, so late or dropped ticks cannot skew it.
type SessionClock struct {
	sched   Scheduler
	now     func() time.Time
	cadence time.Duration

	mu             sync.Mutex
	started        bool
	stopped        bool
	startedAt      time.Time
	stoppedAt      time.Time
	duration       time.Duration
	cancelTicks    func()
	cancelDeadline func()
	onTick         func(remainingSeconds int)
	onExpire       func()
}

func NewSessionClock(sched Scheduler, now func() time.Time, cadence time.Duration) *SessionClock {
	if now == nil {
		now = time.Now
	}
	if cadence <= 0 {
		cadence = DefaultTickCadence
	}
	return &SessionClock{sched: sched, now: now, cadence: cadence}
}

// Start begins the countdown. onTick is display-only; onExpire fires at most once.
func (c *SessionClock) Start(durationSeconds int, onTick func(remainingSeconds int), onExpire func()) error {
	if durationSeconds < 1 {
		return errInvalidDuration
	}
	if onTick == nil {
		onTick = func(int) {}
	}
	if onExpire == nil {
		onExpire = func() {}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return errClockStarted
	}
	c.started = true
	c.startedAt = c.now()
	c.duration = time.Duration(durationSeconds) * time.Second
	c.onTick = onTick
	c.onExpire = onExpire
	c.cancelTicks = c.sched.Every(c.cadence, c.tick)
	c.cancelDeadline = c.sched.After(c.duration, c.deadline)
	return nil
}

// Stop cancels all pending callbacks. It is safe to call repeatedly, before
// Start, and from inside the expiry callback.
func (c *SessionClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *SessionClock) stopLocked() {
	if c.stopped {
		return
	}
	c.stopped = true
	if !c.started {
		return
	}
	c.stoppedAt = c.now()
	c.cancelTicks()
	c.cancelDeadline()
}

// Elapsed is the wall-clock time since Start, frozen once the clock stops and
// capped at the configured duration.
func (c *SessionClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

// ElapsedSeconds is Elapsed truncated to whole seconds.
func (c *SessionClock) ElapsedSeconds() int {
	return int(c.Elapsed() / time.Second)
}

// RemainingSeconds is the time left rounded up, so the display shows 0 only at expiry.
func (c *SessionClock) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return 0
	}
	return ceilSeconds(c.duration - c.elapsedLocked())
}

// Stopped reports whether the clock was stopped or expired.
func (c *SessionClock) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *SessionClock) elapsedLocked() time.Duration {
	if !c.started {
		return 0
	}
	end := c.now()
	if c.stopped {
		end = c.stoppedAt
	}
	elapsed := end.Sub(c.startedAt)
	if elapsed < 0 {
		return 0
	}
	if elapsed > c.duration {
		return c.duration
	}
	return elapsed
}

func (c *SessionClock) tick() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	remaining := c.duration - c.now().Sub(c.startedAt)
	if remaining <= 0 {
		c.mu.Unlock()
		c.expire()
		return
	}
	onTick := c.onTick
	c.mu.Unlock()

	onTick(ceilSeconds(remaining))
}

func (c *SessionClock) deadline() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	// timer fired early relative to now(); re-arm for the rest
	if remaining := c.duration - c.now().Sub(c.startedAt); remaining > 0 {
		c.cancelDeadline = c.sched.After(remaining, c.deadline)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.expire()
}

func (c *SessionClock) expire() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	onExpire := c.onExpire
	c.mu.Unlock()

	onExpire()
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
