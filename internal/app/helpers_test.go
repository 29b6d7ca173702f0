package app

import (
	"sync"
	"time"
)

// manualScheduler records scheduled callbacks; tests fire them by hand.
type manualScheduler struct {
	mu     sync.Mutex
	ticks  []*scheduled
	timers []*scheduled
}

type scheduled struct {
	fn        func()
	delay     time.Duration
	cancelled bool
	fired     bool
}

func (m *manualScheduler) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &scheduled{fn: fn, delay: interval}
	m.ticks = append(m.ticks, s)
	return m.canceller(s)
}

func (m *manualScheduler) After(delay time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &scheduled{fn: fn, delay: delay}
	m.timers = append(m.timers, s)
	return m.canceller(s)
}

func (m *manualScheduler) canceller(s *scheduled) func() {
	return func() {
		m.mu.Lock()
		s.cancelled = true
		m.mu.Unlock()
	}
}

// tick delivers one tick to every live ticker.
func (m *manualScheduler) tick() {
	for _, s := range m.live(m.ticks) {
		s.fn()
	}
}

// fireTimers delivers every live, unfired one-shot timer.
func (m *manualScheduler) fireTimers() {
	for _, s := range m.live(m.timers) {
		m.mu.Lock()
		s.fired = true
		m.mu.Unlock()
		s.fn()
	}
}

func (m *manualScheduler) live(list []*scheduled) []*scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*scheduled, 0, len(list))
	for _, s := range list {
		if !s.cancelled && !s.fired {
			out = append(out, s)
		}
	}
	return out
}

func (m *manualScheduler) lastTimer() *scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[len(m.timers)-1]
}

func (m *manualScheduler) firstTicker() *scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks[0]
}

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
