package app

import (
	"sync"
	"time"
)

// Ticker is a source of timing signals. Timers use the same shape and fire once.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timers creates raw timing sources. Swap it out in tests to drive a clock by hand.
type Timers interface {
	NewTicker(d time.Duration) Ticker
	NewTimer(d time.Duration) Ticker
}

// SystemTimers is backed by the time package.
type SystemTimers struct{}

func (SystemTimers) NewTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}

func (SystemTimers) NewTimer(d time.Duration) Ticker {
	return systemTimer{t: time.NewTimer(d)}
}

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

type systemTimer struct{ t *time.Timer }

func (s systemTimer) C() <-chan time.Time { return s.t.C }
func (s systemTimer) Stop()               { s.t.Stop() }

// queueScheduler turns timing signals into work items on an engine's event queue,
// so clock callbacks run on the same goroutine as user actions.
type queueScheduler struct {
	timers Timers
	post   func(func())
}

func (q queueScheduler) Every(interval time.Duration, fn func()) func() {
	return q.pump(q.timers.NewTicker(interval), fn, false)
}

func (q queueScheduler) After(delay time.Duration, fn func()) func() {
	return q.pump(q.timers.NewTimer(delay), fn, true)
}

func (q queueScheduler) pump(src Ticker, fn func(), once bool) func() {
	stop := make(chan struct{})
	go func() {
		defer src.Stop()
		for {
			select {
			case <-src.C():
				q.post(fn)
				if once {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	var closeOnce sync.Once
	return func() {
		closeOnce.Do(func() { close(stop) })
	}
}
