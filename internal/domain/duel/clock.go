package duel

import (
	"sync"
	"time"
)

// Clock produces the one-second tick sequence for a running round.
// Implementations deliver ticks until stopped; Stop is idempotent and no
// tick may be delivered after Stop returns.
type Clock interface {
	// Start begins delivering ticks to fn, one per interval.
	// Calling Start more than once is a no-op.
	Start(fn func())
	// Stop halts tick delivery. Safe to call any number of times.
	Stop()
}

// tickerClock implements Clock on a time.Ticker. Stop may be invoked from
// inside a tick callback (settlement stops the clock), so it signals the tick
// goroutine without waiting for it; the match ignores any tick that races in
// after teardown.
type tickerClock struct {
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
}

// NewTickerClock returns a Clock ticking once per interval of wall time.
func NewTickerClock(interval time.Duration) Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &tickerClock{
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (c *tickerClock) Start(fn func()) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		t := time.NewTicker(c.interval)
		defer t.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-t.C:
				select {
				case <-c.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
}

func (c *tickerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
}

// ManualClock is a Clock driven explicitly by tests and simulations.
type ManualClock struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

// NewManualClock returns a Clock whose ticks are produced by calling Tick.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Start records the tick target.
func (c *ManualClock) Start(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fn == nil && !c.stopped {
		c.fn = fn
	}
}

// Stop discards the tick target.
func (c *ManualClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.fn = nil
}

// Tick delivers one tick if the clock was started and not stopped.
func (c *ManualClock) Tick() {
	c.mu.Lock()
	fn := c.fn
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Running reports whether the clock has a live tick target.
func (c *ManualClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fn != nil
}
