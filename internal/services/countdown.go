package services

import (
	"sync"
	"time"
)

// Countdown is a single-owner timer handle: one state-machine instance
// creates it and invalidates it on any exit transition. After Stop
// returns true no further callback is started; a callback already in
// flight must re-check its instance's state, which the owning service
// does under its own lock.
type Countdown struct {
	ticks    int
	interval time.Duration
	onTick   func(remaining int)
	onDone   func()

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
	started bool
}

func NewCountdown(ticks int, interval time.Duration, onTick func(remaining int), onDone func()) *Countdown {
	return &Countdown{
		ticks:    ticks,
		interval: interval,
		onTick:   onTick,
		onDone:   onDone,
		stopCh:   make(chan struct{}),
	}
}

// Start begins ticking on a new goroutine. A countdown with zero or
// negative ticks completes on the first interval without ticking.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run()
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	remaining := c.ticks
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			remaining--
			if remaining > 0 {
				cb := c.onTick
				c.mu.Unlock()
				if cb != nil {
					cb(remaining)
				}
				continue
			}
			// Final tick: the countdown elapsed. Mark stopped while
			// still holding the lock so a concurrent Stop loses. The
			// last feedback pulse (remaining 0) still fires, then
			// completion.
			c.stopped = true
			cb := c.onTick
			done := c.onDone
			c.mu.Unlock()
			if cb != nil && remaining == 0 {
				cb(0)
			}
			if done != nil {
				done()
			}
			return
		}
	}
}

// Stop invalidates the handle. It reports whether the countdown was
// stopped before it elapsed; a false return means onDone already ran
// (or was concurrently running) and cancellation came too late.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()
	return true
}

// Remaining ticks configured at creation.
func (c *Countdown) Ticks() int {
	return c.ticks
}
