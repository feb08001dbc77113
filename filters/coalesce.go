package filters

import (
	"sync"
	"time"
)

// Coalescer turns a burst of triggers into a single call. The first Trigger
// arms a timer for the window; further triggers inside the window ride along.
type Coalescer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

func NewCoalescer(window time.Duration, fn func()) *Coalescer {
	return &Coalescer{window: window, fn: fn}
}

func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.pending {
		return
	}
	c.pending = true
	c.timer = time.AfterFunc(c.window, c.fire)
}

// Flush runs a pending call now instead of waiting for the window.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if !c.pending || c.stopped {
		c.mu.Unlock()
		return
	}
	if c.timer != nil && !c.timer.Stop() {
		// The timer already fired and fire is about to run.
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.mu.Unlock()
	c.fn()
}

// Stop drops any pending call and ignores later triggers.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *Coalescer) fire() {
	c.mu.Lock()
	if !c.pending || c.stopped {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.mu.Unlock()
	c.fn()
}
