// Package control carries the state shared between the export worker and
// whatever displays its progress: a cancellation flag, progress counters and
// a queue of user-facing notices.
package control

import (
	"context"
	"sync"
	"sync/atomic"
)

// Notice is a user-facing message raised by the worker. The worker never shows
// notices itself, the display side drains and shows them.
type Notice struct {
	Card    string // empty for deck level notices
	Message string
	Err     error
}

func (n Notice) String() string {
	s := n.Message
	if n.Card != "" {
		s = n.Card + ": " + s
	}
	if n.Err != nil {
		s += ": " + n.Err.Error()
	}
	return s
}

// Control is safe for concurrent use by one writer (the worker) and any number
// of pollers.
type Control struct {
	cancelled atomic.Bool
	current   atomic.Int64
	maximum   atomic.Int64

	mu      sync.Mutex
	status  string
	notices []Notice
}

func New() *Control {
	return &Control{}
}

// Cancel requests cooperative cancellation.
func (c *Control) Cancel() {
	c.cancelled.Store(true)
}

func (c *Control) Cancelled() bool {
	return c.cancelled.Load()
}

// Watch cancels c once ctx is done. The returned function stops watching.
func (c *Control) Watch(ctx context.Context) (stop func() bool) {
	if ctx.Err() != nil {
		// AfterFunc would cancel from another goroutine
		c.Cancel()
	}
	return context.AfterFunc(ctx, c.Cancel)
}

func (c *Control) SetMaximum(n int) {
	c.maximum.Store(int64(n))
}

// SetCurrent updates current progress. Progress is advisory, values are never
// read back by the engine.
func (c *Control) SetCurrent(n int) {
	c.current.Store(int64(n))
}

func (c *Control) Progress() (current, maximum int) {
	return int(c.current.Load()), int(c.maximum.Load())
}

func (c *Control) SetStatus(s string) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Control) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Notify queues a notice for the display side.
func (c *Control) Notify(n Notice) {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
}

// Drain returns and clears all queued notices.
func (c *Control) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}
