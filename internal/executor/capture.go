package executor

import (
	"bytes"
	"sync"
)

// outputBudget is the combined byte allowance shared by a run's stdout
// and stderr captures. Both stream writers may run concurrently, so the
// budget is mutex-protected.
type outputBudget struct {
	mu        sync.Mutex
	remaining int
}

// capture buffers one stream up to the shared budget. Once the budget is
// exhausted the stream is marked truncated and further writes are
// swallowed without error, letting the process keep running.
type capture struct {
	budget    *outputBudget
	buf       bytes.Buffer
	truncated bool
}

// newCapturePair creates stdout and stderr captures sharing one budget.
func newCapturePair(maxBytes int) (*capture, *capture) {
	budget := &outputBudget{remaining: maxBytes}
	return &capture{budget: budget}, &capture{budget: budget}
}

// Write implements io.Writer. It never returns an error: a full buffer
// must not break the child's pipes.
func (c *capture) Write(p []byte) (int, error) {
	c.budget.mu.Lock()
	defer c.budget.mu.Unlock()

	if c.budget.remaining <= 0 {
		if len(p) > 0 {
			c.truncated = true
		}
		return len(p), nil
	}

	n := len(p)
	if n > c.budget.remaining {
		n = c.budget.remaining
		c.truncated = true
	}
	c.buf.Write(p[:n])
	c.budget.remaining -= n
	return len(p), nil
}

// String returns the captured bytes.
func (c *capture) String() string {
	c.budget.mu.Lock()
	defer c.budget.mu.Unlock()
	return c.buf.String()
}

// Truncated reports whether any bytes were dropped.
func (c *capture) Truncated() bool {
	c.budget.mu.Lock()
	defer c.budget.mu.Unlock()
	return c.truncated
}
