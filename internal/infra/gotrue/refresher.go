package gotrue

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Start launches the background refresh loop when auto refresh is enabled.
// The loop stops on Close or when ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	if !c.autoRefresh {
		return
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.refreshLoop(ctx, c.stop, c.done)
	c.logger.Info("session auto refresh started",
		zap.Duration("interval", c.refreshInterval),
		zap.Duration("margin", c.refreshMargin),
	)
}

// Close stops the refresh loop and waits for it to exit.
func (c *Client) Close() {
	c.lifecycleMu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.lifecycleMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Client) refreshLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			c.refreshIfDue(ctx)
		}
	}
}

// refreshIfDue refreshes the session when it expires within the refresh margin.
func (c *Client) refreshIfDue(ctx context.Context) {
	current := c.currentSession(ctx)
	if current == nil || !current.ExpiresWithin(c.now(), c.refreshMargin) {
		return
	}

	timeout := c.http.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.refreshSession(callCtx, current); err != nil {
		c.logger.Warn("background session refresh failed", zap.Error(err))
	}
}
