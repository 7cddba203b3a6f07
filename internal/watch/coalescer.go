package watch

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
)

// BuildFunc runs one build. Errors are logged and do not stop the watcher.
type BuildFunc func(ctx context.Context) error

// Coalescer keeps at most one build in flight. Requests that arrive while a
// build runs collapse into a single follow-up build.
type Coalescer struct {
	build    BuildFunc
	recorder metrics.Recorder

	mu      sync.Mutex
	queued  bool // wake signaled, build not yet started
	running bool
	pending bool
	wake    chan struct{}
}

// NewCoalescer returns a Coalescer for build.
func NewCoalescer(build BuildFunc, rec metrics.Recorder) *Coalescer {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Coalescer{build: build, recorder: rec, wake: make(chan struct{}, 1)}
}

// Request asks for a build. It never blocks.
func (c *Coalescer) Request() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.running:
		if c.pending {
			c.recorder.IncWatchCoalesced()
		}
		c.pending = true
	case c.queued:
		c.recorder.IncWatchCoalesced()
	default:
		c.queued = true
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// Running reports whether a build is in flight.
func (c *Coalescer) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Run serves requests until ctx is canceled. An in-flight build is allowed
// to observe the cancellation and return before Run does.
func (c *Coalescer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.wake:
		}
		for {
			c.mu.Lock()
			c.queued = false
			c.running = true
			c.mu.Unlock()

			if err := c.build(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Rebuild failed; waiting for further changes", logfields.Error(err))
			}

			c.mu.Lock()
			c.running = false
			again := c.pending
			c.pending = false
			c.mu.Unlock()

			if !again || ctx.Err() != nil {
				break
			}
			slog.Debug("Running follow-up build for changes made during the last build")
		}
	}
}
