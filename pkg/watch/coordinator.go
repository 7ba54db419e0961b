package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/collmock/pkg/logging"
	"github.com/getmockd/collmock/pkg/metrics"
)

// State is the coordinator's current phase.
type State int32

const (
	Idle State = iota
	Rebuilding
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rebuilding:
		return "rebuilding"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// RebuildFunc runs one full rebuild pass.
type RebuildFunc func(ctx context.Context) error

// Coordinator serializes rebuild passes.
type Coordinator struct {
	rebuild RebuildFunc
	events  EventSource
	metrics *metrics.Metrics
	log     *slog.Logger

	state   atomic.Int32
	passes  atomic.Int64
	pending chan struct{}

	mu      sync.Mutex
	lastErr error
	lastRun time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEvents sets the source whose events trigger rebuilds.
func WithEvents(src EventSource) Option {
	return func(c *Coordinator) { c.events = src }
}

// WithMetrics records watch events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator returns a coordinator running rebuild.
func NewCoordinator(rebuild RebuildFunc, opts ...Option) *Coordinator {
	c := &Coordinator{
		rebuild: rebuild,
		pending: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.OrNop(c.log)
	return c
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Passes returns the number of passes run so far, successful or not.
func (c *Coordinator) Passes() int64 {
	return c.passes.Load()
}

// LastError returns the error of the most recent pass, if it failed.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastRun returns when the most recent pass finished.
func (c *Coordinator) LastRun() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

// Trigger schedules a rebuild. It never blocks; if one is already pending
// the request is absorbed by it.
func (c *Coordinator) Trigger() {
	select {
	case c.pending <- struct{}{}:
	default:
	}
}

// Run performs an initial rebuild and then one rebuild per trigger until ctx
// is done. Failed passes are logged and do not stop the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.events != nil {
		events, err := c.events.Watch(ctx)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		go c.forward(ctx, events)
	}

	c.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.pending:
			if ctx.Err() != nil {
				return nil
			}
			c.pass(ctx)
		}
	}
}

func (c *Coordinator) forward(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.metrics.ObserveWatchEvent(string(ev.Op))
			c.log.Debug("collection change detected", "path", ev.Path, "op", string(ev.Op))
			c.Trigger()
		}
	}
}

func (c *Coordinator) pass(ctx context.Context) {
	c.state.Store(int32(Rebuilding))
	defer c.state.Store(int32(Idle))

	err := c.rebuild(ctx)
	c.passes.Add(1)

	c.mu.Lock()
	c.lastErr = err
	c.lastRun = time.Now()
	c.mu.Unlock()

	if err != nil {
		c.log.Error("rebuild pass failed, waiting for next change", "error", err)
	}
}
