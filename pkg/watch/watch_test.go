package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/collmock/pkg/logging"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func runCoordinator(t *testing.T, c *Coordinator) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("coordinator did not stop")
		}
	}
}

func TestCoordinator_InitialPass(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := NewCoordinator(func(context.Context) error {
		calls.Add(1)
		return nil
	})
	stop := runCoordinator(t, c)
	defer stop()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	assert.Eventually(t, func() bool { return c.State() == Idle }, waitFor, tick)
	assert.False(t, c.LastRun().IsZero())
}

func TestCoordinator_CoalescesTriggers(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	started := make(chan struct{}, 10)
	var calls atomic.Int32
	c := NewCoordinator(func(context.Context) error {
		n := calls.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-gate
		}
		return nil
	})
	stop := runCoordinator(t, c)
	defer stop()

	<-started
	assert.Equal(t, Rebuilding, c.State())
	for i := 0; i < 5; i++ {
		c.Trigger()
	}
	close(gate)

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
	assert.Never(t, func() bool { return calls.Load() > 2 }, 100*time.Millisecond, tick)
	assert.Equal(t, int64(2), c.Passes())
}

func TestCoordinator_FailedPassKeepsRunning(t *testing.T) {
	t.Parallel()

	rec, logger := logging.NewRecorder()
	boom := errors.New("disk full")
	var calls atomic.Int32
	c := NewCoordinator(func(context.Context) error {
		if calls.Add(1) == 1 {
			return boom
		}
		return nil
	}, WithLogger(logger))
	stop := runCoordinator(t, c)
	defer stop()

	assert.Eventually(t, func() bool { return calls.Load() == 1 && c.State() == Idle }, waitFor, tick)
	assert.ErrorIs(t, c.LastError(), boom)
	assert.Equal(t, 1, rec.Count(logging.LevelError))

	c.Trigger()
	assert.Eventually(t, func() bool { return calls.Load() == 2 && c.State() == Idle }, waitFor, tick)
	assert.NoError(t, c.LastError())
}

type fakeSource struct {
	ch chan Event
}

func (f *fakeSource) Watch(context.Context) (<-chan Event, error) {
	return f.ch, nil
}

type failingSource struct{}

func (failingSource) Watch(context.Context) (<-chan Event, error) {
	return nil, errors.New("no inotify")
}

func TestCoordinator_EventsTriggerRebuild(t *testing.T) {
	t.Parallel()

	src := &fakeSource{ch: make(chan Event, 1)}
	var calls atomic.Int32
	c := NewCoordinator(func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithEvents(src))
	stop := runCoordinator(t, c)
	defer stop()

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	src.ch <- Event{Path: "postman_collections/notes.txt", Op: OpCreate}
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
}

func TestCoordinator_SourceError(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(func(context.Context) error { return nil }, WithEvents(failingSource{}))
	err := c.Run(context.Background())
	assert.ErrorContains(t, err, "no inotify")
	assert.Equal(t, int64(0), c.Passes())
}

func TestState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "rebuilding", Rebuilding.String())
}

func TestDiff(t *testing.T) {
	t.Parallel()

	now := time.Now()
	before := map[string]fileState{
		"a.json": {modTime: now, size: 10},
		"b.json": {modTime: now, size: 10},
		"c.json": {modTime: now, size: 10},
	}
	after := map[string]fileState{
		"a.json": {modTime: now, size: 10},
		"b.json": {modTime: now.Add(time.Second), size: 10},
		"d.json": {modTime: now, size: 1},
	}

	assert.Equal(t, []Event{
		{Path: "b.json", Op: OpWrite},
		{Path: "c.json", Op: OpRemove},
		{Path: "d.json", Op: OpCreate},
	}, diff(before, after))
}

func collect(t *testing.T, ch <-chan Event, want Event) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "event channel closed before %v", want)
			if ev == want {
				return
			}
		case <-deadline:
			t.Fatalf("no %v event", want)
		}
	}
}

func TestPoller(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := NewPoller(dir, 10*time.Millisecond, nil).Watch(ctx)
	require.NoError(t, err)

	other := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(other, []byte("{}"), 0o644))
	collect(t, events, Event{Path: other, Op: OpCreate})

	require.NoError(t, os.WriteFile(path, []byte(`{"item":[]}`), 0o644))
	collect(t, events, Event{Path: path, Op: OpWrite})

	require.NoError(t, os.Remove(other))
	collect(t, events, Event{Path: other, Op: OpRemove})

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, waitFor, tick)
}

func TestPoller_MissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "later")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := NewPoller(dir, 10*time.Millisecond, nil).Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	collect(t, events, Event{Path: path, Op: OpCreate})
}

func TestFSNotify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := NewFSNotify(dir, nil).Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	collect(t, events, Event{Path: path, Op: OpCreate})

	require.NoError(t, os.Remove(path))
	collect(t, events, Event{Path: path, Op: OpRemove})
}

func TestFSNotify_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewFSNotify(filepath.Join(t.TempDir(), "absent"), nil).Watch(context.Background())
	assert.Error(t, err)
}
