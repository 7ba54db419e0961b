package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/getmockd/collmock/pkg/logging"
)

// FSNotify reports changes using kernel file notifications. Subdirectories
// present at start, or created later, are watched too.
type FSNotify struct {
	Dir    string
	Logger *slog.Logger
}

// NewFSNotify returns a source watching dir.
func NewFSNotify(dir string, logger *slog.Logger) *FSNotify {
	return &FSNotify{Dir: dir, Logger: logger}
}

// Watch implements EventSource.
func (f *FSNotify) Watch(ctx context.Context) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := addTree(w, f.Dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go f.loop(ctx, w, out)
	return out, nil
}

func (f *FSNotify) loop(ctx context.Context, w *fsnotify.Watcher, out chan<- Event) {
	log := logging.OrNop(f.Logger)
	defer close(out)
	defer func() { _ = w.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("file watcher error", "dir", f.Dir, "error", err)
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			op, ok := translate(ev.Op)
			if !ok {
				continue
			}
			if op == OpCreate {
				// Newly created directories need their own watch.
				if err := addTree(w, ev.Name); err != nil {
					log.Warn("cannot watch new directory", "path", ev.Name, "error", err)
				}
			}
			select {
			case out <- Event{Path: ev.Name, Op: op}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func translate(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpRemove, true
	default:
		return "", false
	}
}

// addTree watches root and every directory below it. A root that is not a
// directory is ignored.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
