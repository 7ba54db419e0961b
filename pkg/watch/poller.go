package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/getmockd/collmock/pkg/logging"
)

// DefaultPollInterval is the scan interval used when none is set.
const DefaultPollInterval = 2 * time.Second

// Poller reports changes by comparing file modification times and sizes
// between scans.
type Poller struct {
	Dir      string
	Interval time.Duration
	Logger   *slog.Logger
}

type fileState struct {
	modTime time.Time
	size    int64
}

// NewPoller returns a poller scanning dir every interval.
func NewPoller(dir string, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{Dir: dir, Interval: interval, Logger: logger}
}

// Watch implements EventSource. The first scan is taken before Watch
// returns, so only later changes are reported.
func (p *Poller) Watch(ctx context.Context) (<-chan Event, error) {
	known, err := scan(p.Dir)
	if err != nil {
		return nil, err
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	out := make(chan Event, 16)
	go p.loop(ctx, interval, known, out)
	return out, nil
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, known map[string]fileState, out chan<- Event) {
	log := logging.OrNop(p.Logger)
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := scan(p.Dir)
			if err != nil {
				log.Warn("poll scan failed", "dir", p.Dir, "error", err)
				continue
			}
			for _, ev := range diff(known, current) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			known = current
		}
	}
}

// scan records the state of every regular file under dir. A missing
// directory scans as empty.
func scan(dir string) (map[string]fileState, error) {
	files := make(map[string]fileState)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && isNotExist(err) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if isNotExist(err) {
				return nil
			}
			return err
		}
		files[path] = fileState{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return files, nil
}

// diff returns the events turning before into after, ordered by path.
func diff(before, after map[string]fileState) []Event {
	var events []Event
	for path, st := range after {
		prev, ok := before[path]
		switch {
		case !ok:
			events = append(events, Event{Path: path, Op: OpCreate})
		case !prev.modTime.Equal(st.modTime) || prev.size != st.size:
			events = append(events, Event{Path: path, Op: OpWrite})
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			events = append(events, Event{Path: path, Op: OpRemove})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
