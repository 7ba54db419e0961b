// Package generator runs rebuild passes: it reads every collection in the
// source directory, builds their route tables and materializes the result.
//
// A pass always starts from scratch. Collections that are not JSON or not
// Postman collections are skipped with a warning and never abort the pass;
// only artifact write failures do.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/getmockd/collmock/pkg/collection"
	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/logging"
	"github.com/getmockd/collmock/pkg/metrics"
	"github.com/getmockd/collmock/pkg/routetable"
)

// DefaultPattern selects collection files.
const DefaultPattern = "*.json"

// Skip reasons besides the collection.Kind values.
const (
	ReasonReadError         = "read_error"
	ReasonEmptyIdentity     = "empty_identity"
	ReasonDuplicateIdentity = "duplicate_identity"
)

// Skip describes a collection file left out of a pass.
type Skip struct {
	File   string
	Reason string
	Err    error
}

// ItemWarning is an item skipped inside an accepted collection.
type ItemWarning struct {
	Collection string
	routetable.Warning
}

// Result summarizes a pass.
type Result struct {
	PassID      string
	Collections []dataset.Collection
	Skipped     []Skip
	Items       []ItemWarning
	Manifest    *dataset.Manifest
	Snapshot    *dataset.Snapshot
	Duration    time.Duration
}

// Generator performs rebuild passes.
type Generator struct {
	CollectionsDir string
	Pattern        string
	Materializer   *dataset.Materializer

	// Store receives the snapshot of every successful pass. Optional.
	Store   *dataset.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Identity derives a collection identity from a file path relative to the
// collections directory: separators become "-", and the .json extension and
// a trailing .postman_collection are removed.
func Identity(rel string) string {
	name := strings.ReplaceAll(filepath.ToSlash(rel), "/", "-")
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".json") {
		name = name[:len(name)-len(ext)]
	}
	return strings.TrimSuffix(name, ".postman_collection")
}

// Load reads and builds every collection without writing anything.
func (g *Generator) Load(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{PassID: uuid.NewString()}
	log := logging.OrNop(g.Logger).With("pass", res.PassID)

	files, err := g.listFiles()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	for _, rel := range files {
		c, skip := g.loadFile(rel, log)
		if skip != nil {
			res.Skipped = append(res.Skipped, *skip)
			continue
		}

		if i, dup := index[c.ID]; dup {
			prev := res.Collections[i]
			log.Warn("collection identity already in use, replacing",
				"collection", c.ID, "file", rel, "previousFile", prev.Source)
			res.Skipped = append(res.Skipped, Skip{
				File:   prev.Source,
				Reason: ReasonDuplicateIdentity,
				Err:    fmt.Errorf("identity %q reused by %s", c.ID, rel),
			})
			res.Collections[i] = c.Collection
			res.Items = append(dropItems(res.Items, c.ID), c.items...)
			continue
		}

		index[c.ID] = len(res.Collections)
		res.Collections = append(res.Collections, c.Collection)
		res.Items = append(res.Items, c.items...)
	}

	sort.Slice(res.Collections, func(i, j int) bool { return res.Collections[i].ID < res.Collections[j].ID })
	return res, nil
}

// Rebuild runs one full pass: load, materialize, publish.
func (g *Generator) Rebuild(ctx context.Context) (*Result, error) {
	start := time.Now()

	res, err := g.Load(ctx)
	if err != nil {
		g.Metrics.ObserveRebuild(metrics.ResultFailure, time.Since(start))
		return nil, err
	}
	log := logging.OrNop(g.Logger).With("pass", res.PassID)

	manifest, err := g.Materializer.Materialize(res.Collections)
	if err != nil {
		g.Metrics.ObserveRebuild(metrics.ResultFailure, time.Since(start))
		log.Error("rebuild failed", "error", err)
		return nil, fmt.Errorf("materialize: %w", err)
	}
	res.Manifest = manifest

	res.Snapshot = newSnapshot(res, manifest.Stubs)
	if g.Store != nil {
		g.Store.Publish(res.Snapshot)
	}

	res.Duration = time.Since(start)
	g.Metrics.ObserveRebuild(metrics.ResultSuccess, res.Duration)
	g.Metrics.SetCollections(len(res.Collections), len(res.Skipped))
	g.Metrics.SetEndpoints(len(manifest.Stubs))

	log.Info("rebuild complete",
		"collections", len(res.Collections),
		"skipped", len(res.Skipped),
		"endpoints", len(manifest.Stubs),
		"duration", res.Duration)
	return res, nil
}

// Plan loads every collection and computes the endpoints a rebuild would
// produce, without writing or publishing anything.
func (g *Generator) Plan(ctx context.Context) (*Result, error) {
	res, err := g.Load(ctx)
	if err != nil {
		return nil, err
	}
	stubs, _ := dataset.PlanStubs(g.Materializer.MountPrefix, res.Collections)
	res.Snapshot = newSnapshot(res, stubs)
	return res, nil
}

func newSnapshot(res *Result, stubs []dataset.Stub) *dataset.Snapshot {
	tables := make(map[string]routetable.Table, len(res.Collections))
	for _, c := range res.Collections {
		tables[c.ID] = c.Table
	}
	return &dataset.Snapshot{
		PassID:      res.PassID,
		GeneratedAt: time.Now(),
		Tables:      tables,
		Stubs:       stubs,
	}
}

type loaded struct {
	dataset.Collection
	items []ItemWarning
}

func (g *Generator) loadFile(rel string, log *slog.Logger) (*loaded, *Skip) {
	path := filepath.Join(g.CollectionsDir, rel)

	id := Identity(rel)
	if id == "" {
		log.Warn("collection skipped", "file", rel, "reason", ReasonEmptyIdentity)
		return nil, &Skip{File: rel, Reason: ReasonEmptyIdentity}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("collection skipped", "file", rel, "reason", ReasonReadError, "error", err)
		return nil, &Skip{File: rel, Reason: ReasonReadError, Err: err}
	}

	doc, err := collection.Load(rel, data)
	if err != nil {
		reason := string(collection.KindOf(err))
		if reason == "" {
			reason = ReasonReadError
		}
		log.Warn("collection skipped", "file", rel, "reason", reason, "error", err)
		return nil, &Skip{File: rel, Reason: reason, Err: err}
	}

	table, warnings := routetable.Build(doc, log.With("collection", id))
	items := make([]ItemWarning, len(warnings))
	for i, w := range warnings {
		items[i] = ItemWarning{Collection: id, Warning: w}
	}

	return &loaded{
		Collection: dataset.Collection{ID: id, Source: rel, Table: table},
		items:      items,
	}, nil
}

// listFiles returns the collection files relative to CollectionsDir, sorted.
// The directory is created if it does not exist.
func (g *Generator) listFiles() ([]string, error) {
	if err := os.MkdirAll(g.CollectionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("collections directory: %w", err)
	}

	pattern := g.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}

	matches, err := doublestar.Glob(os.DirFS(g.CollectionsDir), pattern)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	files := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(g.CollectionsDir, m))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func dropItems(items []ItemWarning, collectionID string) []ItemWarning {
	out := items[:0]
	for _, w := range items {
		if w.Collection != collectionID {
			out = append(out, w)
		}
	}
	return out
}
