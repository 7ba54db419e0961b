package dataset

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/getmockd/collmock/pkg/logging"
	"github.com/getmockd/collmock/pkg/routetable"
)

// Collection is the table of one source collection.
type Collection struct {
	// ID is the collection identity, used as the record name.
	ID string
	// Source is the file the collection was read from.
	Source string
	Table  routetable.Table
}

// Conflict records a stub name claimed by more than one route.
type Conflict struct {
	Name          string
	Route         routetable.Route
	PreviousRoute routetable.Route
	Previous      string
	Winner        string
}

// Manifest lists what a pass wrote.
type Manifest struct {
	Records   []string
	Stubs     []Stub
	Conflicts []Conflict
	Pruned    []string
}

// Materializer writes records and stubs.
type Materializer struct {
	DataDir      string
	EndpointsDir string
	MountPrefix  string
	Logger       *slog.Logger
}

// EnsureDirs creates the target directories if they do not exist.
func (m *Materializer) EnsureDirs() error {
	for _, dir := range []string{m.DataDir, m.EndpointsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	return nil
}

// Materialize replaces the generated artifacts with those of collections.
// Collections are processed in the given order; when two routes flatten to the
// same stub name the later one wins and the collision is logged.
// Any write error aborts the pass and is returned as a *WriteError.
func (m *Materializer) Materialize(collections []Collection) (*Manifest, error) {
	log := logging.OrNop(m.Logger)

	if err := m.EnsureDirs(); err != nil {
		return nil, err
	}
	if err := m.wipeStubs(); err != nil {
		return nil, err
	}

	manifest := &Manifest{}
	present := make(map[string]bool, len(collections))

	for _, c := range collections {
		data, err := EncodeRecord(c.Table)
		if err != nil {
			return nil, &WriteError{Op: "encode", Path: RecordPath(m.DataDir, c.ID), Err: err}
		}
		if err := writeFileAtomic(RecordPath(m.DataDir, c.ID), data); err != nil {
			return nil, err
		}
		if !present[c.ID] {
			manifest.Records = append(manifest.Records, c.ID)
		}
		present[c.ID] = true
	}

	stubs, conflicts := PlanStubs(m.MountPrefix, collections)
	for _, c := range conflicts {
		log.Warn("endpoint name already generated, replacing",
			"stub", c.Name, "route", string(c.Route),
			"previousRoute", string(c.PreviousRoute), "previousCollection", c.Previous,
			"collection", c.Winner)
	}
	manifest.Conflicts = conflicts

	for _, stub := range stubs {
		data, err := EncodeStub(stub)
		if err != nil {
			return nil, &WriteError{Op: "encode", Path: stub.FileName(), Err: err}
		}
		if err := writeFileAtomic(filepath.Join(m.EndpointsDir, stub.FileName()), data); err != nil {
			return nil, err
		}
		manifest.Stubs = append(manifest.Stubs, stub)
		log.Debug("endpoint generated", "stub", stub.Name(), "path", stub.Path, "collection", stub.Collection)
	}

	pruned, err := m.pruneRecords(present)
	if err != nil {
		return nil, err
	}
	manifest.Pruned = pruned

	return manifest, nil
}

// PlanStubs returns the stubs collections produce, in first-seen name order.
// When two routes flatten to the same stub name the later one wins and the
// collision is reported.
func PlanStubs(mount string, collections []Collection) ([]Stub, []Conflict) {
	stubs := make(map[string]Stub)
	var order []string
	var conflicts []Conflict

	for _, c := range collections {
		for _, route := range c.Table.Routes() {
			stub := Stub{
				Route:      route,
				Collection: c.ID,
				Path:       MountPath(mount, route),
				Methods:    c.Table.Methods(route),
			}
			name := stub.Name()
			if prev, ok := stubs[name]; ok {
				conflicts = append(conflicts, Conflict{
					Name:          name,
					Route:         route,
					PreviousRoute: prev.Route,
					Previous:      prev.Collection,
					Winner:        c.ID,
				})
			} else {
				order = append(order, name)
			}
			stubs[name] = stub
		}
	}

	out := make([]Stub, len(order))
	for i, name := range order {
		out[i] = stubs[name]
	}
	return out, conflicts
}

// wipeStubs removes every generated stub from the endpoints directory.
func (m *Materializer) wipeStubs() error {
	entries, err := os.ReadDir(m.EndpointsDir)
	if err != nil {
		return &WriteError{Op: "read", Path: m.EndpointsDir, Err: err}
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), StubExt) {
			continue
		}
		path := filepath.Join(m.EndpointsDir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return &WriteError{Op: "remove", Path: path, Err: err}
		}
	}
	return nil
}

// pruneRecords removes records of collections not in present.
func (m *Materializer) pruneRecords(present map[string]bool) ([]string, error) {
	ids, err := ListRecords(m.DataDir)
	if err != nil {
		return nil, &WriteError{Op: "read", Path: m.DataDir, Err: err}
	}
	var pruned []string
	for _, id := range ids {
		if present[id] {
			continue
		}
		path := RecordPath(m.DataDir, id)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, &WriteError{Op: "remove", Path: path, Err: err}
		}
		pruned = append(pruned, id)
	}
	return pruned, nil
}
