package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/collmock/pkg/routetable"
)

// StubExt is the reserved extension of generated endpoint stubs. Only files
// with this extension are removed when the endpoints directory is wiped.
const StubExt = ".endpoint.yaml"

// Stub is one generated endpoint. The server mounts Path and delegates every
// request on it to the resolver bound to Collection.
type Stub struct {
	Route      routetable.Route `yaml:"route"`
	Collection string           `yaml:"collection"`
	Path       string           `yaml:"path"`
	Methods    []string         `yaml:"methods,flow"`
}

// Name returns the file-safe name of the stub.
func (s Stub) Name() string {
	return s.Route.FileName()
}

// FileName returns the stub's file name inside the endpoints directory.
func (s Stub) FileName() string {
	return s.Name() + StubExt
}

// MountPath joins a mount prefix and a route into a request path.
func MountPath(mount string, route routetable.Route) string {
	return NormalizeMount(mount) + "/" + string(route)
}

// NormalizeMount returns prefix with a leading slash and no trailing slash.
// The empty prefix and "/" normalize to "".
func NormalizeMount(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

// EncodeStub serializes a stub.
func EncodeStub(s Stub) ([]byte, error) {
	return yaml.Marshal(s)
}

// LoadStubs reads every stub in dir, sorted by name.
func LoadStubs(dir string) ([]Stub, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stubs []Stub
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), StubExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var s Stub
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("stub %s: %w", e.Name(), err)
		}
		stubs = append(stubs, s)
	}
	sort.Slice(stubs, func(i, j int) bool { return stubs[i].Name() < stubs[j].Name() })
	return stubs, nil
}
