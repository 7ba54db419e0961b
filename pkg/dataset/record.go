package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getmockd/collmock/pkg/routetable"
)

// RecordExt is the file extension of dataset records.
const RecordExt = ".json"

// RecordPath returns the record file of a collection in dir.
func RecordPath(dir, collectionID string) string {
	return filepath.Join(dir, collectionID+RecordExt)
}

// EncodeRecord serializes a table with sorted keys and two-space indentation.
// The output is deterministic for a given table.
func EncodeRecord(table routetable.Table) ([]byte, error) {
	if table == nil {
		table = routetable.Table{}
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRecord parses a record written by EncodeRecord. Bodies are compacted
// so they match what the builder produced.
func DecodeRecord(data []byte) (routetable.Table, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	table := make(routetable.Table, len(raw))
	for route, methods := range raw {
		for method, body := range methods {
			var buf bytes.Buffer
			if err := json.Compact(&buf, body); err != nil {
				return nil, fmt.Errorf("route %q method %s: %w", route, method, err)
			}
			table.Set(routetable.Route(route), method, buf.Bytes())
		}
	}
	return table, nil
}

// ReadRecord loads the record of a collection from dir.
func ReadRecord(dir, collectionID string) (routetable.Table, error) {
	data, err := os.ReadFile(RecordPath(dir, collectionID))
	if err != nil {
		return nil, err
	}
	return DecodeRecord(data)
}

// ListRecords returns the collection identities that have a record in dir.
func ListRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), RecordExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), RecordExt))
	}
	return ids, nil
}
