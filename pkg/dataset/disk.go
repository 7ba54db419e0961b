package dataset

import (
	"log/slog"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/getmockd/collmock/pkg/logging"
	"github.com/getmockd/collmock/pkg/routetable"
)

// DefaultCacheSize is the number of decoded records a DiskSource keeps.
const DefaultCacheSize = 128

type cachedRecord struct {
	modTime time.Time
	size    int64
	table   routetable.Table
}

// DiskSource reads records from the data directory on every lookup. Decoded
// records are cached until the file's modification time or size changes.
//
// A lookup that races with a pass may miss a record that is being rewritten;
// callers see that as not found.
type DiskSource struct {
	Dir    string
	Logger *slog.Logger

	cache *lru.Cache[string, cachedRecord]
}

// NewDiskSource creates a source reading records from dir.
func NewDiskSource(dir string, size int) (*DiskSource, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedRecord](size)
	if err != nil {
		return nil, err
	}
	return &DiskSource{Dir: dir, cache: cache}, nil
}

// Record loads the table of a collection.
func (d *DiskSource) Record(collectionID string) (routetable.Table, bool) {
	path := RecordPath(d.Dir, collectionID)
	info, err := os.Stat(path)
	if err != nil {
		d.cache.Remove(collectionID)
		return nil, false
	}

	if c, ok := d.cache.Get(collectionID); ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.table, true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		d.cache.Remove(collectionID)
		return nil, false
	}
	table, err := DecodeRecord(data)
	if err != nil {
		logging.OrNop(d.Logger).Warn("unreadable dataset record", "collection", collectionID, "error", err)
		d.cache.Remove(collectionID)
		return nil, false
	}

	d.cache.Add(collectionID, cachedRecord{modTime: info.ModTime(), size: info.Size(), table: table})
	return table, true
}

// Purge drops every cached record.
func (d *DiskSource) Purge() {
	d.cache.Purge()
}

// Len returns the number of cached records.
func (d *DiskSource) Len() int {
	return d.cache.Len()
}
