package dataset

import (
	"sync/atomic"
	"time"

	"github.com/getmockd/collmock/pkg/routetable"
)

// Snapshot is the immutable result of one successful pass.
type Snapshot struct {
	PassID      string
	GeneratedAt time.Time
	Tables      map[string]routetable.Table
	Stubs       []Stub
}

// Record returns the table of a collection.
func (s *Snapshot) Record(collectionID string) (routetable.Table, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.Tables[collectionID]
	return t, ok
}

// Store holds the current snapshot. A single writer publishes new snapshots;
// any number of readers may call Current or Record concurrently.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{Tables: map[string]routetable.Table{}})
	return s
}

// Publish replaces the current snapshot.
func (s *Store) Publish(snap *Snapshot) {
	s.current.Store(snap)
}

// Current returns the current snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Record returns the table of a collection from the current snapshot.
func (s *Store) Record(collectionID string) (routetable.Table, bool) {
	return s.Current().Record(collectionID)
}
