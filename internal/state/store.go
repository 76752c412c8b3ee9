// Package state holds the in-memory published sensor records that the HTTP
// API and widget read from.
package state

import (
	"context"
	"sort"
	"sync"

	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

// Store keeps the latest published Record per district. Writers are the
// pipeline only; readers are the HTTP API and widget. A record, once stored,
// is treated as immutable.
type Store struct {
	mu      sync.RWMutex
	records map[string]sensor.Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]sensor.Record)}
}

// Put replaces the published record for a district.
func (s *Store) Put(record sensor.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.DistrictSlug] = record
}

// Name identifies the store as a publish sink.
func (s *Store) Name() string { return "store" }

// Publish implements pipeline.Publisher by storing the record.
func (s *Store) Publish(_ context.Context, record sensor.Record) error {
	s.Put(record)
	return nil
}

// Get returns the published record for a district slug.
func (s *Store) Get(slug string) (sensor.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[slug]
	return record, ok
}

// Snapshot returns all published records ordered by district slug.
func (s *Store) Snapshot() []sensor.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]sensor.Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].DistrictSlug < records[j].DistrictSlug
	})
	return records
}

// Len returns the number of districts with a published record.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
