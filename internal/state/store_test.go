package state

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

func record(slug string, health domain.FeedHealth) sensor.Record {
	return sensor.Record{
		DistrictSlug: slug,
		DistrictName: domain.DistrictName(slug),
		Health:       health,
	}
}

func TestStore_PutAndGet(t *testing.T) {
	s := NewStore()

	_, ok := s.Get("mallee")
	assert.False(t, ok)

	s.Put(record("mallee", domain.HealthOK))

	got, ok := s.Get("mallee")
	require.True(t, ok)
	assert.Equal(t, "Mallee", got.DistrictName)
	assert.Equal(t, domain.HealthOK, got.Health)
}

func TestStore_PutReplaces(t *testing.T) {
	s := NewStore()
	s.Put(record("mallee", domain.HealthOK))
	s.Put(record("mallee", domain.HealthDegraded))

	got, ok := s.Get("mallee")
	require.True(t, ok)
	assert.Equal(t, domain.HealthDegraded, got.Health)
	assert.Equal(t, 1, s.Len())
}

func TestStore_PublishStoresRecord(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Publish(context.Background(), record("wimmera", domain.HealthOK)))

	_, ok := s.Get("wimmera")
	assert.True(t, ok)
}

func TestStore_SnapshotSortedBySlug(t *testing.T) {
	s := NewStore()
	s.Put(record("wimmera", domain.HealthOK))
	s.Put(record("central", domain.HealthOK))
	s.Put(record("mallee", domain.HealthDegraded))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "central", snap[0].DistrictSlug)
	assert.Equal(t, "mallee", snap[1].DistrictSlug)
	assert.Equal(t, "wimmera", snap[2].DistrictSlug)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Put(record("mallee", domain.HealthOK))
		}()
		go func() {
			defer wg.Done()
			s.Get("mallee")
			s.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.Len())
}
