// internal/storage/memory/memory.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/venuemap/explorer/pkg/core"
)

// VenueRecord is a cached venue and the time it was stored.
type VenueRecord struct {
	Venue    core.Venue
	StoredAt time.Time
}

// Backend keeps venue details in a process-local map.
type Backend struct {
	ttl    time.Duration
	now    func() time.Time
	venues map[string]VenueRecord // keyed by venue ID
	mu     sync.RWMutex
}

// New creates a new memory backend. A zero ttl keeps records forever.
func New(ttl time.Duration) *Backend {
	return &Backend{
		ttl:    ttl,
		now:    time.Now,
		venues: make(map[string]VenueRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close drops every record.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.venues = make(map[string]VenueRecord)
	return nil
}

func (b *Backend) expired(r VenueRecord) bool {
	return b.ttl > 0 && b.now().Sub(r.StoredAt) >= b.ttl
}

// GetVenue returns a live record.
func (b *Backend) GetVenue(_ context.Context, id string) (core.Venue, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.venues[id]
	if !ok || b.expired(r) {
		return core.Venue{}, false, nil
	}
	return r.Venue, true, nil
}

// PutVenue stores or replaces a record.
func (b *Backend) PutVenue(_ context.Context, v core.Venue) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.venues[v.ID] = VenueRecord{Venue: v, StoredAt: b.now()}
	return nil
}

// Purge removes expired records.
func (b *Backend) Purge(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id, r := range b.venues {
		if b.expired(r) {
			delete(b.venues, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored records, expired ones included.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.venues)
}
