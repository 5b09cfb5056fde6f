// internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/venuemap/explorer/pkg/core"
)

// Backend is the interface all venue cache implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// GetVenue reports ok=false for missing and expired records.
	GetVenue(ctx context.Context, id string) (core.Venue, bool, error)
	PutVenue(ctx context.Context, v core.Venue) error

	// Purge removes records older than the backend TTL and returns how many
	// were removed.
	Purge(ctx context.Context) (int, error)
}

// Expired reports whether a record stored at stored is past ttl at now.
// A zero ttl never expires.
func Expired(stored, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(stored) >= ttl
}

// Nop is the backend used when caching is disabled. Every lookup misses.
type Nop struct{}

func (Nop) Init() error  { return nil }
func (Nop) Close() error { return nil }

func (Nop) GetVenue(context.Context, string) (core.Venue, bool, error) {
	return core.Venue{}, false, nil
}

func (Nop) PutVenue(context.Context, core.Venue) error { return nil }

func (Nop) Purge(context.Context) (int, error) { return 0, nil }
