package venue

import (
	"context"
	"log/slog"

	"github.com/venuemap/explorer/pkg/core"

	"golang.org/x/sync/singleflight"
)

// Store persists venue detail records between query rounds.
type Store interface {
	GetVenue(ctx context.Context, id string) (core.Venue, bool, error)
	PutVenue(ctx context.Context, v core.Venue) error
}

// Searcher is the query surface shared by Client and CachingClient.
type Searcher interface {
	Explore(ctx context.Context, q core.ExploreQuery) ([]core.VenueSummary, error)
	VenueDetail(ctx context.Context, id string) (core.Venue, error)
}

// CachingClient serves venue details from a Store when possible and
// collapses concurrent fetches of the same id into one request.
// Explore results are never cached.
type CachingClient struct {
	inner  Searcher
	store  Store
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachingClient wraps inner with store.
func NewCachingClient(inner Searcher, store Store, logger *slog.Logger) *CachingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingClient{inner: inner, store: store, logger: logger}
}

// Explore passes through to the wrapped client.
func (c *CachingClient) Explore(ctx context.Context, q core.ExploreQuery) ([]core.VenueSummary, error) {
	return c.inner.Explore(ctx, q)
}

// VenueDetail returns the stored record or fetches and stores it.
// Store failures are logged and never fail the lookup.
func (c *CachingClient) VenueDetail(ctx context.Context, id string) (core.Venue, error) {
	v, ok, err := c.store.GetVenue(ctx, id)
	if err != nil {
		c.logger.Warn("Venue cache read failed", "id", id, "error", err)
	} else if ok {
		return v, nil
	}

	res, err, shared := c.group.Do(id, func() (any, error) {
		v, err := c.inner.VenueDetail(ctx, id)
		if err != nil {
			return core.Venue{}, err
		}
		if err := c.store.PutVenue(ctx, v); err != nil {
			c.logger.Warn("Venue cache write failed", "id", id, "error", err)
		}
		return v, nil
	})
	if shared {
		c.logger.Debug("Venue detail fetch shared", "id", id)
	}
	if err != nil {
		return core.Venue{}, err
	}
	return res.(core.Venue), nil
}
