// Package gormstorage implements the venue cache on a GORM database.
// The same backend serves sqlite and postgres; the database package picks
// the dialect.
package gormstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/venuemap/explorer/internal/database"
	"github.com/venuemap/explorer/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VenueRecord is one cached venue row.
type VenueRecord struct {
	ID        string         `gorm:"primaryKey;size:64"`
	Name      string         `gorm:"size:256"`
	Latitude  float64
	Longitude float64
	Payload   datatypes.JSON `gorm:"not null"`
	StoredAt  time.Time      `gorm:"index"`
}

// TableName overrides the default pluralized name.
func (VenueRecord) TableName() string {
	return "venue_cache"
}

// Backend stores venues through a database.Manager.
type Backend struct {
	db  *database.Manager
	ttl time.Duration
	now func() time.Time
}

// New creates a backend over a connected manager. A zero ttl keeps records
// forever.
func New(m *database.Manager, ttl time.Duration) *Backend {
	return &Backend{db: m, ttl: ttl, now: time.Now}
}

// Init migrates the cache table.
func (b *Backend) Init() error {
	return b.db.Migrate(&VenueRecord{})
}

// Close closes the database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

// GetVenue returns a live record.
func (b *Backend) GetVenue(ctx context.Context, id string) (core.Venue, bool, error) {
	var rec VenueRecord
	err := b.db.DB.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Venue{}, false, nil
	}
	if err != nil {
		return core.Venue{}, false, fmt.Errorf("reading venue %s: %w", id, err)
	}
	if b.ttl > 0 && b.now().Sub(rec.StoredAt) >= b.ttl {
		return core.Venue{}, false, nil
	}

	var v core.Venue
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return core.Venue{}, false, fmt.Errorf("decoding venue %s: %w", id, err)
	}
	return v, true, nil
}

// PutVenue upserts a record.
func (b *Backend) PutVenue(ctx context.Context, v core.Venue) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding venue %s: %w", v.ID, err)
	}
	rec := VenueRecord{
		ID:        v.ID,
		Name:      v.Name,
		Latitude:  v.Location.Lat,
		Longitude: v.Location.Lng,
		Payload:   datatypes.JSON(payload),
		StoredAt:  b.now(),
	}
	err = b.db.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("writing venue %s: %w", v.ID, err)
	}
	return nil
}

// Purge deletes expired rows.
func (b *Backend) Purge(ctx context.Context) (int, error) {
	if b.ttl <= 0 {
		return 0, nil
	}
	res := b.db.DB.WithContext(ctx).
		Where("stored_at <= ?", b.now().Add(-b.ttl)).
		Delete(&VenueRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging venue cache: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
