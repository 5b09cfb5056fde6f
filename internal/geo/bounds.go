package geo

import (
	"fmt"
	"math"

	"github.com/venuemap/explorer/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Bounds accumulates coordinates into a lon/lat envelope. The zero value is
// empty and ready to use.
type Bounds struct {
	env   geom.Envelope
	count int
}

// NewBounds returns bounds covering the given coordinates. Coordinates that
// Extend rejects are skipped.
func NewBounds(coords ...core.Coordinate) Bounds {
	var b Bounds
	for _, c := range coords {
		if next, err := b.Extend(c); err == nil {
			b = next
		}
	}
	return b
}

// Extend returns b grown to include c. A NaN or infinite coordinate yields
// ErrInvalidCoordinates and b unchanged.
func (b Bounds) Extend(c core.Coordinate) (Bounds, error) {
	env, err := b.env.ExtendToIncludeXY(ToXY(c))
	if err != nil {
		return b, fmt.Errorf("extend bounds with %v,%v: %w", c.Lat, c.Lng, ErrInvalidCoordinates)
	}
	return Bounds{env: env, count: b.count + 1}, nil
}

// IsEmpty reports whether no coordinate has been added.
func (b Bounds) IsEmpty() bool {
	return b.env.IsEmpty()
}

// Count is the number of coordinates folded into b.
func (b Bounds) Count() int {
	return b.count
}

// SouthWest and NorthEast corners. Both are zero for empty bounds.
func (b Bounds) SouthWest() core.Coordinate {
	lo, _, ok := b.env.MinMaxXYs()
	if !ok {
		return core.Coordinate{}
	}
	return FromXY(lo)
}

// NorthEast corner of the bounds.
func (b Bounds) NorthEast() core.Coordinate {
	_, hi, ok := b.env.MinMaxXYs()
	if !ok {
		return core.Coordinate{}
	}
	return FromXY(hi)
}

// Center returns the midpoint of the envelope.
func (b Bounds) Center() (core.Coordinate, bool) {
	lo, hi, ok := b.env.MinMaxXYs()
	if !ok {
		return core.Coordinate{}, false
	}
	return core.Coordinate{Lat: (lo.Y + hi.Y) / 2, Lng: (lo.X + hi.X) / 2}, true
}

// Contains reports whether c lies inside (or on the edge of) b.
func (b Bounds) Contains(c core.Coordinate) bool {
	lo, hi, ok := b.env.MinMaxXYs()
	if !ok {
		return false
	}
	return c.Lng >= lo.X && c.Lng <= hi.X && c.Lat >= lo.Y && c.Lat <= hi.Y
}

const (
	tileSize    = 256.0
	worldMeters = 2 * math.Pi * 6378137
	// MaxZoom is used when the bounds collapse to a single point.
	MaxZoom = 17
)

// FitZoom returns the largest integer zoom level at which b fits inside a
// viewport of widthPx x heightPx, using web mercator tile math.
func FitZoom(b Bounds, widthPx, heightPx int) int {
	if b.IsEmpty() || widthPx <= 0 || heightPx <= 0 {
		return 0
	}
	sw := Mercator(b.SouthWest())
	ne := Mercator(b.NorthEast())
	dx := math.Abs(ne.X - sw.X)
	dy := math.Abs(ne.Y - sw.Y)
	if dx == 0 && dy == 0 {
		return MaxZoom
	}

	zoom := float64(MaxZoom)
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(float64(widthPx)*worldMeters/(tileSize*dx)))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(float64(heightPx)*worldMeters/(tileSize*dy)))
	}
	if zoom < 0 {
		return 0
	}
	return int(math.Floor(zoom))
}
