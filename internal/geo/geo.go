package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/venuemap/explorer/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Map coordinates arrive as WGS84 (EPSG:4326). Anything that needs distances
// in screen space (zoom fitting) is projected to web mercator (EPSG:3857) first.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// CoordinateFromString parses a "lat,lng" string into a core.Coordinate.
func CoordinateFromString(coords string) (core.Coordinate, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	if err := Validate(core.Coordinate{Lat: lat, Lng: lng}); err != nil {
		return core.Coordinate{}, err
	}
	return core.Coordinate{Lat: lat, Lng: lng}, nil
}

// Validate reports whether c lies inside the WGS84 range.
func Validate(c core.Coordinate) error {
	if !finite(c.Lat) || !finite(c.Lng) {
		return ErrInvalidCoordinates
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToXY converts a coordinate to a lon/lat XY (x = longitude).
func ToXY(c core.Coordinate) geom.XY {
	return geom.XY{X: c.Lng, Y: c.Lat}
}

// FromXY is the inverse of ToXY.
func FromXY(xy geom.XY) core.Coordinate {
	return core.Coordinate{Lat: xy.Y, Lng: xy.X}
}

// Mercator projects a WGS84 coordinate to EPSG:3857 meters.
func Mercator(c core.Coordinate) geom.XY {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(c.Lng, c.Lat, 0)
	return geom.XY{X: x, Y: y}
}
