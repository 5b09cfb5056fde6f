package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/venuemap/explorer/pkg/core"
)

func TestCoordinateFromString_Valid(t *testing.T) {
	c, err := CoordinateFromString("30.433723460,-91.12495604")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 30.433723460 {
		t.Errorf("expected Lat=30.433723460, got %f", c.Lat)
	}
	if c.Lng != -91.12495604 {
		t.Errorf("expected Lng=-91.12495604, got %f", c.Lng)
	}
}

func TestCoordinateFromString_Spaces(t *testing.T) {
	c, err := CoordinateFromString(" 10.5 , 20.25 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 10.5 || c.Lng != 20.25 {
		t.Errorf("expected 10.5,20.25, got %f,%f", c.Lat, c.Lng)
	}
}

func TestCoordinateFromString_Invalid(t *testing.T) {
	tests := []string{"", "10", "a,b", "10,b", "1,2,3", "91,0", "0,181", "NaN,10", "10,+Inf"}
	for _, in := range tests {
		_, err := CoordinateFromString(in)
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("%q: expected ErrInvalidCoordinates, got %v", in, err)
		}
	}
}

func TestMercator_Origin(t *testing.T) {
	xy := Mercator(core.Coordinate{})
	if math.Abs(xy.X) > 1e-6 || math.Abs(xy.Y) > 1e-6 {
		t.Errorf("expected origin, got %v", xy)
	}
}

func TestMercator_Antimeridian(t *testing.T) {
	xy := Mercator(core.Coordinate{Lat: 0, Lng: 180})
	if math.Abs(xy.X-worldMeters/2) > 1 {
		t.Errorf("expected x=%f, got %f", worldMeters/2, xy.X)
	}
}
