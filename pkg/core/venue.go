// pkg/core/venue.go
package core

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address holds the display lines of a venue address.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Region string `json:"region"`
}

// Venue is a point-of-interest record returned by the venue search provider.
type Venue struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Address      Address    `json:"address"`
	Rating       *float64   `json:"rating,omitempty"`
	Website      string     `json:"website"`
	CanonicalURL string     `json:"canonicalUrl"`
	Location     Coordinate `json:"location"`
}

// VenueSummary is one item of an explore response. Only the reference is
// guaranteed; details are fetched separately.
type VenueSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExploreQuery is the structured form of a venue search.
type ExploreQuery struct {
	Term     string `json:"term"`
	Near     string `json:"near" validate:"required"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// ImageryRef identifies a street-level panorama near a coordinate.
type ImageryRef struct {
	PanoID   string     `json:"panoId"`
	Location Coordinate `json:"location"`
}
