package marker

import (
	"fmt"
	"strconv"

	"github.com/venuemap/explorer/internal/viewport"
	"github.com/venuemap/explorer/pkg/core"
)

const (
	// Unknown replaces missing phone and address fields.
	Unknown = "Unknown"
	// NoImagery is shown in place of the panorama when none is available.
	NoImagery = "Street View data not found for this location."
	// NoRatings is shown when the venue has no rating.
	NoRatings = "No Ratings"
)

// Info content heights per presentation.
const (
	heightInlineImagery = "360px"
	heightInline        = "200px"
	heightModal         = "100%"
)

// text holds the display strings derived once from the venue.
type text struct {
	markerID string
	panoID   string
	title    string
	rating   string
	address  []string
	phone    string
}

func deriveText(id int64, v core.Venue) text {
	rating := NoRatings
	if v.Rating != nil {
		rating = "Rating: " + strconv.FormatFloat(*v.Rating, 'f', -1, 64)
	}
	return text{
		markerID: fmt.Sprintf("marker-%d", id),
		panoID:   fmt.Sprintf("pano-%d", id),
		title:    v.Name,
		rating:   rating,
		address: []string{
			orUnknown(v.Address.Street),
			orUnknown(v.Address.City),
			orUnknown(v.Address.Region),
		},
		phone: orUnknown(v.Phone),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// Content builds the info record for the given presentation, including the
// imagery reference when one is attached.
func (m *Marker) Content(mode viewport.Mode) core.InfoContent {
	return m.content(mode, true)
}

func (m *Marker) content(mode viewport.Mode, withImagery bool) core.InfoContent {
	c := core.InfoContent{
		MarkerID:    m.text.markerID,
		PanoID:      m.text.panoID,
		Title:       m.text.title,
		Website:     m.venue.Website,
		MoreInfoURL: m.venue.CanonicalURL,
		Rating:      m.text.rating,
		Address:     append([]string(nil), m.text.address...),
		Phone:       m.text.phone,
	}
	if withImagery && m.imagery != nil {
		ref := *m.imagery
		c.Imagery = &ref
	} else {
		c.Placeholder = NoImagery
	}

	switch {
	case mode == viewport.Modal:
		c.Height = heightModal
	case c.Imagery != nil:
		c.Height = heightInlineImagery
	default:
		c.Height = heightInline
	}
	return c
}
