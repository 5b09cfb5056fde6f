// pkg/core/render.go
package core

// VisualState is the icon state of a map pin.
type VisualState int

const (
	// VisualInactive is the default state.
	VisualInactive VisualState = iota
	// VisualHover is shown while the pointer is over a closed marker.
	VisualHover
	// VisualActive is shown while the marker's info content is open.
	VisualActive
	// VisualActiveCloseable is an open marker under the pointer ("click to close").
	VisualActiveCloseable
)

// DeriveVisualState is the only place a pin icon state is computed.
func DeriveVisualState(hovered, infoOpen bool) VisualState {
	switch {
	case infoOpen && hovered:
		return VisualActiveCloseable
	case infoOpen:
		return VisualActive
	case hovered:
		return VisualHover
	default:
		return VisualInactive
	}
}

// String returns the wire name of the state.
func (s VisualState) String() string {
	switch s {
	case VisualHover:
		return "hover"
	case VisualActive:
		return "active"
	case VisualActiveCloseable:
		return "active_closeable"
	default:
		return "inactive"
	}
}

// InfoContent is the structured record a renderer turns into an info
// window or modal body.
type InfoContent struct {
	MarkerID    string      `json:"markerId"`
	PanoID      string      `json:"panoId"`
	Title       string      `json:"title"`
	Website     string      `json:"website"`
	MoreInfoURL string      `json:"moreInfoUrl"`
	Rating      string      `json:"rating"`
	Address     []string    `json:"address"`
	Phone       string      `json:"phone"`
	Imagery     *ImageryRef `json:"imagery,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Height      string      `json:"height"`
}
