// Package surface declares the rendering collaborators the map controller
// drives. Implementations live in the subpackages.
package surface

import (
	"github.com/venuemap/explorer/internal/geo"
	"github.com/venuemap/explorer/pkg/core"
)

// Pin is the on-map handle of one marker.
type Pin interface {
	SetIcon(state core.VisualState)
	SetVisible(visible bool)
	SetZIndex(z int64)
	Remove()
}

// MapSurface places pins and moves the viewport.
type MapSurface interface {
	Place(id string, at core.Coordinate, title string) Pin
	FitBounds(b geo.Bounds)
	PanTo(c core.Coordinate)
	Center() core.Coordinate
	Resize(width, height int)
}

// InfoSurface is the single info window / modal. Only one marker renders
// into it at a time.
type InfoSurface interface {
	ShowInline(pin Pin, content core.InfoContent) error
	ShowModal(content core.InfoContent) error
	Refresh(content core.InfoContent) error
	Hide() error
}
