// Package marker implements the per-venue marker entity and its visual
// state machine.
//
// A Marker is not safe for concurrent use. The map controller serializes
// every call under its own lock.
package marker

import (
	"log/slog"

	"github.com/venuemap/explorer/internal/surface"
	"github.com/venuemap/explorer/internal/viewport"
	"github.com/venuemap/explorer/pkg/core"
)

// Host is the controller a marker is attached to. The marker reports click
// intent to it and asks it for the presentation mode and the shared info
// surface.
type Host interface {
	SetActive(m *Marker)
	Mode() viewport.Mode
	InfoSurface() surface.InfoSurface
}

// Marker is one venue on the map and in the list panel.
type Marker struct {
	id    int64
	venue core.Venue
	text  text

	hovered  bool
	infoOpen bool
	visible  bool
	imagery  *core.ImageryRef

	pin  surface.Pin
	host Host
	// info is the surface this marker rendered into while open
	info surface.InfoSurface

	logger *slog.Logger
}

// View is a read-only snapshot used by list renderers.
type View struct {
	ID         int64            `json:"id"`
	MarkerID   string           `json:"markerId"`
	VenueID    string           `json:"venueId"`
	Name       string           `json:"name"`
	Location   core.Coordinate  `json:"location"`
	State      core.VisualState `json:"state"`
	Hovered    bool             `json:"hovered"`
	InfoOpen   bool             `json:"infoOpen"`
	Visible    bool             `json:"visible"`
	HasImagery bool             `json:"hasImagery"`
}

// New creates an inactive, unattached marker for v.
func New(seq *Sequence, v core.Venue, logger *slog.Logger) *Marker {
	if logger == nil {
		logger = slog.Default()
	}
	id := seq.Next()
	return &Marker{
		id:      id,
		venue:   v,
		text:    deriveText(id, v),
		visible: true,
		logger:  logger.With("marker", id),
	}
}

// ID returns the sequence id.
func (m *Marker) ID() int64 { return m.id }

// MarkerID returns the selector-style id ("marker-<id>").
func (m *Marker) MarkerID() string { return m.text.markerID }

// PanoID returns the imagery placeholder id ("pano-<id>").
func (m *Marker) PanoID() string { return m.text.panoID }

// Venue returns the venue the marker represents.
func (m *Marker) Venue() core.Venue { return m.venue }

// Name returns the venue name.
func (m *Marker) Name() string { return m.venue.Name }

// Location returns the venue coordinate.
func (m *Marker) Location() core.Coordinate { return m.venue.Location }

// Hovered reports the hover flag.
func (m *Marker) Hovered() bool { return m.hovered }

// InfoOpen reports whether the info content is open.
func (m *Marker) InfoOpen() bool { return m.infoOpen }

// Visible reports whether the marker passes the current filter.
func (m *Marker) Visible() bool { return m.visible }

// HasImagery reports whether an imagery reference has been attached.
func (m *Marker) HasImagery() bool { return m.imagery != nil }

// Imagery returns the attached imagery reference, if any.
func (m *Marker) Imagery() *core.ImageryRef { return m.imagery }

// Attached reports whether the marker has a pin on a map.
func (m *Marker) Attached() bool { return m.pin != nil }

// State returns the derived visual state.
func (m *Marker) State() core.VisualState {
	return core.DeriveVisualState(m.hovered, m.infoOpen)
}

// Snapshot returns the list panel view of the marker.
func (m *Marker) Snapshot() View {
	return View{
		ID:         m.id,
		MarkerID:   m.text.markerID,
		VenueID:    m.venue.ID,
		Name:       m.venue.Name,
		Location:   m.venue.Location,
		State:      m.State(),
		Hovered:    m.hovered,
		InfoOpen:   m.infoOpen,
		Visible:    m.visible,
		HasImagery: m.imagery != nil,
	}
}

// Attach places the marker on ms and binds it to host.
func (m *Marker) Attach(ms surface.MapSurface, host Host) {
	m.host = host
	m.pin = ms.Place(m.text.markerID, m.venue.Location, m.venue.Name)
	m.applyState()
	if !m.visible {
		m.pin.SetVisible(false)
	}
}

// Detach closes the marker, removes its pin and drops the host.
func (m *Marker) Detach() {
	m.Close()
	if m.pin != nil {
		m.pin.Remove()
	}
	m.pin = nil
	m.host = nil
}

// SetHovered updates the hover flag and the pin icon.
func (m *Marker) SetHovered(hovered bool) {
	m.hovered = hovered
	m.applyState()
}

// SetInfoOpen updates the open flag and the pin icon. It does not render;
// use Open and Close for that.
func (m *Marker) SetInfoOpen(open bool) {
	m.infoOpen = open
	m.applyState()
}

func (m *Marker) applyState() {
	if m.pin != nil {
		m.pin.SetIcon(m.State())
	}
}

// SetVisible shows or hides the pin.
func (m *Marker) SetVisible(visible bool) {
	m.visible = visible
	if m.pin != nil {
		m.pin.SetVisible(visible)
	}
}

// BringToFront raises the pin above every other pin.
func (m *Marker) BringToFront(z *Sequence) {
	if m.pin != nil {
		m.pin.SetZIndex(z.Next())
	}
}

// AttachImagery records an imagery reference. If the info content is open it
// is refreshed in place.
func (m *Marker) AttachImagery(ref *core.ImageryRef) {
	if ref == nil {
		return
	}
	r := *ref
	m.imagery = &r

	if !m.infoOpen || m.info == nil {
		return
	}
	mode := m.mode()
	if err := m.info.Refresh(m.content(mode, true)); err != nil {
		m.logger.Warn("Imagery refresh failed, showing placeholder", "error", err)
		if err := m.info.Refresh(m.content(mode, false)); err != nil {
			m.logger.Error("Info refresh failed", "error", err)
		}
	}
}

func (m *Marker) mode() viewport.Mode {
	if m.host == nil {
		return viewport.Inline
	}
	return m.host.Mode()
}

// Open renders the info content into the host's info surface. Opening an
// open marker does nothing. Render failures fall back to the no-imagery
// placeholder and never fail the open.
func (m *Marker) Open() {
	if m.infoOpen {
		return
	}
	if m.host == nil {
		m.SetInfoOpen(true)
		return
	}

	mode := m.host.Mode()
	info := m.host.InfoSurface()
	if mode == viewport.Modal {
		// a modal covers the pin, so the pointer cannot still be over it
		m.hovered = false
	}
	m.SetInfoOpen(true)
	m.info = info

	content := m.content(mode, true)
	err := m.show(info, mode, content)
	if err != nil && content.Imagery != nil {
		m.logger.Warn("Imagery render failed, showing placeholder", "error", err)
		err = m.show(info, mode, m.content(mode, false))
	}
	if err != nil {
		m.logger.Error("Info render failed", "mode", mode.String(), "error", err)
	}
}

func (m *Marker) show(info surface.InfoSurface, mode viewport.Mode, c core.InfoContent) error {
	if mode == viewport.Modal {
		return info.ShowModal(c)
	}
	return info.ShowInline(m.pin, c)
}

// Close hides the info content. Closing a closed marker does nothing.
func (m *Marker) Close() {
	if !m.infoOpen {
		return
	}
	m.SetInfoOpen(false)
	if m.info != nil {
		if err := m.info.Hide(); err != nil {
			m.logger.Warn("Info hide failed", "error", err)
		}
		m.info = nil
	}
}

// Click reports activation intent to the host. The marker never activates
// itself.
func (m *Marker) Click() {
	if m.host != nil {
		m.host.SetActive(m)
	}
}
