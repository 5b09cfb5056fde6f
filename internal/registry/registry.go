// Package registry keeps the ordered set of live markers and enforces the
// active-marker rules: at most one marker is open, and the previous marker is
// always closed before the next one opens.
//
// A Registry is not safe for concurrent use; the map controller owns the lock.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/venuemap/explorer/internal/marker"
	"github.com/venuemap/explorer/internal/surface"
)

var (
	ErrDuplicateMarker = errors.New("duplicate marker id")
	ErrUnknownMarker   = errors.New("unknown marker")
)

// Registry owns the live markers and the shared info surface.
type Registry struct {
	markers []*marker.Marker
	byID    map[string]*marker.Marker
	active  *marker.Marker

	info surface.InfoSurface

	filtering  bool
	filterText string

	logger *slog.Logger
}

// New creates an empty registry holding the info surface capability.
func New(info surface.InfoSurface, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:   make(map[string]*marker.Marker),
		info:   info,
		logger: logger,
	}
}

// Surface returns the shared info surface. Only the active marker renders
// into it.
func (r *Registry) Surface() surface.InfoSurface { return r.info }

// Len returns the number of live markers.
func (r *Registry) Len() int { return len(r.markers) }

// Active returns the active marker or nil.
func (r *Registry) Active() *marker.Marker { return r.active }

// Markers returns the live markers in insertion order.
func (r *Registry) Markers() []*marker.Marker {
	return append([]*marker.Marker(nil), r.markers...)
}

// Lookup finds a marker by its marker id ("marker-<n>").
func (r *Registry) Lookup(id string) (*marker.Marker, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// ReplaceAll closes the active marker, destroys every current marker and
// installs ms in order. The active marker is reset.
func (r *Registry) ReplaceAll(ms []*marker.Marker) error {
	if r.active != nil {
		r.active.Close()
		r.active = nil
	}
	for _, m := range r.markers {
		m.Detach()
	}

	r.markers = nil
	r.byID = make(map[string]*marker.Marker, len(ms))
	for _, m := range ms {
		if err := r.Add(m); err != nil {
			return err
		}
	}
	return nil
}

// Add appends m. The current filter is applied to it.
func (r *Registry) Add(m *marker.Marker) error {
	if _, exists := r.byID[m.MarkerID()]; exists {
		return fmt.Errorf("add %s: %w", m.MarkerID(), ErrDuplicateMarker)
	}
	r.markers = append(r.markers, m)
	r.byID[m.MarkerID()] = m
	r.applyVisibility(m, r.matches(m))
	return nil
}

// SetActive toggles m off when it is already active. Otherwise the previous
// active marker is closed and then m is opened. It reports whether m ended up
// active.
func (r *Registry) SetActive(m *marker.Marker) (bool, error) {
	if _, ok := r.byID[m.MarkerID()]; !ok {
		return false, fmt.Errorf("activate %s: %w", m.MarkerID(), ErrUnknownMarker)
	}

	if m == r.active {
		m.Close()
		r.active = nil
		return false, nil
	}

	if r.active != nil {
		r.active.Close()
	}
	r.active = m
	if m.Visible() {
		m.Open()
	}
	return true, nil
}

// Dismiss handles the info surface being closed from the surface itself.
func (r *Registry) Dismiss(m *marker.Marker) {
	if m == r.active {
		r.active = nil
	}
	m.Close()
}

// Filtering reports whether filter mode is on.
func (r *Registry) Filtering() bool { return r.filtering }

// FilterText returns the current filter text.
func (r *Registry) FilterText() string { return r.filterText }

// SetFilter switches to filter mode with text and re-evaluates visibility.
func (r *Registry) SetFilter(text string) {
	r.filtering = true
	r.filterText = text
	r.refilter()
}

// DisableFilter switches back to search mode. Every marker becomes visible
// and a pending active marker reopens.
func (r *Registry) DisableFilter() {
	r.filtering = false
	r.filterText = ""
	r.refilter()
}

// Filtered returns the visible markers in order.
func (r *Registry) Filtered() []*marker.Marker {
	out := make([]*marker.Marker, 0, len(r.markers))
	for _, m := range r.markers {
		if m.Visible() {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) refilter() {
	changed := 0
	for _, m := range r.markers {
		if r.applyVisibility(m, r.matches(m)) {
			changed++
		}
	}
	r.logger.Debug("filter applied", "filtering", r.filtering, "text", r.filterText, "changed", changed)
}

func (r *Registry) matches(m *marker.Marker) bool {
	if !r.filtering {
		return true
	}
	return strings.Contains(strings.ToLower(m.Name()), strings.ToLower(r.filterText))
}

// applyVisibility changes m only when its visibility flips. Hiding the active
// marker closes it but keeps it active so it reopens when shown again.
func (r *Registry) applyVisibility(m *marker.Marker, visible bool) bool {
	if m.Visible() == visible {
		return false
	}
	m.SetVisible(visible)
	if m != r.active {
		return true
	}
	if visible {
		m.Open()
	} else {
		m.Close()
	}
	return true
}
