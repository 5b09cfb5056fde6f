// Package headless implements the map and info surfaces in memory. It keeps
// the rendered state and an ordered log of every call, which makes it the
// surface for tests, exports and the terminal panel.
package headless

import (
	"errors"
	"fmt"
	"sync"

	"github.com/venuemap/explorer/internal/geo"
	"github.com/venuemap/explorer/internal/surface"
	"github.com/venuemap/explorer/pkg/core"
)

// ErrImageryRender is returned by ShowInline/ShowModal/Refresh when imagery
// rendering failure is being simulated.
var ErrImageryRender = errors.New("imagery render failed")

// Op is one recorded surface call.
type Op struct {
	Kind   string
	Target string
	Detail string
}

func (o Op) String() string {
	if o.Detail == "" {
		return o.Kind + " " + o.Target
	}
	return o.Kind + " " + o.Target + " " + o.Detail
}

// PinState is the rendered state of one pin.
type PinState struct {
	ID      string
	Title   string
	At      core.Coordinate
	Icon    core.VisualState
	Visible bool
	ZIndex  int64
	Removed bool
}

// InfoState is the rendered state of the info surface.
type InfoState struct {
	Open    bool
	Modal   bool
	Anchor  string
	Content core.InfoContent
}

// Surface is an in-memory MapSurface and InfoSurface.
type Surface struct {
	mu     sync.Mutex
	pins   map[string]*PinState
	order  []string
	center core.Coordinate
	bounds geo.Bounds
	fits   int
	width  int
	height int
	info   InfoState
	ops    []Op

	// FailImagery makes every render carrying imagery fail.
	FailImagery bool
}

var (
	_ surface.MapSurface  = (*Surface)(nil)
	_ surface.InfoSurface = (*Surface)(nil)
)

// New creates a headless surface centered on center.
func New(center core.Coordinate) *Surface {
	return &Surface{
		pins:   make(map[string]*PinState),
		center: center,
	}
}

type pin struct {
	s  *Surface
	id string
}

func (p *pin) SetIcon(state core.VisualState) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if ps, ok := p.s.pins[p.id]; ok {
		ps.Icon = state
	}
	p.s.record("icon", p.id, state.String())
}

func (p *pin) SetVisible(visible bool) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if ps, ok := p.s.pins[p.id]; ok {
		ps.Visible = visible
	}
	p.s.record("visible", p.id, fmt.Sprint(visible))
}

func (p *pin) SetZIndex(z int64) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if ps, ok := p.s.pins[p.id]; ok {
		ps.ZIndex = z
	}
	p.s.record("zindex", p.id, fmt.Sprint(z))
}

func (p *pin) Remove() {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if ps, ok := p.s.pins[p.id]; ok {
		ps.Removed = true
		ps.Visible = false
	}
	p.s.record("remove", p.id, "")
}

func (s *Surface) record(kind, target, detail string) {
	s.ops = append(s.ops, Op{Kind: kind, Target: target, Detail: detail})
}

// Place adds a visible pin.
func (s *Surface) Place(id string, at core.Coordinate, title string) surface.Pin {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pins[id]; !ok {
		s.order = append(s.order, id)
	}
	s.pins[id] = &PinState{ID: id, Title: title, At: at, Visible: true}
	s.record("place", id, title)
	return &pin{s: s, id: id}
}

// FitBounds records the bounds and recenters on them.
func (s *Surface) FitBounds(b geo.Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = b
	s.fits++
	if c, ok := b.Center(); ok {
		s.center = c
	}
	s.record("fit", "", fmt.Sprint(b.Count()))
}

// PanTo moves the center.
func (s *Surface) PanTo(c core.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = c
	s.record("pan", "", fmt.Sprintf("%f,%f", c.Lat, c.Lng))
}

// Center returns the current center.
func (s *Surface) Center() core.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center
}

// Resize records the new viewport size.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	s.record("resize", "", fmt.Sprintf("%dx%d", width, height))
}

// ShowInline opens the info surface anchored to p.
func (s *Surface) ShowInline(p surface.Pin, content core.InfoContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailImagery && content.Imagery != nil {
		return ErrImageryRender
	}
	anchor := ""
	if hp, ok := p.(*pin); ok {
		anchor = hp.id
	}
	s.info = InfoState{Open: true, Modal: false, Anchor: anchor, Content: content}
	s.record("show_inline", content.MarkerID, "")
	return nil
}

// ShowModal opens the info surface full screen.
func (s *Surface) ShowModal(content core.InfoContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailImagery && content.Imagery != nil {
		return ErrImageryRender
	}
	s.info = InfoState{Open: true, Modal: true, Content: content}
	s.record("show_modal", content.MarkerID, "")
	return nil
}

// Refresh swaps the content of the open surface.
func (s *Surface) Refresh(content core.InfoContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.info.Open {
		return errors.New("info surface is not open")
	}
	if s.FailImagery && content.Imagery != nil {
		return ErrImageryRender
	}
	s.info.Content = content
	s.record("refresh", content.MarkerID, "")
	return nil
}

// Hide closes the info surface.
func (s *Surface) Hide() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.info.Content.MarkerID
	s.info = InfoState{}
	s.record("hide", target, "")
	return nil
}

// Ops returns a copy of the call log.
func (s *Surface) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// ResetOps clears the call log.
func (s *Surface) ResetOps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
}

// Pin returns the rendered state of pin id.
func (s *Surface) Pin(id string) (PinState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.pins[id]
	if !ok {
		return PinState{}, false
	}
	return *ps, true
}

// LivePins returns the pins that have not been removed, in placement order.
func (s *Surface) LivePins() []PinState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PinState
	for _, id := range s.order {
		if ps := s.pins[id]; !ps.Removed {
			out = append(out, *ps)
		}
	}
	return out
}

// Info returns the rendered state of the info surface.
func (s *Surface) Info() InfoState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Bounds returns the last fitted bounds and how many fits happened.
func (s *Surface) Bounds() (geo.Bounds, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds, s.fits
}

// Size returns the last viewport size passed to Resize.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}
