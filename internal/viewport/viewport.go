// Package viewport decides how info content is presented for a display width.
package viewport

import "sync"

// DefaultBreakpoint is the narrowest width, in pixels, that still renders
// info content inline on the map.
const DefaultBreakpoint = 768

// Mode is the info content presentation.
type Mode int

const (
	// Inline renders info content as an overlay anchored to the pin.
	Inline Mode = iota
	// Modal renders info content full screen.
	Modal
)

func (m Mode) String() string {
	if m == Modal {
		return "modal"
	}
	return "inline"
}

// ModeFor maps a display width to a mode using one breakpoint.
func ModeFor(width, breakpoint int) Mode {
	if width >= breakpoint {
		return Inline
	}
	return Modal
}

// Tracker remembers the current mode and reports changes.
type Tracker struct {
	mu         sync.RWMutex
	breakpoint int
	mode       Mode
}

// NewTracker creates a tracker starting from the mode of initialWidth.
func NewTracker(breakpoint, initialWidth int) *Tracker {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	return &Tracker{
		breakpoint: breakpoint,
		mode:       ModeFor(initialWidth, breakpoint),
	}
}

// Mode returns the current mode.
func (t *Tracker) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// Update records a new width and returns the resulting mode and whether it
// differs from the previous one.
func (t *Tracker) Update(width int) (Mode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := ModeFor(width, t.breakpoint)
	changed := next != t.mode
	t.mode = next
	return next, changed
}
