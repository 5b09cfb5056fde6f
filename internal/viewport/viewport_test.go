package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeFor(t *testing.T) {
	assert.Equal(t, Inline, ModeFor(1024, 768))
	assert.Equal(t, Inline, ModeFor(768, 768))
	assert.Equal(t, Modal, ModeFor(767, 768))
	assert.Equal(t, Modal, ModeFor(0, 768))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "inline", Inline.String())
	assert.Equal(t, "modal", Modal.String())
}

func TestTracker_ReportsChangesOnly(t *testing.T) {
	tr := NewTracker(768, 1024)
	assert.Equal(t, Inline, tr.Mode())

	mode, changed := tr.Update(900)
	assert.Equal(t, Inline, mode)
	assert.False(t, changed)

	mode, changed = tr.Update(500)
	assert.Equal(t, Modal, mode)
	assert.True(t, changed)

	mode, changed = tr.Update(400)
	assert.Equal(t, Modal, mode)
	assert.False(t, changed)

	mode, changed = tr.Update(800)
	assert.Equal(t, Inline, mode)
	assert.True(t, changed)
}

func TestTracker_DefaultBreakpoint(t *testing.T) {
	tr := NewTracker(0, DefaultBreakpoint-1)
	assert.Equal(t, Modal, tr.Mode())
}
