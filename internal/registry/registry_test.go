package registry

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/venuemap/explorer/internal/marker"
	"github.com/venuemap/explorer/internal/surface"
	"github.com/venuemap/explorer/internal/surface/headless"
	"github.com/venuemap/explorer/internal/viewport"
	"github.com/venuemap/explorer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type host struct {
	reg  *Registry
	mode viewport.Mode
}

func (h *host) SetActive(m *marker.Marker)       { _, _ = h.reg.SetActive(m) }
func (h *host) Mode() viewport.Mode              { return h.mode }
func (h *host) InfoSurface() surface.InfoSurface { return h.reg.Surface() }

type fixture struct {
	reg  *Registry
	surf *headless.Surface
	host *host
	seq  *marker.Sequence
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := headless.New(core.Coordinate{})
	reg := New(s, nil)
	return &fixture{reg: reg, surf: s, host: &host{reg: reg}, seq: &marker.Sequence{}}
}

func (f *fixture) marker(name string) *marker.Marker {
	m := marker.New(f.seq, core.Venue{ID: strings.ToLower(name), Name: name}, nil)
	m.Attach(f.surf, f.host)
	return m
}

func (f *fixture) populate(t *testing.T, names ...string) []*marker.Marker {
	t.Helper()
	ms := make([]*marker.Marker, 0, len(names))
	for _, n := range names {
		ms = append(ms, f.marker(n))
	}
	require.NoError(t, f.reg.ReplaceAll(ms))
	return ms
}

func openCount(ms []*marker.Marker) int {
	n := 0
	for _, m := range ms {
		if m.InfoOpen() {
			n++
		}
	}
	return n
}

func TestSetActive_OpensAndTracks(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Alpha", "Beta")

	ok, err := f.reg.SetActive(ms[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, ms[0], f.reg.Active())
	assert.True(t, ms[0].InfoOpen())
	assert.Equal(t, ms[0].MarkerID(), f.surf.Info().Anchor)
}

func TestSetActive_CloseBeforeOpen(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Alpha", "Beta")
	_, _ = f.reg.SetActive(ms[0])
	f.surf.ResetOps()

	_, err := f.reg.SetActive(ms[1])
	require.NoError(t, err)

	var seen []string
	for _, op := range f.surf.Ops() {
		if op.Kind == "hide" || op.Kind == "show_inline" {
			seen = append(seen, op.Kind+" "+op.Target)
		}
	}
	assert.Equal(t, []string{"hide " + ms[0].MarkerID(), "show_inline " + ms[1].MarkerID()}, seen)
	assert.False(t, ms[0].InfoOpen())
	assert.True(t, ms[1].InfoOpen())
}

func TestSetActive_ToggleOff(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Alpha")

	_, _ = f.reg.SetActive(ms[0])
	ok, err := f.reg.SetActive(ms[0])

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, f.reg.Active())
	assert.False(t, ms[0].InfoOpen())
	assert.False(t, f.surf.Info().Open)
}

func TestSetActive_UnknownMarker(t *testing.T) {
	f := newFixture(t)
	f.populate(t, "Alpha")
	stray := f.marker("Stray")

	_, err := f.reg.SetActive(stray)
	assert.ErrorIs(t, err, ErrUnknownMarker)
	assert.Nil(t, f.reg.Active())
}

func TestSetActive_AtMostOneOpen(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "A", "B", "C", "D", "E")
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		switch r.Intn(4) {
		case 0:
			f.reg.Dismiss(ms[r.Intn(len(ms))])
		default:
			ms[r.Intn(len(ms))].Click()
		}

		open := openCount(ms)
		require.LessOrEqual(t, open, 1, "step %d", i)
		if a := f.reg.Active(); a != nil {
			assert.True(t, a.InfoOpen(), "step %d", i)
			assert.Equal(t, 1, open)
		} else {
			assert.Equal(t, 0, open)
		}
	}
}

func TestReplaceAll_ResetsActive(t *testing.T) {
	f := newFixture(t)
	old := f.populate(t, "Alpha", "Beta")
	_, _ = f.reg.SetActive(old[1])

	fresh := []*marker.Marker{f.marker("Gamma")}
	require.NoError(t, f.reg.ReplaceAll(fresh))

	assert.Nil(t, f.reg.Active())
	assert.Equal(t, 0, openCount(old))
	assert.False(t, f.surf.Info().Open)
	assert.Equal(t, 1, f.reg.Len())
	_, ok := f.reg.Lookup(old[0].MarkerID())
	assert.False(t, ok)
	for _, m := range old {
		assert.False(t, m.Attached())
	}
}

func TestReplaceAll_Nil(t *testing.T) {
	f := newFixture(t)
	f.populate(t, "Alpha")

	require.NoError(t, f.reg.ReplaceAll(nil))
	assert.Equal(t, 0, f.reg.Len())
	assert.Empty(t, f.surf.LivePins())
}

func TestAdd_Duplicate(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Alpha")

	err := f.reg.Add(ms[0])
	assert.ErrorIs(t, err, ErrDuplicateMarker)
	assert.Equal(t, 1, f.reg.Len())
}

func TestFilter_CaseInsensitiveSubstring(t *testing.T) {
	f := newFixture(t)
	f.populate(t, "Taco Stand", "Pizza Place", "TACO Bell", "Bistro")

	f.reg.SetFilter("taco")

	var names []string
	for _, m := range f.reg.Filtered() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"Taco Stand", "TACO Bell"}, names)
	assert.True(t, f.reg.Filtering())
	assert.Equal(t, "taco", f.reg.FilterText())
}

func TestFilter_PunctuationNotNormalized(t *testing.T) {
	f := newFixture(t)
	f.populate(t, "Joe's Diner", "Joes Grill")

	f.reg.SetFilter("joe's")
	require.Len(t, f.reg.Filtered(), 1)
	assert.Equal(t, "Joe's Diner", f.reg.Filtered()[0].Name())
}

func TestFilter_NoSpuriousSideEffects(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Taco Stand", "Pizza Place")
	_, _ = f.reg.SetActive(ms[0])

	f.reg.SetFilter("a")
	f.surf.ResetOps()

	// both still match
	f.reg.SetFilter("A")
	f.reg.SetFilter("a")
	assert.Empty(t, f.surf.Ops())
	assert.True(t, ms[0].InfoOpen())
}

func TestFilter_HideActiveThenReopen(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Taco Stand", "Pizza Place")
	_, _ = f.reg.SetActive(ms[0])

	f.reg.SetFilter("pizza")
	assert.False(t, ms[0].Visible())
	assert.False(t, ms[0].InfoOpen(), "hidden marker cannot stay open")
	assert.Same(t, ms[0], f.reg.Active(), "kept as pending reopen")
	assert.False(t, f.surf.Info().Open)

	f.reg.SetFilter("taco")
	assert.True(t, ms[0].Visible())
	assert.True(t, ms[0].InfoOpen())
	assert.Equal(t, ms[0].MarkerID(), f.surf.Info().Anchor)
}

func TestDisableFilter_ShowsAllAndReopensPending(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Taco Stand", "Pizza Place")
	_, _ = f.reg.SetActive(ms[1])
	f.reg.SetFilter("taco")
	require.False(t, ms[1].InfoOpen())

	f.reg.DisableFilter()

	assert.False(t, f.reg.Filtering())
	assert.Len(t, f.reg.Filtered(), 2)
	assert.True(t, ms[1].InfoOpen())
	assert.Same(t, ms[1], f.reg.Active())
}

func TestFilter_AppliedToAddedMarkers(t *testing.T) {
	f := newFixture(t)
	f.populate(t)
	f.reg.SetFilter("sushi")

	m := f.marker("Burger Barn")
	require.NoError(t, f.reg.Add(m))

	assert.False(t, m.Visible())
	ps, _ := f.surf.Pin(m.MarkerID())
	assert.False(t, ps.Visible)
}

func TestSetActive_PendingMarkerToggle(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Taco Stand", "Pizza Place")
	_, _ = f.reg.SetActive(ms[0])
	f.reg.SetFilter("pizza")

	ok, err := f.reg.SetActive(ms[0])
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, f.reg.Active())

	f.reg.DisableFilter()
	assert.False(t, ms[0].InfoOpen(), "cleared pending marker must not reopen")
}

func TestDismiss_ClearsActive(t *testing.T) {
	f := newFixture(t)
	ms := f.populate(t, "Alpha", "Beta")
	_, _ = f.reg.SetActive(ms[0])

	f.reg.Dismiss(ms[0])

	assert.Nil(t, f.reg.Active())
	assert.False(t, ms[0].InfoOpen())

	ok, _ := f.reg.SetActive(ms[0])
	assert.True(t, ok, "a dismissed marker activates on the next click")
}
