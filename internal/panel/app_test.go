package panel

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/internal/intent"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/marker"
	"github.com/venuemap/explorer/pkg/core"
)

type staticSource struct{ state mapctl.State }

func (s *staticSource) Snapshot() mapctl.State { return s.state }

type recorder struct {
	events []dispatcher.Event
	err    error
}

func (r *recorder) Dispatch(e dispatcher.Event) (any, error) {
	r.events = append(r.events, e)
	if e.Name == intent.Query {
		return mapctl.RoundReport{Succeeded: 3, Failed: 1}, r.err
	}
	return nil, r.err
}

func (r *recorder) names() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.Name+" "+strings.Join(e.Args, " "))
	}
	return out
}

func sampleState() mapctl.State {
	return mapctl.State{
		Generation: 2,
		Mode:       "inline",
		Markers: []marker.View{
			{MarkerID: "marker-0", Name: "Taco Stand", Visible: true},
			{MarkerID: "marker-1", Name: "Pizza Place", Visible: true, State: core.VisualActive},
			{MarkerID: "marker-2", Name: "Burger Barn", Visible: false},
		},
		Active: "marker-1",
	}
}

func newApp() (*App, *recorder, *staticSource) {
	src := &staticSource{state: sampleState()}
	rec := &recorder{}
	return New(src, rec), rec, src
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and runs the resulting command, feeding its message
// back like the runtime would.
func press(t *testing.T, a *App, s string) {
	t.Helper()
	_, cmd := a.Update(key(s))
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		if _, isResult := msg.(resultMsg); isResult {
			a.Update(msg)
		}
	}
}

func TestView_ListsMarkers(t *testing.T) {
	a, _, _ := newApp()
	view := a.View()

	assert.Contains(t, view, "round 2 (inline)")
	assert.Contains(t, view, "Taco Stand")
	assert.Contains(t, view, "[*] Pizza Place")
	assert.Contains(t, view, "Burger Barn", "search mode lists hidden markers too")
}

func TestMove_HoversAndFocuses(t *testing.T) {
	a, rec, _ := newApp()

	press(t, a, "j")
	assert.Equal(t, []string{"hover marker-0 false", "hover marker-1 true true"}, rec.names())

	rec.events = nil
	press(t, a, "k")
	press(t, a, "k") // already at the top
	assert.Equal(t, []string{"hover marker-1 false", "hover marker-0 true true"}, rec.names())
}

func TestEnterClicksAndXCloses(t *testing.T) {
	a, rec, _ := newApp()

	press(t, a, "enter")
	press(t, a, "x")
	assert.Equal(t, []string{"click marker-0", "close marker-0"}, rec.names())
	for _, e := range rec.events {
		assert.Equal(t, "panel", e.Source)
	}
}

func TestSearch(t *testing.T) {
	a, rec, _ := newApp()

	press(t, a, "/")
	for _, s := range []string{"t", "a", "c", "o", "x", "backspace", " ", "n", "e", "a", "r", " ", "l", "a"} {
		press(t, a, s)
	}
	assert.Contains(t, a.View(), "search: taco near la")
	press(t, a, "enter")

	assert.Equal(t, []string{"query taco near la"}, rec.names())
	assert.Equal(t, "found 3 venues (1 failed)", a.status)
}

func TestSearch_EscCancels(t *testing.T) {
	a, rec, _ := newApp()
	press(t, a, "/")
	press(t, a, "p")
	press(t, a, "esc")
	assert.Empty(t, rec.events)
	assert.Equal(t, modeList, a.mode)
}

func TestFilter_LiveAndClear(t *testing.T) {
	a, rec, src := newApp()

	press(t, a, "f")
	press(t, a, "p")
	press(t, a, "i")
	assert.Equal(t, []string{"filter ", "filter p", "filter pi"}, rec.names())

	src.state.Filtering = true
	a.Update(stateMsg(src.state))
	view := a.View()
	assert.NotContains(t, view, "Burger Barn", "filtering hides invisible markers")

	rec.events = nil
	press(t, a, "esc")
	assert.Equal(t, []string{"filter_off"}, rec.names())
}

func TestResult_ErrorStatus(t *testing.T) {
	a, rec, _ := newApp()
	rec.err = errors.New("no such marker")

	press(t, a, "enter")
	assert.Equal(t, "click failed: no such marker", a.status)
	assert.Contains(t, a.View(), "click failed")
}

func TestStateMsg_ClampsCursor(t *testing.T) {
	a, _, _ := newApp()
	a.cursor = 2
	a.Update(stateMsg(mapctl.State{Markers: []marker.View{{MarkerID: "marker-9"}}}))
	assert.Equal(t, 0, a.cursor)

	a.Update(stateMsg(mapctl.State{}))
	assert.Equal(t, 0, a.cursor)
	assert.Contains(t, a.View(), "no venues")
}

func TestQuit(t *testing.T) {
	a, _, _ := newApp()
	_, cmd := a.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
