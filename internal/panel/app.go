// Package panel is the terminal list panel. It mirrors the controller's
// marker list and sends every user action through the intent dispatcher.
package panel

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/internal/intent"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/marker"
	"github.com/venuemap/explorer/pkg/core"
)

// Source provides the list view model.
type Source interface {
	Snapshot() mapctl.State
}

// Dispatcher routes intents.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

type inputMode string

const (
	modeList   inputMode = "list"
	modeSearch inputMode = "search"
	modeFilter inputMode = "filter"
)

const refreshInterval = 500 * time.Millisecond

type stateMsg mapctl.State

type tickMsg time.Time

type resultMsg struct {
	intent string
	result any
	err    error
}

// App is the bubbletea model of the panel.
type App struct {
	src    Source
	d      Dispatcher
	state  mapctl.State
	cursor int
	mode   inputMode
	input  string
	status string
}

// New creates a panel over src.
func New(src Source, d Dispatcher) *App {
	return &App{src: src, d: d, mode: modeList, state: src.Snapshot()}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg { return stateMsg(a.src.Snapshot()) }
}

// send dispatches events in order and reports the last result.
func (a *App) send(events ...dispatcher.Event) tea.Cmd {
	return func() tea.Msg {
		var res resultMsg
		for _, e := range events {
			e.Source = "panel"
			out, err := a.d.Dispatch(e)
			res = resultMsg{intent: e.Name, result: out, err: err}
			if err != nil {
				break
			}
		}
		return res
	}
}

// rows returns the markers the list shows: all of them in search mode, the
// visible ones while filtering.
func (a *App) rows() []marker.View {
	if !a.state.Filtering {
		return a.state.Markers
	}
	var out []marker.View
	for _, v := range a.state.Markers {
		if v.Visible {
			out = append(out, v)
		}
	}
	return out
}

func (a *App) selected() (marker.View, bool) {
	rows := a.rows()
	if a.cursor < 0 || a.cursor >= len(rows) {
		return marker.View{}, false
	}
	return rows[a.cursor], true
}

func (a *App) clampCursor() {
	if n := len(a.rows()); a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		switch a.mode {
		case modeSearch:
			return a.handleSearchKey(m)
		case modeFilter:
			return a.handleFilterKey(m)
		}
		return a.handleListKey(m)
	case stateMsg:
		a.state = mapctl.State(m)
		a.clampCursor()
	case tickMsg:
		return a, tea.Batch(a.refresh(), tick())
	case resultMsg:
		if m.err != nil {
			a.status = fmt.Sprintf("%s failed: %v", m.intent, m.err)
		} else if r, ok := m.result.(mapctl.RoundReport); ok {
			a.status = fmt.Sprintf("found %d venues (%d failed)", r.Succeeded, r.Failed)
		}
		return a, a.refresh()
	}
	return a, nil
}

// move changes the selection. The old row loses hover, the new row gains it
// and the map focuses on it.
func (a *App) move(delta int) tea.Cmd {
	prev, hadPrev := a.selected()
	a.cursor += delta
	a.clampCursor()
	next, ok := a.selected()
	if !ok || (hadPrev && prev.MarkerID == next.MarkerID) {
		return nil
	}
	var events []dispatcher.Event
	if hadPrev {
		events = append(events, dispatcher.Event{Name: intent.Hover, Args: []string{prev.MarkerID, "false"}})
	}
	events = append(events, dispatcher.Event{Name: intent.Hover, Args: []string{next.MarkerID, "true", "true"}})
	return a.send(events...)
}

func (a *App) handleListKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		return a, a.move(-1)
	case "down", "j":
		return a, a.move(1)
	case "enter", " ":
		if v, ok := a.selected(); ok {
			return a, a.send(dispatcher.Event{Name: intent.Click, Args: []string{v.MarkerID}})
		}
	case "x":
		if v, ok := a.selected(); ok {
			return a, a.send(dispatcher.Event{Name: intent.Close, Args: []string{v.MarkerID}})
		}
	case "/":
		a.mode = modeSearch
		a.input = ""
	case "f":
		a.mode = modeFilter
		a.input = a.state.FilterText
		return a, a.send(dispatcher.Event{Name: intent.Filter, Args: []string{a.input}})
	case "r":
		return a, a.refresh()
	}
	return a, nil
}

func (a *App) handleSearchKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.mode = modeList
	case tea.KeyEnter:
		a.mode = modeList
		text := strings.TrimSpace(a.input)
		if text == "" {
			return a, nil
		}
		a.status = "searching..."
		a.cursor = 0
		return a, a.send(dispatcher.Event{Name: intent.Query, Args: []string{text}})
	case tea.KeyBackspace:
		a.input = trimLast(a.input)
	case tea.KeyRunes, tea.KeySpace:
		a.input += string(m.Runes)
	}
	return a, nil
}

// handleFilterKey applies the filter on every keystroke.
func (a *App) handleFilterKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.mode = modeList
		a.input = ""
		return a, a.send(dispatcher.Event{Name: intent.FilterOff})
	case tea.KeyEnter, tea.KeyDown, tea.KeyUp:
		a.mode = modeList
		return a, nil
	case tea.KeyBackspace:
		a.input = trimLast(a.input)
	case tea.KeyRunes, tea.KeySpace:
		a.input += string(m.Runes)
	default:
		return a, nil
	}
	a.cursor = 0
	return a, a.send(dispatcher.Event{Name: intent.Filter, Args: []string{a.input}})
}

func trimLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

// styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Italic(true)
	inputStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
)

func icon(s core.VisualState) string {
	switch s {
	case core.VisualHover:
		return "[~]"
	case core.VisualActive:
		return "[*]"
	case core.VisualActiveCloseable:
		return "[x]"
	default:
		return "[ ]"
	}
}

func (a *App) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Venues - round %d (%s)", a.state.Generation, a.state.Mode)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch a.mode {
	case modeSearch:
		b.WriteString(inputStyle.Render("search: " + a.input))
		b.WriteString("\n")
	case modeFilter:
		b.WriteString(inputStyle.Render("filter: " + a.input))
		b.WriteString("\n")
	}

	rows := a.rows()
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("no venues"))
		b.WriteString("\n")
	}
	for i, v := range rows {
		line := fmt.Sprintf("%s %-32s %9.5f,%10.5f", icon(v.State), v.Name, v.Location.Lat, v.Location.Lng)
		switch {
		case i == a.cursor:
			line = cursorStyle.Render("> " + line)
		case v.MarkerID == a.state.Active:
			line = activeStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render("[j/k] Move  [enter] Open  [x] Close  [/] Search  [f] Filter  [esc] Clear filter  [q] Quit"))
	if a.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(a.status))
	}
	return b.String()
}
