// Package websocket renders the map and info surfaces in browsers. Every
// surface call updates an in-memory model and is broadcast to connected
// clients as a streaming envelope; clients send intents back.
package websocket

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/internal/geo"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/surface"
	"github.com/venuemap/explorer/internal/surface/headless"
	"github.com/venuemap/explorer/pkg/core"
	"github.com/venuemap/explorer/pkg/streaming"
)

// Dispatcher routes client intents.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Hub is a MapSurface, InfoSurface and Notifier shared by every connected
// browser.
type Hub struct {
	state    *headless.Surface
	upgrader ws.Upgrader
	logger   *slog.Logger

	mu       sync.RWMutex
	clients  map[string]*client
	dispatch Dispatcher
}

var (
	_ surface.MapSurface  = (*Hub)(nil)
	_ surface.InfoSurface = (*Hub)(nil)
	_ mapctl.Notifier     = (*Hub)(nil)
	_ http.Handler        = (*Hub)(nil)
)

// NewHub creates a hub whose map starts at center.
func NewHub(center core.Coordinate, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		state:   headless.New(center),
		clients: make(map[string]*client),
		logger:  logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetDispatcher installs the intent router. Intents arriving before it is
// set are rejected.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatch = d
}

func (h *Hub) dispatcher() Dispatcher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dispatch
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(uuid.NewString(), h, conn)
	if err := h.register(c); err != nil {
		c.logger.Error("Failed to send snapshot", "error", err)
		c.close()
		return
	}
	c.logger.Info("WebSocket client connected", "remote", r.RemoteAddr)

	go c.writeLoop()
	go c.readLoop()
}

// register queues the current snapshot for c and adds it to the broadcast
// set in one step.
func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := streaming.Marshal(streaming.TypeSnapshot, h.snapshot(c.id))
	if err != nil {
		return err
	}
	c.sendCh <- data
	h.clients[c.id] = c
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()
	c.logger.Info("WebSocket client disconnected")
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) broadcast(msgType string, payload any) {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		h.logger.Error("Failed to encode broadcast", "type", msgType, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.send(data)
	}
}

func (h *Hub) snapshot(clientID string) streaming.SnapshotPayload {
	snap := streaming.SnapshotPayload{
		ClientID: clientID,
		Center:   h.state.Center(),
		Pins:     []streaming.PinPayload{},
	}
	for _, ps := range h.state.LivePins() {
		snap.Pins = append(snap.Pins, streaming.PinPayload{
			ID:      ps.ID,
			Title:   ps.Title,
			At:      ps.At,
			Icon:    ps.Icon.String(),
			Visible: ps.Visible,
			ZIndex:  ps.ZIndex,
		})
	}
	if info := h.state.Info(); info.Open {
		snap.Info = &streaming.InfoPayload{Anchor: info.Anchor, Content: info.Content}
		snap.Modal = info.Modal
	}
	return snap
}

// pin forwards to the model pin and broadcasts each change.
type pin struct {
	hub   *Hub
	id    string
	inner surface.Pin
}

func (p *pin) SetIcon(state core.VisualState) {
	p.inner.SetIcon(state)
	p.hub.broadcast(streaming.TypeIcon, streaming.IconPayload{ID: p.id, Icon: state.String()})
}

func (p *pin) SetVisible(visible bool) {
	p.inner.SetVisible(visible)
	p.hub.broadcast(streaming.TypeVisible, streaming.VisiblePayload{ID: p.id, Visible: visible})
}

func (p *pin) SetZIndex(z int64) {
	p.inner.SetZIndex(z)
	p.hub.broadcast(streaming.TypeZIndex, streaming.ZIndexPayload{ID: p.id, ZIndex: z})
}

func (p *pin) Remove() {
	p.inner.Remove()
	p.hub.broadcast(streaming.TypeRemove, streaming.RemovePayload{ID: p.id})
}

// Place adds a visible pin.
func (h *Hub) Place(id string, at core.Coordinate, title string) surface.Pin {
	inner := h.state.Place(id, at, title)
	h.broadcast(streaming.TypePlace, streaming.PinPayload{ID: id, Title: title, At: at, Icon: core.VisualInactive.String(), Visible: true})
	return &pin{hub: h, id: id, inner: inner}
}

func (h *Hub) FitBounds(b geo.Bounds) {
	h.state.FitBounds(b)
	h.broadcast(streaming.TypeFit, streaming.FitPayload{SouthWest: b.SouthWest(), NorthEast: b.NorthEast(), Count: b.Count()})
}

func (h *Hub) PanTo(c core.Coordinate) {
	h.state.PanTo(c)
	h.broadcast(streaming.TypePan, streaming.PanPayload{Center: c})
}

func (h *Hub) Center() core.Coordinate {
	return h.state.Center()
}

func (h *Hub) Resize(width, height int) {
	h.state.Resize(width, height)
	h.broadcast(streaming.TypeResize, streaming.ResizePayload{Width: width, Height: height})
}

// ShowInline anchors the info window to p.
func (h *Hub) ShowInline(p surface.Pin, content core.InfoContent) error {
	inner, anchor := p, ""
	if hp, ok := p.(*pin); ok {
		inner, anchor = hp.inner, hp.id
	}
	if err := h.state.ShowInline(inner, content); err != nil {
		return err
	}
	h.broadcast(streaming.TypeShowInline, streaming.InfoPayload{Anchor: anchor, Content: content})
	return nil
}

func (h *Hub) ShowModal(content core.InfoContent) error {
	if err := h.state.ShowModal(content); err != nil {
		return err
	}
	h.broadcast(streaming.TypeShowModal, streaming.InfoPayload{Content: content})
	return nil
}

func (h *Hub) Refresh(content core.InfoContent) error {
	if err := h.state.Refresh(content); err != nil {
		return err
	}
	h.broadcast(streaming.TypeRefresh, streaming.InfoPayload{Content: content})
	return nil
}

func (h *Hub) Hide() error {
	if err := h.state.Hide(); err != nil {
		return err
	}
	h.broadcast(streaming.TypeHide, struct{}{})
	return nil
}

// Notify broadcasts a controller notification.
func (h *Hub) Notify(n mapctl.Notification) {
	h.broadcast(streaming.TypeNotification, n)
}
