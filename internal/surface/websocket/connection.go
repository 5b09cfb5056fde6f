package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/pkg/streaming"
)

const (
	sendChSize     = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// client is one browser connection with a single write goroutine.
type client struct {
	id     string
	hub    *Hub
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newClient(id string, hub *Hub, conn *ws.Conn) *client {
	return &client{
		id:     id,
		hub:    hub,
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: hub.logger.With("client", id),
	}
}

// writeLoop drains sendCh and keeps the connection alive with pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("WebSocket ping failed", "error", err)
				return
			}
		}
	}
}

// readLoop turns intent messages into dispatcher events until the
// connection drops.
func (c *client) readLoop() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				c.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
		c.handle(message)
	}
}

func (c *client) handle(message []byte) {
	var env streaming.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.ack(streaming.AckPayload{Error: fmt.Sprintf("invalid envelope: %v", err)})
		return
	}
	if env.Type != streaming.TypeIntent {
		c.ack(streaming.AckPayload{Error: fmt.Sprintf("unsupported message type %q", env.Type)})
		return
	}

	var in streaming.IntentPayload
	if err := json.Unmarshal(env.Payload, &in); err != nil {
		c.ack(streaming.AckPayload{Error: fmt.Sprintf("invalid intent: %v", err)})
		return
	}

	d := c.hub.dispatcher()
	if d == nil {
		c.ack(streaming.AckPayload{Intent: in.Name, Error: "intents are not accepted"})
		return
	}
	result, err := d.Dispatch(dispatcher.Event{Name: in.Name, Args: in.Args, Source: "ws:" + c.id})
	ack := streaming.AckPayload{Intent: in.Name, Result: result}
	if err != nil {
		ack.Error = err.Error()
	}
	c.ack(ack)
}

func (c *client) ack(a streaming.AckPayload) {
	data, err := streaming.Marshal(streaming.TypeAck, a)
	if err != nil {
		c.logger.Error("Failed to encode ack", "intent", a.Intent, "error", err)
		return
	}
	c.send(data)
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *client) send(data []byte) {
	select {
	case <-c.done:
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// close sends a close frame and shuts the connection down once.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = c.conn.Close()
	})
}
