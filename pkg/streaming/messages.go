package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/venuemap/explorer/pkg/core"
)

// Server to client message types.
const (
	TypeSnapshot     = "snapshot"
	TypePlace        = "place"
	TypeIcon         = "icon"
	TypeVisible      = "visible"
	TypeZIndex       = "zindex"
	TypeRemove       = "remove"
	TypeFit          = "fit"
	TypePan          = "pan"
	TypeResize       = "resize"
	TypeShowInline   = "show_inline"
	TypeShowModal    = "show_modal"
	TypeRefresh      = "refresh"
	TypeHide         = "hide"
	TypeNotification = "notification"
	TypeAck          = "ack"
)

// TypeIntent is the only client to server message type.
const TypeIntent = "intent"

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// PinPayload describes one pin in place and snapshot messages.
type PinPayload struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	At      core.Coordinate `json:"at"`
	Icon    string          `json:"icon"`
	Visible bool            `json:"visible"`
	ZIndex  int64           `json:"zIndex"`
}

// IconPayload carries a pin icon change.
type IconPayload struct {
	ID   string `json:"id"`
	Icon string `json:"icon"`
}

// VisiblePayload carries a pin visibility change.
type VisiblePayload struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// ZIndexPayload carries a pin stacking change.
type ZIndexPayload struct {
	ID     string `json:"id"`
	ZIndex int64  `json:"zIndex"`
}

// RemovePayload names a removed pin.
type RemovePayload struct {
	ID string `json:"id"`
}

// FitPayload asks the client to fit the viewport to a box.
type FitPayload struct {
	SouthWest core.Coordinate `json:"southWest"`
	NorthEast core.Coordinate `json:"northEast"`
	Count     int             `json:"count"`
}

// PanPayload moves the viewport center.
type PanPayload struct {
	Center core.Coordinate `json:"center"`
}

// ResizePayload reports the logical viewport size.
type ResizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// InfoPayload carries info surface content. Anchor is empty for modal
// presentation and for refreshes.
type InfoPayload struct {
	Anchor  string           `json:"anchor,omitempty"`
	Content core.InfoContent `json:"content"`
}

// SnapshotPayload is the full rendered state sent to a new client.
type SnapshotPayload struct {
	ClientID string          `json:"clientId"`
	Center   core.Coordinate `json:"center"`
	Pins     []PinPayload    `json:"pins"`
	Info     *InfoPayload    `json:"info,omitempty"`
	Modal    bool            `json:"modal"`
}

// IntentPayload is a user intent sent by a client.
type IntentPayload struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// AckPayload answers an intent.
type AckPayload struct {
	Intent string `json:"intent"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
