// Package streaming defines the websocket protocol used to stream a session
// to a live viewer.
package streaming

import (
	"encoding/json"

	"github.com/rorsim/gfxbridge/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeAddActor     = "add_actor"
	TypeFrame        = "frame"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries the session header.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// FramePayload is one sampled snapshot of an actor.
type FramePayload = core.Frame
