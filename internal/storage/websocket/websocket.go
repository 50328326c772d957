// Package websocket streams a session to a live viewer over a WebSocket.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/pkg/core"
	"github.com/rorsim/gfxbridge/pkg/streaming"
)

// Backend streams session data over WebSocket.
type Backend struct {
	conn    *connection
	cfg     config.WebSocketConfig
	started atomic.Bool
}

// New creates a new WebSocket storage backend. It does not dial; Init does.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger, cfg.WriteTimeout),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	if b.cfg.URL == "" {
		return fmt.Errorf("websocket backend: no url configured")
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartSession sends the session header and waits for the server ack.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}
	b.conn.remember(data, true)
	if err := b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout); err != nil {
		return err
	}
	b.started.Store(true)
	return nil
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	if !b.started.Swap(false) {
		return core.ErrNoSession
	}
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)
	b.conn.forget()
	return err
}

// AddActor sends the actor and keeps it for reconnect replay.
func (b *Backend) AddActor(a *core.ActorInfo) error {
	if !b.started.Load() {
		return core.ErrNoSession
	}
	data, err := marshalEnvelope(streaming.TypeAddActor, a)
	if err != nil {
		return err
	}
	b.conn.remember(data, false)
	b.conn.send(data)
	return nil
}

// RecordFrame sends the frame without waiting.
func (b *Backend) RecordFrame(f *core.Frame) error {
	if !b.started.Load() {
		return core.ErrNoSession
	}
	data, err := marshalEnvelope(streaming.TypeFrame, f)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}
