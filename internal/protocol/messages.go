package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/smukkama/water-monitor/internal/alarming"
	"github.com/smukkama/water-monitor/internal/quality"
)

// MessageType represents the type of a stream message
type MessageType string

const (
	// Server to client
	MsgTypeSnapshot      MessageType = "snapshot"
	MsgTypeTick          MessageType = "tick"
	MsgTypeAlertsCleared MessageType = "alerts_cleared"
	MsgTypeInsight       MessageType = "insight"

	// Client to server
	MsgTypePing MessageType = "ping"
)

// Envelope wraps every message sent over the websocket stream
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TickPayload is the body of a tick message
type TickPayload struct {
	Tick       uint64              `json:"tick"`
	Reading    quality.Reading     `json:"reading"`
	Parameters []quality.Parameter `json:"parameters"`
	NewAlerts  []alarming.Alert    `json:"new_alerts"`
}

// Encode wraps a payload in an envelope and marshals it
func Encode(msgType MessageType, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// Decode parses an envelope without decoding its payload
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope has no type")
	}
	return &env, nil
}

// DecodePayload unmarshals the envelope payload into v
func (e *Envelope) DecodePayload(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}
