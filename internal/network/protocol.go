package network

import (
	"encoding/json"
	"fmt"
)

// Message is the envelope for every event on the client channel.
// Type names the event ("start-game", "world-state", ...), Payload carries
// its event-specific body, decoded later by whoever handles Type.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MaxMessageSize bounds a single inbound frame.
const MaxMessageSize = 64 * 1024

// NewMessage encodes payload into an envelope of the given type. A nil
// payload produces an envelope without body.
func NewMessage(eventType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: eventType}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Message{Type: eventType, Payload: b}, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}
