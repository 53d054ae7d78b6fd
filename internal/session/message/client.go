// Package message builds the envelopes the server sends to clients.
package message

import (
	"errors"

	"minigames/internal/game"
	"minigames/internal/network"
)

// ErrorPayload is the body of an error event. It always goes to the sender
// of the rejected event only.
type ErrorPayload struct {
	Event   string    `json:"event"`
	Code    game.Code `json:"code"`
	Message string    `json:"message"`
}

// New builds an outbound envelope. A payload that cannot be encoded turns
// into an internal error event so the client still learns something failed.
func New(event string, payload any) network.Message {
	msg, err := network.NewMessage(event, payload)
	if err != nil {
		return NewError(event, err)
	}
	return msg
}

// NewError builds the error event answering the inbound event.
func NewError(event string, err error) network.Message {
	text := err.Error()
	var e *game.Error
	if errors.As(err, &e) {
		text = e.Message
	}
	msg, _ := network.NewMessage(Error, ErrorPayload{Event: event, Code: game.CodeOf(err), Message: text})
	return msg
}
