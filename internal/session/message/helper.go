package message

import "minigames/internal/network"

// Sender is anything that can take an outbound envelope without blocking.
type Sender interface {
	Deliver(msg network.Message) bool
}

// Send delivers an event to one recipient.
func Send(to Sender, event string, payload any) bool {
	return to.Deliver(New(event, payload))
}

// SendError reports a rejected inbound event to its sender.
func SendError(to Sender, event string, err error) bool {
	return to.Deliver(NewError(event, err))
}
