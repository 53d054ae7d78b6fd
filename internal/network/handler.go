package network

// EventHandler connects the transport to the game logic. All three methods
// are called from the hub goroutine, one at a time.
type EventHandler interface {
	// OnConnect is called once an authenticated client is registered.
	OnConnect(c *Client)

	// OnDisconnect is called after the client's outbound queue is closed.
	OnDisconnect(c *Client)

	// OnMessage is called for every inbound envelope.
	OnMessage(c *Client, msg Message)
}
