package network

import (
	"context"

	"go.uber.org/zap"
)

type clientMessage struct {
	client *Client
	msg    Message
}

// Hub owns the set of live clients and serializes every connection event
// into the EventHandler.
type Hub struct {
	// Only touched by the Run goroutine.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	incoming   chan clientMessage

	handler EventHandler
	log     *zap.SugaredLogger
}

func NewHub(handler EventHandler, log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan clientMessage),
		handler:    handler,
		log:        log,
	}
}

// Run processes hub events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.log.Infof("[Hub] %s connected from %s (%d clients)", client.identity, client.RemoteAddr(), len(h.clients))
			h.handler.OnConnect(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Closing the queue is what stops the client's writeLoop.
				client.close()
				h.log.Infof("[Hub] %s disconnected (%d clients)", client.identity, len(h.clients))
				h.handler.OnDisconnect(client)
			}

		case cm := <-h.incoming:
			if _, ok := h.clients[cm.client]; !ok {
				continue
			}
			h.handler.OnMessage(cm.client, cm.msg)

		case <-ctx.Done():
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.drain()
			return
		}
	}
}

// drain unblocks client goroutines still trying to reach a stopped hub.
func (h *Hub) drain() {
	go func() {
		for {
			select {
			case <-h.unregister:
			case <-h.incoming:
			case <-h.register:
			}
		}
	}()
}
