package network

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authenticator resolves the identity of an upgrade request before any
// game traffic is accepted.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// Server upgrades authenticated HTTP requests to websocket clients of its hub.
type Server struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewServer wires handler into a new hub. allowOrigin decides CheckOrigin;
// nil accepts every origin.
func NewServer(handler EventHandler, auth Authenticator, allowOrigin func(r *http.Request) bool, log *zap.SugaredLogger) *Server {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		hub:  NewHub(handler, log),
		auth: auth,
		upgrader: websocket.Upgrader{
			CheckOrigin:     allowOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// Run starts the hub and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

// ServeHTTP authenticates, upgrades and starts the client loops.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := s.auth.Authenticate(r)
	if err != nil {
		s.log.Infof("[Server] rejected connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("[Server] upgrade failed for %s: %v", identity, err)
		return
	}

	client := newClient(conn, s.hub, identity, s.log)
	s.hub.register <- client

	go client.writeLoop()
	go client.readLoop()
}
