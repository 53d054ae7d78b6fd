// Package session turns inbound client events into calls on the lobby
// manager, the running game sessions and the room channels.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"minigames/internal/broadcast"
	"minigames/internal/game"
	"minigames/internal/lobby"
	"minigames/internal/network"
	"minigames/internal/presence"
	"minigames/internal/session/message"
	"minigames/internal/storage/sqlite"
)

// CommandHandlerFunc handles one inbound event type for one player.
type CommandHandlerFunc func(h *GameHandler, p *Player, msg network.Message) error

// Lobbies is the lobby manager surface the router uses.
type Lobbies interface {
	RequestGame(ctx context.Context, room, requester, kind string) (lobby.View, error)
	JoinLobby(ctx context.Context, lobbyID, identity string) (lobby.View, error)
	LeaveLobby(ctx context.Context, lobbyID, identity string) (lobby.View, error)
	State(ctx context.Context, lobbyID string) (lobby.View, error)
}

// Sessions resolves live game sessions.
type Sessions interface {
	Get(id string) (game.Session, error)
}

// MessageSink persists room chat.
type MessageSink interface {
	AppendMessage(ctx context.Context, msg sqlite.Message) (sqlite.Message, error)
}

// GameHandler implements network.EventHandler. Every method runs on the hub
// goroutine, so the players map needs no lock.
type GameHandler struct {
	players map[*network.Client]*Player

	presence *presence.Registry
	channels *broadcast.Broadcaster
	lobbies  Lobbies
	sessions Sessions
	chat     MessageSink
	log      *zap.SugaredLogger

	ctx         context.Context
	callTimeout time.Duration

	router map[string]CommandHandlerFunc
}

func NewGameHandler(ctx context.Context, pres *presence.Registry, channels *broadcast.Broadcaster, lobbies Lobbies, sessions Sessions, chat MessageSink, log *zap.SugaredLogger) *GameHandler {
	h := &GameHandler{
		players:     make(map[*network.Client]*Player),
		presence:    pres,
		channels:    channels,
		lobbies:     lobbies,
		sessions:    sessions,
		chat:        chat,
		log:         log,
		ctx:         ctx,
		callTimeout: 5 * time.Second,
		router:      make(map[string]CommandHandlerFunc),
	}
	h.registerLobbyHandlers()
	h.registerRoomHandlers()
	h.registerGameHandlers()

	pres.Observe(func(ev presence.Event) {
		channels.BroadcastAll(message.OnlineUsers, OnlineUsers{Users: ev.Users})
	})
	return h
}

func (h *GameHandler) register(event string, fn CommandHandlerFunc) {
	if _, dup := h.router[event]; dup {
		panic("session: handler registered twice for " + event)
	}
	h.router[event] = fn
}

// OnConnect binds the identity to its new transport, replacing any older one.
func (h *GameHandler) OnConnect(c *network.Client) {
	p := newPlayer(c)
	h.players[c] = p
	if prev := h.presence.Bind(p.Identity, c); prev != nil && prev != presence.Transport(c) {
		h.log.Infof("[GameHandler] %s reconnected, previous transport replaced", p.Identity)
	}
}

// OnDisconnect releases the binding unless a newer connection already took it.
func (h *GameHandler) OnDisconnect(c *network.Client) {
	p, ok := h.players[c]
	if !ok {
		return
	}
	delete(h.players, c)
	h.presence.Release(p.Identity, c)
}

func (h *GameHandler) OnMessage(c *network.Client, msg network.Message) {
	p, ok := h.players[c]
	if !ok {
		return
	}
	fn, found := h.router[msg.Type]
	if !found {
		message.SendError(c, msg.Type, game.Errorf(game.CodeInvalidInput, "unknown event %q", msg.Type))
		return
	}
	if err := fn(h, p, msg); err != nil {
		h.log.Debugf("[GameHandler] %s from %s rejected: %v", msg.Type, p.Identity, err)
		message.SendError(c, msg.Type, err)
	}
}

// call bounds a blocking call made from the hub goroutine.
func (h *GameHandler) call() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.ctx, h.callTimeout)
}

// decode unmarshals the payload of msg into v, mapping failures to invalid_input.
func decode(msg network.Message, v any) error {
	if err := msg.Decode(v); err != nil {
		return game.Errorf(game.CodeInvalidInput, "malformed payload: %v", err)
	}
	return nil
}

func required(name, value string) error {
	if value == "" {
		return game.Errorf(game.CodeInvalidInput, "%s is required", name)
	}
	return nil
}
