package session

import (
	"minigames/internal/network"
	"minigames/internal/session/message"
)

func (h *GameHandler) registerLobbyHandlers() {
	h.register(message.StartGame, handleStartGame)
	h.register(message.JoinLobby, handleJoinLobby)
	h.register(message.LeaveLobby, handleLeaveLobby)
	h.register(message.RequestLobbyState, handleRequestLobbyState)
}

// handleStartGame opens a lobby. The manager broadcasts lobby-state to the
// room, which includes the requester.
func handleStartGame(h *GameHandler, p *Player, msg network.Message) error {
	var req startGamePayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	if err := required("roomId", req.RoomID); err != nil {
		return err
	}
	ctx, cancel := h.call()
	defer cancel()
	v, err := h.lobbies.RequestGame(ctx, req.RoomID, p.Identity, req.Kind)
	if err != nil {
		return err
	}
	p.LobbyID = v.ID
	return nil
}

func handleJoinLobby(h *GameHandler, p *Player, msg network.Message) error {
	var req lobbyPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	if err := required("lobbyId", req.LobbyID); err != nil {
		return err
	}
	ctx, cancel := h.call()
	defer cancel()
	v, err := h.lobbies.JoinLobby(ctx, req.LobbyID, p.Identity)
	if err != nil {
		return err
	}
	p.LobbyID = v.ID
	message.Send(p.Client, message.LobbyState, v)
	return nil
}

func handleLeaveLobby(h *GameHandler, p *Player, msg network.Message) error {
	var req lobbyPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	id := p.lobbyOr(req.LobbyID)
	if err := required("lobbyId", id); err != nil {
		return err
	}
	ctx, cancel := h.call()
	defer cancel()
	if _, err := h.lobbies.LeaveLobby(ctx, id, p.Identity); err != nil {
		return err
	}
	if p.LobbyID == id {
		p.LobbyID = ""
	}
	return nil
}

func handleRequestLobbyState(h *GameHandler, p *Player, msg network.Message) error {
	var req lobbyPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	id := p.lobbyOr(req.LobbyID)
	if err := required("lobbyId", id); err != nil {
		return err
	}
	ctx, cancel := h.call()
	defer cancel()
	v, err := h.lobbies.State(ctx, id)
	if err != nil {
		return err
	}
	message.Send(p.Client, message.LobbyState, v)
	return nil
}
