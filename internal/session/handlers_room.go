package session

import (
	"unicode/utf8"

	"minigames/internal/game"
	"minigames/internal/lobby"
	"minigames/internal/network"
	"minigames/internal/session/message"
	"minigames/internal/storage/sqlite"
)

const maxRoomMessageLen = 2000

func (h *GameHandler) registerRoomHandlers() {
	h.register(message.JoinRoom, handleJoinRoom)
	h.register(message.LeaveRoom, handleLeaveRoom)
	h.register(message.SendMessage, handleSendMessage)
	h.register(message.RequestOnlineUsers, handleRequestOnlineUsers)
}

// handleJoinRoom subscribes the player to the room's channel: chat and lobby events.
func handleJoinRoom(h *GameHandler, p *Player, msg network.Message) error {
	var req roomPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	if err := required("roomId", req.RoomID); err != nil {
		return err
	}
	h.channels.Join(lobby.RoomChannel(req.RoomID), p.Identity)
	return nil
}

func handleLeaveRoom(h *GameHandler, p *Player, msg network.Message) error {
	var req roomPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	if err := required("roomId", req.RoomID); err != nil {
		return err
	}
	h.channels.Leave(lobby.RoomChannel(req.RoomID), p.Identity)
	return nil
}

// handleSendMessage persists a chat line and echoes it to the room.
func handleSendMessage(h *GameHandler, p *Player, msg network.Message) error {
	var req sendMessagePayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	if err := required("roomId", req.RoomID); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.Content) > maxRoomMessageLen {
		return game.Errorf(game.CodeInvalidInput, "message longer than %d characters", maxRoomMessageLen)
	}
	ctx, cancel := h.call()
	defer cancel()
	saved, err := h.chat.AppendMessage(ctx, sqlite.Message{RoomID: req.RoomID, Author: p.Identity, Content: req.Content})
	if err != nil {
		return err
	}
	h.channels.BroadcastToChannels(message.ReceiveMessage, saved, lobby.RoomChannel(req.RoomID))
	return nil
}

func handleRequestOnlineUsers(h *GameHandler, p *Player, _ network.Message) error {
	message.Send(p.Client, message.OnlineUsers, OnlineUsers{Users: h.presence.Online()})
	return nil
}
