// Package api exposes the room directory and live session listing over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"minigames/internal/game"
	"minigames/internal/lobby"
	"minigames/internal/storage/sqlite"
)

// Rooms is the room directory and message history.
type Rooms interface {
	CreateRoom(ctx context.Context, room sqlite.Room) (sqlite.Room, error)
	GetRoom(ctx context.Context, id string) (sqlite.Room, error)
	ListMessages(ctx context.Context, roomID string, limit int) ([]sqlite.Message, error)
}

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

type Lister interface {
	List() []game.SessionInfo
}

type LobbyLister interface {
	Lobbies(ctx context.Context) ([]lobby.View, error)
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type ErrorResponse struct {
	Code  game.Code `json:"code"`
	Error string    `json:"error"`
}

type SessionsResponse struct {
	Sessions []game.SessionInfo `json:"sessions"`
	Lobbies  []lobby.View       `json:"lobbies"`
}

// Register mounts every endpoint on mux.
func Register(mux *http.ServeMux, rooms Rooms, auth Authenticator, sessions Lister, lobbies LobbyLister, log *zap.SugaredLogger) {
	mux.HandleFunc("POST /rooms", CreateRoomHandler(rooms, auth, log))
	mux.HandleFunc("GET /rooms/{id}", GetRoomHandler(rooms, log))
	mux.HandleFunc("GET /rooms/{id}/messages", ListMessagesHandler(rooms, log))
	mux.HandleFunc("GET /sessions", ListSessionsHandler(sessions, lobbies, log))
}

// CreateRoomHandler creates a room owned by the authenticated caller.
func CreateRoomHandler(rooms Rooms, auth Authenticator, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := auth.Authenticate(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Code: game.CodeNotOwner, Error: "unauthorized"})
			return
		}
		var req CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: game.CodeInvalidInput, Error: "invalid payload"})
			return
		}
		room, err := rooms.CreateRoom(r.Context(), sqlite.Room{Name: req.Name, Owner: owner})
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Infof("[API] %s created room %s (%s)", owner, room.ID, room.Name)
		writeJSON(w, http.StatusCreated, room)
	}
}

func GetRoomHandler(rooms Rooms, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := rooms.GetRoom(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// ListMessagesHandler returns the newest ?limit= messages of a room, oldest first.
func ListMessagesHandler(rooms Rooms, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := rooms.GetRoom(r.Context(), id); err != nil {
			writeError(w, log, err)
			return
		}
		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: game.CodeInvalidInput, Error: "limit must be a positive integer"})
				return
			}
			limit = n
		}
		msgs, err := rooms.ListMessages(r.Context(), id, limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if msgs == nil {
			msgs = []sqlite.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// ListSessionsHandler lists live sessions and forming lobbies.
func ListSessionsHandler(sessions Lister, lobbies LobbyLister, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := lobbies.Lobbies(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		if views == nil {
			views = []lobby.View{}
		}
		writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions.List(), Lobbies: views})
	}
}

func writeError(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	var ge *game.Error
	if !errors.As(err, &ge) {
		if errors.Is(err, sqlite.ErrRoomExists) {
			writeJSON(w, http.StatusConflict, ErrorResponse{Code: game.CodeAlreadyActive, Error: err.Error()})
			return
		}
		log.Errorf("[API] %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: game.CodeInternal, Error: "internal error"})
		return
	}
	status := http.StatusBadRequest
	switch ge.Code {
	case game.CodeNotFound:
		status = http.StatusNotFound
	case game.CodeNotOwner:
		status = http.StatusForbidden
	case game.CodeSessionClosed:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ErrorResponse{Code: ge.Code, Error: ge.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
