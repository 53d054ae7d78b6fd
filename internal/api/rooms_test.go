package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"minigames/internal/game"
	"minigames/internal/lobby"
	"minigames/internal/storage/sqlite"
)

type headerAuth struct{}

func (headerAuth) Authenticate(r *http.Request) (string, error) {
	if u := r.Header.Get("X-User"); u != "" {
		return u, nil
	}
	return "", errors.New("no user")
}

type noLobbies struct{}

func (noLobbies) Lobbies(context.Context) ([]lobby.View, error) { return nil, nil }

type fixedSessions []game.SessionInfo

func (f fixedSessions) List() []game.SessionInfo { return f }

func newMux(t *testing.T) (*http.ServeMux, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/api.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mux := http.NewServeMux()
	sessions := fixedSessions{{ID: "s1", Room: "r1", Kind: game.KindShooter, CreatedAt: time.Unix(100, 0)}}
	Register(mux, store, headerAuth{}, sessions, noLobbies{}, zaptest.NewLogger(t).Sugar())
	return mux, store
}

func do(mux http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetRoom(t *testing.T) {
	mux, _ := newMux(t)

	if rec := do(mux, http.MethodPost, "/rooms", "", `{"name":"lounge"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d", rec.Code)
	}
	if rec := do(mux, http.MethodPost, "/rooms", "ana", `{"name":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank name = %d", rec.Code)
	}

	rec := do(mux, http.MethodPost, "/rooms", "ana", `{"name":"lounge"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}
	var room sqlite.Room
	_ = json.NewDecoder(rec.Body).Decode(&room)
	if room.Owner != "ana" || room.ID == "" {
		t.Fatalf("room = %+v", room)
	}

	rec = do(mux, http.MethodGet, "/rooms/"+room.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/rooms/missing", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing room = %d", rec.Code)
	}
}

func TestListMessages(t *testing.T) {
	mux, store := newMux(t)
	ctx := context.Background()
	room, _ := store.CreateRoom(ctx, sqlite.Room{Name: "lounge", Owner: "ana"})
	for _, text := range []string{"a", "b", "c"} {
		if _, err := store.AppendMessage(ctx, sqlite.Message{RoomID: room.ID, Author: "ana", Content: text}); err != nil {
			t.Fatalf("append: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	rec := do(mux, http.MethodGet, "/rooms/"+room.ID+"/messages?limit=2", "", "")
	var msgs []sqlite.Message
	_ = json.NewDecoder(rec.Body).Decode(&msgs)
	if rec.Code != http.StatusOK || len(msgs) != 2 || msgs[1].Content != "c" {
		t.Fatalf("messages = %d %+v", rec.Code, msgs)
	}
	if rec := do(mux, http.MethodGet, "/rooms/"+room.ID+"/messages?limit=-1", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d", rec.Code)
	}
}

func TestListSessions(t *testing.T) {
	mux, _ := newMux(t)
	rec := do(mux, http.MethodGet, "/sessions", "", "")
	var resp SessionsResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || len(resp.Sessions) != 1 || resp.Sessions[0].ID != "s1" || resp.Lobbies == nil {
		t.Fatalf("sessions = %d %+v", rec.Code, resp)
	}
}
