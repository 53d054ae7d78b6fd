package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"minigames/internal/game"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/minigames.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRoomRoundTripAndOwnership(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	room, err := store.CreateRoom(ctx, Room{Name: " lounge ", Owner: "ana"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.ID == "" || room.Name != "lounge" {
		t.Fatalf("room = %+v", room)
	}
	got, err := store.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Owner != "ana" || !got.CreatedAt.Equal(room.CreatedAt) {
		t.Fatalf("got %+v, want %+v", got, room)
	}

	if _, err := store.CreateRoom(ctx, Room{ID: room.ID, Name: "dup", Owner: "bo"}); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("duplicate room: %v", err)
	}
	if _, err := store.GetRoom(ctx, "missing"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("missing room: %v", err)
	}

	cases := []struct {
		room, who string
		want      bool
	}{
		{room.ID, "ana", true},
		{room.ID, "bo", false},
		{"missing", "ana", false},
	}
	for _, tc := range cases {
		ok, err := store.CanStart(ctx, tc.room, tc.who)
		if err != nil || ok != tc.want {
			t.Errorf("CanStart(%s, %s) = %v, %v; want %v", tc.room, tc.who, ok, err, tc.want)
		}
	}
}

func TestMessagesNewestWindowOldestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	room, err := store.CreateRoom(ctx, Room{Name: "lounge", Owner: "ana"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		if _, err := store.AppendMessage(ctx, Message{
			RoomID:    room.ID,
			Author:    "ana",
			Content:   text,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("append %s: %v", text, err)
		}
	}

	msgs, err := store.ListMessages(ctx, room.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Fatalf("messages = %+v", msgs)
	}

	if _, err := store.AppendMessage(ctx, Message{RoomID: room.ID, Author: "ana", Content: "  "}); game.CodeOf(err) != game.CodeInvalidInput {
		t.Fatalf("blank message: %v", err)
	}
	if _, err := store.AppendMessage(ctx, Message{RoomID: "nope", Author: "ana", Content: "hi"}); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("message to missing room: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := t.TempDir() + "/minigames.db"
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	room, err := store.CreateRoom(context.Background(), Room{Name: "lounge", Owner: "ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = store.Close()

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if _, err := again.GetRoom(context.Background(), room.ID); err != nil {
		t.Fatalf("room lost across reopen: %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("empty path accepted")
	}
}
