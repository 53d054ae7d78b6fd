package shooter

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"minigames/internal/game"
	"minigames/internal/game/gametest"
	"minigames/internal/session/message"
)

func fastTuning() Tuning {
	t := DefaultTuning()
	t.TickHz = 200
	return t
}

func newTestEngine(t *testing.T) (*Engine, *game.Registry, *gametest.Broadcaster) {
	reg := game.NewRegistry()
	bc := gametest.NewBroadcaster()
	e := NewEngine(reg, bc, zaptest.NewLogger(t).Sugar(), WithTuning(fastTuning()), WithSeed(7))
	return e, reg, bc
}

func TestGameOverFiresOnceAndUnregisters(t *testing.T) {
	e, reg, bc := newTestEngine(t)
	s, err := e.newSession(game.StartSpec{SessionID: "s1", Room: "r1", Roster: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	s.world.Ships[1].Health = 0
	s.world.Ships[1].Alive = false
	if err := e.launch(s); err != nil {
		t.Fatalf("launch: %v", err)
	}

	gametest.WaitDone(t, s.Done(), time.Second)
	time.Sleep(20 * time.Millisecond)

	overs := bc.Events(message.GameOver)
	if len(overs) != 1 {
		t.Fatalf("game-over events = %d, want 1", len(overs))
	}
	over := overs[0].Payload.(GameOver)
	if over.Winner != "a" {
		t.Fatalf("winner = %q, want a", over.Winner)
	}
	if len(over.Scores) != 2 {
		t.Fatalf("scores = %+v", over.Scores)
	}
	if _, err := reg.Get("s1"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("lookup after game over: %v, want not found", err)
	}
	if _, ok := reg.ActiveForRoom("r1"); ok {
		t.Fatalf("room mapping not released")
	}
	if s.Status() != StatusOver {
		t.Fatalf("status = %s, want over", s.Status())
	}
	if err := s.Deliver(Shoot{Player: "a"}); !errors.Is(err, game.ErrSessionClosed) {
		t.Fatalf("deliver after close: %v", err)
	}
}

func TestStartBroadcastsWorldAndAcceptsInput(t *testing.T) {
	e, reg, bc := newTestEngine(t)
	sess, err := e.Start(game.StartSpec{SessionID: "s2", Room: "r2", Roster: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer gametest.StopAndWait(t, sess)

	if _, err := reg.Get("s2"); err != nil {
		t.Fatalf("session not registered: %v", err)
	}
	if m, _ := bc.Members("s2"); len(m) != 2 {
		t.Fatalf("channel members = %v", m)
	}

	sess.Deliver(Move{Player: "a", X: 50, Y: 400})
	deadline := time.Now().Add(time.Second)
	for {
		found := false
		for _, ev := range bc.Events(message.WorldState) {
			ws := ev.Payload.(WorldState)
			if len(ws.Ships) > 0 && ws.Ships[0].X == 50 && ws.Ships[0].Y == 400 {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("move never reflected in world-state")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopCancelsSession(t *testing.T) {
	e, reg, bc := newTestEngine(t)
	sess, err := e.Start(game.StartSpec{SessionID: "s3", Room: "r3", Roster: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sess.Stop("room closed")
	sess.Stop("again")
	gametest.WaitDone(t, sess.Done(), time.Second)

	ev := bc.WaitFor(t, message.SessionCancelled, time.Second)
	if ev.Payload.(map[string]string)["reason"] != "room closed" {
		t.Fatalf("reason = %v", ev.Payload)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry still holds %d sessions", reg.Len())
	}
	if len(bc.Events(message.GameOver)) != 0 {
		t.Fatalf("cancelled session must not report game over")
	}
}

func TestAttachAddsSpectator(t *testing.T) {
	e, _, bc := newTestEngine(t)
	sess, err := e.Start(game.StartSpec{SessionID: "s4", Room: "r4", Roster: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer gametest.StopAndWait(t, sess)

	sess.Deliver(game.Attach{Identity: "watcher"})
	deadline := time.Now().Add(time.Second)
	for len(bc.To("watcher", message.WorldState)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("spectator never received a snapshot")
		}
		time.Sleep(5 * time.Millisecond)
	}
	m, _ := bc.Members("s4")
	if len(m) != 3 || m[2] != "watcher" {
		t.Fatalf("members = %v", m)
	}
}

func TestStartRejectsDuplicateRoom(t *testing.T) {
	e, _, _ := newTestEngine(t)
	first, err := e.Start(game.StartSpec{SessionID: "s5", Room: "same", Roster: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer gametest.StopAndWait(t, first)
	if _, err := e.Start(game.StartSpec{SessionID: "s6", Room: "same", Roster: []string{"c", "d"}}); !errors.Is(err, game.ErrAlreadyActive) {
		t.Fatalf("second start: %v, want already active", err)
	}
}

func TestFaultTearsDownOnlyThatSession(t *testing.T) {
	reg := game.NewRegistry()
	bc := &gametest.Faulty{Broadcaster: gametest.NewBroadcaster(), Identity: "boom"}
	e := NewEngine(reg, bc, zaptest.NewLogger(t).Sugar(), WithTuning(fastTuning()), WithSeed(7))

	bad, err := e.Start(game.StartSpec{SessionID: "bad", Room: "r1", Roster: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("start bad: %v", err)
	}
	ok, err := e.Start(game.StartSpec{SessionID: "ok", Room: "r2", Roster: []string{"c", "d"}})
	if err != nil {
		t.Fatalf("start ok: %v", err)
	}
	defer gametest.StopAndWait(t, ok)

	_ = bad.Deliver(game.Attach{Identity: "boom"})
	gametest.WaitDone(t, bad.Done(), time.Second)

	var reason string
	for _, ev := range bc.Events(message.SessionCancelled) {
		if ev.Channels[0] == "bad" {
			reason = ev.Payload.(map[string]string)["reason"]
		}
	}
	if reason != "internal error" {
		t.Fatalf("cancellation reason = %q, want internal error", reason)
	}
	if _, err := reg.Get("bad"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("faulted session still registered: %v", err)
	}
	if _, err := reg.Get("ok"); err != nil {
		t.Fatalf("sibling session lost: %v", err)
	}
	select {
	case <-ok.Done():
		t.Fatalf("sibling session stopped")
	default:
	}
	if err := ok.Deliver(Shoot{Player: "c"}); err != nil {
		t.Fatalf("sibling rejects input: %v", err)
	}
}

func TestStopAndWaitOutlastsFinalLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := NewEngine(game.NewRegistry(), gametest.NewBroadcaster(), zap.New(core).Sugar(), WithTuning(fastTuning()), WithSeed(7))
	sess, err := e.Start(game.StartSpec{SessionID: "s1", Room: "r1", Roster: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	gametest.StopAndWait(t, sess)
	if logs.FilterMessage("[Shooter s1] stopped: test done").Len() != 1 {
		t.Fatalf("session exited without its stop line: %v", logs.All())
	}
}
