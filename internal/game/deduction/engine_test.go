package deduction

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

func fastRules() Rules {
	r := DefaultRules()
	r.ClueTime = 40 * time.Millisecond
	r.DiscussionTime = 40 * time.Millisecond
	r.VotingTime = 40 * time.Millisecond
	r.TimerEvery = 10 * time.Millisecond
	return r
}

func newTestEngine(t *testing.T, rules Rules) (*Engine, *game.Registry, *gametest.Broadcaster) {
	reg := game.NewRegistry()
	bc := gametest.NewBroadcaster()
	return NewEngine(reg, bc, zaptest.NewLogger(t).Sugar(), WithRules(rules), WithSeed(3)), reg, bc
}

func waitPhase(t *testing.T, bc *gametest.Broadcaster, phase Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, s := range bc.Events(message.PhaseState) {
			if s.Payload.(PhaseState).Phase == phase {
				return
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("never reached %s", phase)
}

func TestEngineDealsRolesAndRegisters(t *testing.T) {
	e, reg, bc := newTestEngine(t, DefaultRules())
	sess, err := e.Start(game.StartSpec{SessionID: "d1", Room: "r1", Roster: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer gametest.StopAndWait(t, sess)

	if _, err := reg.Get("d1"); err != nil {
		t.Fatalf("not registered: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		deadline := time.Now().Add(time.Second)
		for len(bc.To(name, message.RoleInfo)) == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("%s never got role-info", name)
			}
			time.Sleep(2 * time.Millisecond)
		}
	}
	sabs := 0
	for _, s := range bc.Events(message.RoleInfo) {
		if s.Payload.(RoleInfo).Role == RoleSaboteur {
			sabs++
		}
	}
	if sabs != 1 {
		t.Fatalf("saboteurs = %d, want 1", sabs)
	}

	if _, err := e.Start(game.StartSpec{SessionID: "d2", Room: "r1", Roster: []string{"x"}}); !errors.Is(err, game.ErrAlreadyActive) {
		t.Fatalf("second session in room: %v, want already active", err)
	}
}

func TestEngineTimersDrivePhases(t *testing.T) {
	e, _, bc := newTestEngine(t, fastRules())
	sess, err := e.Start(game.StartSpec{SessionID: "d3", Room: "r3", Roster: []string{"a", "b", "c", "d"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer gametest.StopAndWait(t, sess)

	waitPhase(t, bc, PhaseDiscussion)
	waitPhase(t, bc, PhaseVoting)
	res := bc.WaitFor(t, message.VoteResults, 2*time.Second).Payload.(VoteResults)
	if res.Ejected != nil {
		t.Fatalf("nobody voted but %q was ejected", *res.Ejected)
	}
	bc.WaitFor(t, message.TimerUpdate, time.Second)
}

func TestEngineRejectsToSenderOnly(t *testing.T) {
	e, _, bc := newTestEngine(t, DefaultRules())
	sess, err := e.Start(game.StartSpec{SessionID: "d4", Room: "r4", Roster: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer gametest.StopAndWait(t, sess)

	if err := sess.Deliver(CastVote{Player: "a", Target: "b"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	got := bc.WaitFor(t, message.Error, time.Second)
	if got.To != "a" {
		t.Fatalf("error went to %q", got.To)
	}
	p := got.Payload.(message.ErrorPayload)
	if p.Event != message.SubmitVote || p.Code != game.CodeWrongPhase {
		t.Fatalf("error payload = %+v", p)
	}
}

func TestEngineEndsAndUnregisters(t *testing.T) {
	e, reg, bc := newTestEngine(t, DefaultRules())
	sess, err := e.Start(game.StartSpec{SessionID: "d5", Room: "r5", Roster: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	s := sess.(*Session)

	for _, n := range []string{"a", "b", "c"} {
		_ = s.Deliver(SubmitClue{Player: n, Text: "hint"})
	}
	waitPhase(t, bc, PhaseDiscussion)
	s.Stop("owner left")
	gametest.WaitDone(t, s.Done(), time.Second)

	cancelled := bc.WaitFor(t, message.SessionCancelled, time.Second).Payload.(map[string]string)
	if cancelled["reason"] != "owner left" {
		t.Fatalf("reason = %q", cancelled["reason"])
	}
	if _, err := reg.Get("d5"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("lookup after stop: %v", err)
	}
	if err := s.Deliver(SubmitClue{Player: "a", Text: "x"}); !errors.Is(err, game.ErrSessionClosed) {
		t.Fatalf("deliver after stop: %v", err)
	}
}

func TestEngineAttachSendsPrivateState(t *testing.T) {
	e, _, bc := newTestEngine(t, DefaultRules())
	sess, err := e.Start(game.StartSpec{SessionID: "d6", Room: "r6", Roster: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer gametest.StopAndWait(t, sess)

	_ = sess.Deliver(game.Attach{Identity: "late"})
	deadline := time.Now().Add(time.Second)
	for len(bc.To("late", message.PhaseState)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("late joiner got no state")
		}
		time.Sleep(2 * time.Millisecond)
	}
	members, _ := bc.Members("d6")
	if len(members) != 4 {
		t.Fatalf("members = %v", members)
	}
}

func TestFaultTearsDownOnlyThatSession(t *testing.T) {
	reg := game.NewRegistry()
	bc := &gametest.Faulty{Broadcaster: gametest.NewBroadcaster(), Identity: "boom"}
	e := NewEngine(reg, bc, zaptest.NewLogger(t).Sugar(), WithSeed(3))

	bad, err := e.Start(game.StartSpec{SessionID: "bad", Room: "r1", Roster: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("start bad: %v", err)
	}
	ok, err := e.Start(game.StartSpec{SessionID: "ok", Room: "r2", Roster: []string{"d", "e", "f"}})
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
	if err := ok.Deliver(SubmitClue{Player: "d", Text: "hint"}); err != nil {
		t.Fatalf("sibling rejects input: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for {
		found := false
		for _, ev := range bc.Events(message.PlayerSubmitted) {
			if ev.Channels[0] == "ok" {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sibling session stopped handling input")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestStopAndWaitOutlastsFinalLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := NewEngine(game.NewRegistry(), gametest.NewBroadcaster(), zap.New(core).Sugar(), WithRules(DefaultRules()), WithSeed(3))
	sess, err := e.Start(game.StartSpec{SessionID: "s1", Room: "r1", Roster: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	gametest.StopAndWait(t, sess)
	if logs.FilterMessage("[Deduction s1] stopped: test done").Len() != 1 {
		t.Fatalf("session exited without its stop line: %v", logs.All())
	}
}
