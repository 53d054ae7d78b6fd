// Package gametest holds fakes shared by the engine and lobby tests.
package gametest

import (
	"sync"
	"testing"
	"time"
)

// Sent is one recorded outbound event. Exactly one of To and Channels is set.
type Sent struct {
	To       string
	Channels []string
	Event    string
	Payload  any
}

// Broadcaster records everything sent through it.
type Broadcaster struct {
	mu      sync.Mutex
	members map[string][]string
	sent    []Sent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{members: make(map[string][]string)}
}

func (b *Broadcaster) record(s Sent) {
	b.mu.Lock()
	b.sent = append(b.sent, s)
	b.mu.Unlock()
}

func (b *Broadcaster) BroadcastToSession(sessionID, event string, payload any) {
	b.record(Sent{Channels: []string{sessionID}, Event: event, Payload: payload})
}

func (b *Broadcaster) BroadcastToChannels(event string, payload any, channels ...string) {
	b.record(Sent{Channels: append([]string(nil), channels...), Event: event, Payload: payload})
}

func (b *Broadcaster) SendToIdentity(identity, event string, payload any) {
	b.record(Sent{To: identity, Event: event, Payload: payload})
}

func (b *Broadcaster) SetMembers(channel string, members []string) {
	b.mu.Lock()
	b.members[channel] = append([]string(nil), members...)
	b.mu.Unlock()
}

func (b *Broadcaster) Drop(channel string) {
	b.mu.Lock()
	delete(b.members, channel)
	b.mu.Unlock()
}

// Members returns the last membership set for channel.
func (b *Broadcaster) Members(channel string) ([]string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.members[channel]
	return append([]string(nil), m...), ok
}

// Events returns every recorded event of the given name, oldest first.
func (b *Broadcaster) Events(event string) []Sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Sent
	for _, s := range b.sent {
		if s.Event == event {
			out = append(out, s)
		}
	}
	return out
}

// To returns every event sent directly to identity with the given name.
func (b *Broadcaster) To(identity, event string) []Sent {
	var out []Sent
	for _, s := range b.Events(event) {
		if s.To == identity {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets recorded events.
func (b *Broadcaster) Reset() {
	b.mu.Lock()
	b.sent = nil
	b.mu.Unlock()
}

// WaitFor polls until an event with the given name was recorded.
func (b *Broadcaster) WaitFor(t testing.TB, event string, timeout time.Duration) Sent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if evs := b.Events(event); len(evs) > 0 {
			return evs[len(evs)-1]
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", event)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// WaitDone waits for ch to close.
func WaitDone(t testing.TB, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for session to finish")
	}
}

// StopAndWait stops s and blocks until its goroutine has exited, so nothing
// it logs lands after the test returns.
func StopAndWait(t testing.TB, s interface {
	Stop(reason string)
	Done() <-chan struct{}
}) {
	t.Helper()
	s.Stop("test done")
	WaitDone(t, s.Done(), time.Second)
}

// Faulty records like Broadcaster but panics on any direct send to Identity,
// standing in for a bug inside a session's handling.
type Faulty struct {
	*Broadcaster
	Identity string
}

func (f *Faulty) SendToIdentity(identity, event string, payload any) {
	if identity == f.Identity {
		panic("send to " + identity + " failed")
	}
	f.Broadcaster.SendToIdentity(identity, event, payload)
}
