package presence

import (
	"testing"

	"minigames/internal/network"
)

type sink struct{ got []network.Message }

func (s *sink) Deliver(msg network.Message) bool {
	s.got = append(s.got, msg)
	return true
}

func TestBindReplacesAndNotifies(t *testing.T) {
	r := NewRegistry()
	var events []Event
	r.Observe(func(ev Event) { events = append(events, ev) })

	first, second := &sink{}, &sink{}
	if prev := r.Bind("ana", first); prev != nil {
		t.Fatalf("first bind returned %v", prev)
	}
	if prev := r.Bind("ana", second); prev != first {
		t.Fatalf("rebind returned %v, want the first transport", prev)
	}
	if got, _ := r.Lookup("ana"); got != second {
		t.Fatalf("lookup returned the stale transport")
	}
	if len(events) != 2 || !events[1].Online || len(events[1].Users) != 1 {
		t.Fatalf("events = %+v", events)
	}
}

func TestReleaseIgnoresStaleTransport(t *testing.T) {
	r := NewRegistry()
	old, cur := &sink{}, &sink{}
	r.Bind("ana", old)
	r.Bind("ana", cur)

	if r.Release("ana", old) {
		t.Fatalf("released a newer binding through a stale transport")
	}
	if _, ok := r.Lookup("ana"); !ok {
		t.Fatalf("binding lost")
	}
	if !r.Release("ana", cur) {
		t.Fatalf("release of current transport failed")
	}
	if _, ok := r.Lookup("ana"); ok {
		t.Fatalf("still bound after release")
	}
}

func TestOnlineIsSortedAndUnbindNotifies(t *testing.T) {
	r := NewRegistry()
	r.Bind("zoe", &sink{})
	r.Bind("ana", &sink{})
	r.Bind("max", &sink{})

	var last Event
	r.Observe(func(ev Event) { last = ev })

	if got := r.Online(); len(got) != 3 || got[0] != "ana" || got[2] != "zoe" {
		t.Fatalf("online = %v", got)
	}
	if !r.Unbind("max") {
		t.Fatalf("unbind failed")
	}
	if last.Identity != "max" || last.Online || len(last.Users) != 2 {
		t.Fatalf("unbind event = %+v", last)
	}
	if r.Unbind("max") {
		t.Fatalf("second unbind reported success")
	}
}
