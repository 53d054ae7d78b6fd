package bus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap/zaptest"

	"minigames/internal/game"
	"minigames/internal/presence"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	out    []published
	status nats.Status
	fail   error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.out = append(f.out, published{subject, data})
	return nil
}

func (f *fakeConn) Drain() error        { return nil }
func (f *fakeConn) Status() nats.Status { return f.status }

func TestPresenceAndSessionEvents(t *testing.T) {
	conn := &fakeConn{status: nats.CONNECTED}
	p := New(conn, zaptest.NewLogger(t).Sugar())
	at := time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	reg := presence.NewRegistry()
	reg.Observe(p.PresenceObserver())
	reg.Bind("ana", nil)

	p.SessionEnded(game.SessionInfo{ID: "s1", Room: "r1", Kind: game.KindShooter, CreatedAt: at.Add(-time.Minute)})

	if len(conn.out) != 2 {
		t.Fatalf("published %d messages, want 2", len(conn.out))
	}
	var pe PresenceEvent
	if conn.out[0].subject != SubjectPresence || json.Unmarshal(conn.out[0].data, &pe) != nil || pe.Identity != "ana" || !pe.Online || pe.Users != 1 {
		t.Fatalf("presence event = %s %s", conn.out[0].subject, conn.out[0].data)
	}
	var se SessionEvent
	if conn.out[1].subject != SubjectSessionEnded || json.Unmarshal(conn.out[1].data, &se) != nil || se.SessionID != "s1" || !se.EndedAt.Equal(at) {
		t.Fatalf("session event = %s %s", conn.out[1].subject, conn.out[1].data)
	}
	if err := p.Healthy(); err != nil {
		t.Fatalf("healthy: %v", err)
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	conn := &fakeConn{status: nats.RECONNECTING, fail: errors.New("nats: connection closed")}
	p := New(conn, zaptest.NewLogger(t).Sugar())

	p.Publish(SubjectPresence, map[string]string{"a": "b"})

	if err := p.Healthy(); err == nil {
		t.Fatalf("reconnecting connection reported healthy")
	}
}
