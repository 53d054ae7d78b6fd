// Package bus publishes presence and session lifecycle events to NATS so
// other services (chat, history) can follow what the orchestrator does.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"minigames/internal/game"
	"minigames/internal/presence"
)

const (
	SubjectPresence     = "minigames.presence"
	SubjectSessionEnded = "minigames.session.ended"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Status() nats.Status
}

// Publisher is safe for concurrent use; NATS buffers and flushes in the background.
type Publisher struct {
	conn Conn
	log  *zap.SugaredLogger
	now  func() time.Time
}

// Connect dials url. The connection reconnects forever on its own.
func Connect(url, name string, log *zap.SugaredLogger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("[Bus] disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("[Bus] reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	log.Infof("[Bus] connected to %s", nc.ConnectedUrl())
	return New(nc, log), nil
}

func New(conn Conn, log *zap.SugaredLogger) *Publisher {
	return &Publisher{conn: conn, log: log, now: time.Now}
}

type PresenceEvent struct {
	Identity string    `json:"identity"`
	Online   bool      `json:"online"`
	Users    int       `json:"users"`
	At       time.Time `json:"at"`
}

type SessionEvent struct {
	SessionID string    `json:"sessionId"`
	Room      string    `json:"room"`
	Kind      game.Kind `json:"kind"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Publish encodes v as JSON. Failures are logged, never returned to game code.
func (p *Publisher) Publish(subject string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		p.log.Errorf("[Bus] encode %s: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, b); err != nil {
		p.log.Warnf("[Bus] publish %s: %v", subject, err)
	}
}

// PresenceObserver forwards connection registry changes.
func (p *Publisher) PresenceObserver() presence.Observer {
	return func(ev presence.Event) {
		p.Publish(SubjectPresence, PresenceEvent{Identity: ev.Identity, Online: ev.Online, Users: len(ev.Users), At: p.now()})
	}
}

// SessionEnded is meant for game.Registry.OnRemove.
func (p *Publisher) SessionEnded(info game.SessionInfo) {
	p.Publish(SubjectSessionEnded, SessionEvent{
		SessionID: info.ID,
		Room:      info.Room,
		Kind:      info.Kind,
		StartedAt: info.CreatedAt,
		EndedAt:   p.now(),
	})
}

// Healthy reports an error unless the connection is up.
func (p *Publisher) Healthy() error {
	if s := p.conn.Status(); s != nats.CONNECTED {
		return fmt.Errorf("nats connection is %s", s)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.conn.Drain()
}
