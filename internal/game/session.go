package game

// Session is a live, handed-off game instance. Every method is safe to call
// from any goroutine; state changes happen on the session's own goroutine.
type Session interface {
	ID() string
	Kind() Kind
	Room() string

	// Deliver queues cmd for the session goroutine without blocking.
	Deliver(cmd Command) error

	// Stop tears the session down. Calling it more than once is a no-op.
	Stop(reason string)
	Done() <-chan struct{}
}

// Command is an inbound player intent routed to a session.
type Command interface {
	Sender() string
}

// Attach re-binds an identity to a session after a (re)connect, or adds it as
// a late joiner when the engine allows that.
type Attach struct {
	Identity string
}

func (a Attach) Sender() string { return a.Identity }

// StateRequest asks the session to send its current state to Identity only.
type StateRequest struct {
	Identity string
}

func (r StateRequest) Sender() string { return r.Identity }

// StartSpec is what the lobby hands to an engine.
type StartSpec struct {
	SessionID string
	Room      string
	Roster    []string
}

// Engine instantiates sessions of one kind.
type Engine interface {
	Kind() Kind
	Start(spec StartSpec) (Session, error)
}

// Broadcaster is the fan-out surface engines need.
type Broadcaster interface {
	BroadcastToSession(sessionID, event string, payload any)
	SendToIdentity(identity, event string, payload any)
	SetMembers(channel string, members []string)
	Drop(channel string)
}
