// Package lobby owns the pre-game phase: forming a roster for a room, the
// countdown, and the handoff to a game engine.
package lobby

import (
	"math"
	"time"

	"minigames/internal/game"
)

// Status only moves forward: Forming -> CountingDown -> Handoff | Cancelled.
type Status int

const (
	StatusForming Status = iota
	StatusCountingDown
	StatusHandoff
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusForming:
		return "forming"
	case StatusCountingDown:
		return "counting-down"
	case StatusHandoff:
		return "handoff"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s Status) Terminal() bool { return s == StatusHandoff || s == StatusCancelled }

// Lobby is owned by the manager goroutine.
type Lobby struct {
	ID       string
	Room     string
	Kind     game.Kind
	Owner    string
	Roster   []string
	Capacity game.Capacity
	Created  time.Time
	Deadline time.Time

	status Status
	timer  *time.Timer
	seq    uint64
}

func (l *Lobby) Status() Status { return l.status }

// advance moves to next and reports whether the move was allowed.
func (l *Lobby) advance(next Status) bool {
	if next <= l.status || l.status.Terminal() {
		return false
	}
	l.status = next
	return true
}

func (l *Lobby) has(identity string) bool {
	return l.index(identity) >= 0
}

func (l *Lobby) index(identity string) int {
	for i, m := range l.Roster {
		if m == identity {
			return i
		}
	}
	return -1
}

func (l *Lobby) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.seq++
}

func (l *Lobby) timeLeft(now time.Time) int {
	if l.status != StatusCountingDown {
		return 0
	}
	return int(math.Max(0, math.Ceil(l.Deadline.Sub(now).Seconds())))
}

// View is the snapshot handed to callers and clients.
type View struct {
	ID       string    `json:"id"`
	Room     string    `json:"room"`
	Kind     game.Kind `json:"kind"`
	Status   Status    `json:"status"`
	Owner    string    `json:"owner"`
	Roster   []string  `json:"roster"`
	Min      int       `json:"min"`
	Max      int       `json:"max"`
	TimeLeft int       `json:"timeLeft"`
}

func (l *Lobby) view(now time.Time) View {
	return View{
		ID:       l.ID,
		Room:     l.Room,
		Kind:     l.Kind,
		Status:   l.status,
		Owner:    l.Owner,
		Roster:   append([]string(nil), l.Roster...),
		Min:      l.Capacity.Min,
		Max:      l.Capacity.Max,
		TimeLeft: l.timeLeft(now),
	}
}

// Outbound payloads.

type RosterChanged struct {
	LobbyID string   `json:"lobbyId"`
	Room    string   `json:"room"`
	Roster  []string `json:"roster"`
	Joined  string   `json:"joined,omitempty"`
	Left    string   `json:"left,omitempty"`
}

type OwnerChanged struct {
	LobbyID string `json:"lobbyId"`
	Owner   string `json:"owner"`
}

type Countdown struct {
	LobbyID  string `json:"lobbyId"`
	TimeLeft int    `json:"timeLeft"`
}

type Cancelled struct {
	LobbyID string `json:"lobbyId"`
	Room    string `json:"room"`
	Reason  string `json:"reason"`
}

type Handoff struct {
	LobbyID   string    `json:"lobbyId"`
	SessionID string    `json:"sessionId"`
	Room      string    `json:"room"`
	Kind      game.Kind `json:"kind"`
	Roster    []string  `json:"roster"`
}
