package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"minigames/internal/game"
	"minigames/internal/session/message"
)

// RoomDirectory answers whether an identity may start games for a room.
type RoomDirectory interface {
	CanStart(ctx context.Context, room, identity string) (bool, error)
}

// Broadcaster is the fan-out the manager needs: session channels plus room channels.
type Broadcaster interface {
	game.Broadcaster
	BroadcastToChannels(event string, payload any, channels ...string)
}

// RoomChannel is the broadcast channel of a chat room's subscribers.
func RoomChannel(room string) string { return "room:" + room }

type Config struct {
	Countdown     time.Duration
	TickEvery     time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Countdown:     30 * time.Second,
		TickEvery:     time.Second,
		SweepInterval: 10 * time.Minute,
		Retention:     20 * time.Minute,
	}
}

// Manager is the actor owning every lobby. All state lives on the Run goroutine.
type Manager struct {
	cfg      Config
	rooms    RoomDirectory
	engines  map[game.Kind]game.Engine
	registry *game.Registry
	bc       Broadcaster
	log      *zap.SugaredLogger

	requestCh chan any
	done      chan struct{}

	lobbies map[string]*Lobby
	byRoom  map[string]string

	now   func() time.Time
	newID func() string
}

func NewManager(cfg Config, rooms RoomDirectory, registry *game.Registry, bc Broadcaster, log *zap.SugaredLogger, engines ...game.Engine) *Manager {
	m := &Manager{
		cfg:       cfg,
		rooms:     rooms,
		engines:   make(map[game.Kind]game.Engine),
		registry:  registry,
		bc:        bc,
		log:       log,
		requestCh: make(chan any),
		done:      make(chan struct{}),
		lobbies:   make(map[string]*Lobby),
		byRoom:    make(map[string]string),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, e := range engines {
		m.engines[e.Kind()] = e
	}
	return m
}

// --- Actor messages ---

type result struct {
	view View
	err  error
}

type requestGame struct {
	room, requester string
	kind            game.Kind
	reply           chan result
}

type joinLobby struct {
	lobbyID, identity string
	reply             chan result
}

type leaveLobby struct {
	lobbyID, identity string
	reply             chan result
}

type lobbyState struct {
	lobbyID string
	reply   chan result
}

type listLobbies struct {
	reply chan []View
}

type countdownExpired struct {
	lobbyID string
	seq     uint64
}

type sweep struct {
	reply chan int
}

// --- Public API ---

// RequestGame opens a lobby for room seeded with requester and starts its countdown.
func (m *Manager) RequestGame(ctx context.Context, room, requester, kind string) (View, error) {
	k, err := game.ParseKind(kind)
	if err != nil {
		return View{}, err
	}
	ok, err := m.rooms.CanStart(ctx, room, requester)
	if err != nil {
		return View{}, fmt.Errorf("check room owner: %w", err)
	}
	if !ok {
		return View{}, game.ErrNotOwner
	}
	return m.call(ctx, func(reply chan result) any {
		return requestGame{room: room, requester: requester, kind: k, reply: reply}
	})
}

func (m *Manager) JoinLobby(ctx context.Context, lobbyID, identity string) (View, error) {
	return m.call(ctx, func(reply chan result) any {
		return joinLobby{lobbyID: lobbyID, identity: identity, reply: reply}
	})
}

// LeaveLobby removes identity. The returned view is zero when the lobby was destroyed.
func (m *Manager) LeaveLobby(ctx context.Context, lobbyID, identity string) (View, error) {
	return m.call(ctx, func(reply chan result) any {
		return leaveLobby{lobbyID: lobbyID, identity: identity, reply: reply}
	})
}

func (m *Manager) State(ctx context.Context, lobbyID string) (View, error) {
	return m.call(ctx, func(reply chan result) any {
		return lobbyState{lobbyID: lobbyID, reply: reply}
	})
}

// Lobbies lists the live lobbies.
func (m *Manager) Lobbies(ctx context.Context) ([]View, error) {
	reply := make(chan []View, 1)
	if err := m.post(ctx, listLobbies{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Sweep runs a cleanup pass now and returns how many records it removed.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := m.post(ctx, sweep{reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Ping round-trips through the actor loop. It fails once Run has returned
// or when the loop does not answer before ctx expires.
func (m *Manager) Ping(ctx context.Context) error {
	select {
	case <-m.done:
		return game.Errorf(game.CodeSessionClosed, "lobby manager stopped")
	default:
	}
	_, err := m.Lobbies(ctx)
	return err
}

func (m *Manager) call(ctx context.Context, build func(chan result) any) (View, error) {
	reply := make(chan result, 1)
	if err := m.post(ctx, build(reply)); err != nil {
		return View{}, err
	}
	select {
	case r := <-reply:
		return r.view, r.err
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (m *Manager) post(ctx context.Context, msg any) error {
	select {
	case m.requestCh <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return game.Errorf(game.CodeSessionClosed, "lobby manager stopped")
	}
}

// Run is the actor loop. It returns when ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.log.Infof("[LobbyManager] actor started")
	tick := time.NewTicker(m.cfg.TickEvery)
	defer tick.Stop()
	sweepTicker := time.NewTicker(m.cfg.SweepInterval)
	defer sweepTicker.Stop()

	defer func() {
		for _, l := range m.lobbies {
			l.stopTimer()
		}
		m.log.Infof("[LobbyManager] actor stopped")
		close(m.done)
	}()

	for {
		select {
		case msg := <-m.requestCh:
			m.handle(msg)
		case <-tick.C:
			m.broadcastCountdowns()
		case <-sweepTicker.C:
			m.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) handle(msg any) {
	switch req := msg.(type) {
	case requestGame:
		v, err := m.open(req.room, req.requester, req.kind)
		req.reply <- result{v, err}
	case joinLobby:
		v, err := m.join(req.lobbyID, req.identity)
		req.reply <- result{v, err}
	case leaveLobby:
		v, err := m.leave(req.lobbyID, req.identity)
		req.reply <- result{v, err}
	case lobbyState:
		l, err := m.lookup(req.lobbyID)
		if err != nil {
			req.reply <- result{err: err}
			return
		}
		req.reply <- result{view: l.view(m.now())}
	case listLobbies:
		views := make([]View, 0, len(m.lobbies))
		for _, l := range m.lobbies {
			views = append(views, l.view(m.now()))
		}
		req.reply <- views
	case countdownExpired:
		m.expire(req.lobbyID, req.seq)
	case sweep:
		req.reply <- m.sweep()
	}
}

func (m *Manager) lookup(id string) (*Lobby, error) {
	l, ok := m.lobbies[id]
	if !ok {
		return nil, game.Errorf(game.CodeNotFound, "lobby %s not found", id)
	}
	return l, nil
}

func (m *Manager) open(room, requester string, kind game.Kind) (View, error) {
	if id, ok := m.byRoom[room]; ok {
		return View{}, game.Errorf(game.CodeAlreadyActive, "room %s already has lobby %s", room, id)
	}
	if id, ok := m.registry.ActiveForRoom(room); ok {
		return View{}, game.Errorf(game.CodeAlreadyActive, "room %s already has session %s", room, id)
	}
	if _, ok := m.engines[kind]; !ok {
		return View{}, game.Errorf(game.CodeUnknownKind, "no engine for %s", kind)
	}
	capacity, _ := game.CapacityOf(kind)

	l := &Lobby{
		ID:       m.newID(),
		Room:     room,
		Kind:     kind,
		Owner:    requester,
		Roster:   []string{requester},
		Capacity: capacity,
		Created:  m.now(),
		status:   StatusForming,
	}
	m.lobbies[l.ID] = l
	m.byRoom[room] = l.ID
	m.bc.SetMembers(l.ID, l.Roster)
	m.arm(l)

	m.log.Infof("[Lobby %s] %s opened %s in room %s", l.ID, requester, kind, room)
	m.broadcast(l, message.LobbyState, l.view(m.now()))
	return l.view(m.now()), nil
}

func (m *Manager) arm(l *Lobby) {
	l.stopTimer()
	l.advance(StatusCountingDown)
	l.Deadline = m.now().Add(m.cfg.Countdown)
	id, seq := l.ID, l.seq
	l.timer = time.AfterFunc(m.cfg.Countdown, func() {
		select {
		case m.requestCh <- countdownExpired{lobbyID: id, seq: seq}:
		case <-m.done:
		}
	})
}

func (m *Manager) join(id, identity string) (View, error) {
	l, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	switch {
	case l.status.Terminal():
		return View{}, game.Errorf(game.CodeWrongPhase, "lobby is %s", l.status)
	case l.has(identity):
		return View{}, game.ErrAlreadyJoined
	case len(l.Roster) >= l.Capacity.Max:
		return View{}, game.Errorf(game.CodeFull, "lobby is full (%d/%d)", len(l.Roster), l.Capacity.Max)
	}
	l.Roster = append(l.Roster, identity)
	m.bc.SetMembers(l.ID, l.Roster)
	m.log.Infof("[Lobby %s] %s joined (%d/%d)", l.ID, identity, len(l.Roster), l.Capacity.Max)
	m.broadcast(l, message.LobbyRosterChanged, RosterChanged{LobbyID: l.ID, Room: l.Room, Roster: append([]string(nil), l.Roster...), Joined: identity})
	return l.view(m.now()), nil
}

func (m *Manager) leave(id, identity string) (View, error) {
	l, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	i := l.index(identity)
	if i < 0 {
		return View{}, game.Errorf(game.CodeNotFound, "%s is not in lobby %s", identity, id)
	}
	l.Roster = append(l.Roster[:i], l.Roster[i+1:]...)
	m.log.Infof("[Lobby %s] %s left (%d remaining)", l.ID, identity, len(l.Roster))

	if len(l.Roster) == 0 {
		m.cancel(l, "everyone left the lobby")
		return View{}, nil
	}
	m.bc.SetMembers(l.ID, l.Roster)
	m.broadcast(l, message.LobbyRosterChanged, RosterChanged{LobbyID: l.ID, Room: l.Room, Roster: append([]string(nil), l.Roster...), Left: identity})
	if identity == l.Owner {
		l.Owner = l.Roster[0]
		m.log.Infof("[Lobby %s] ownership moved to %s", l.ID, l.Owner)
		m.broadcast(l, message.LobbyOwnerChanged, OwnerChanged{LobbyID: l.ID, Owner: l.Owner})
	}
	return l.view(m.now()), nil
}

// expire runs when a countdown fires. Fires for destroyed lobbies or
// superseded timers are ignored.
func (m *Manager) expire(id string, seq uint64) {
	l, ok := m.lobbies[id]
	if !ok || l.seq != seq || l.status != StatusCountingDown {
		m.log.Debugf("[Lobby %s] stale countdown ignored", id)
		return
	}
	l.timer = nil

	if n := len(l.Roster); n < l.Capacity.Min {
		m.cancel(l, fmt.Sprintf("not enough players: %s needs at least %d players, %d joined", l.Kind, l.Capacity.Min, n))
		return
	}
	m.handoff(l)
}

func (m *Manager) handoff(l *Lobby) {
	l.advance(StatusHandoff)
	spec := game.StartSpec{SessionID: m.newID(), Room: l.Room, Roster: append([]string(nil), l.Roster...)}

	// Drop the room mapping first so the engine's registry insert owns the room.
	m.destroy(l)
	if _, err := m.engines[l.Kind].Start(spec); err != nil {
		m.log.Errorf("[Lobby %s] engine start failed: %v", l.ID, err)
		m.bc.BroadcastToChannels(message.LobbyCancelled, Cancelled{LobbyID: l.ID, Room: l.Room, Reason: "could not start the game"},
			RoomChannel(l.Room))
		for _, id := range l.Roster {
			m.bc.SendToIdentity(id, message.LobbyCancelled, Cancelled{LobbyID: l.ID, Room: l.Room, Reason: "could not start the game"})
		}
		return
	}
	m.log.Infof("[Lobby %s] handed off to %s session %s with %v", l.ID, l.Kind, spec.SessionID, spec.Roster)
	h := Handoff{LobbyID: l.ID, SessionID: spec.SessionID, Room: l.Room, Kind: l.Kind, Roster: spec.Roster}
	m.bc.BroadcastToChannels(message.SessionHandoff, h, RoomChannel(l.Room), spec.SessionID)
}

func (m *Manager) cancel(l *Lobby, reason string) {
	l.advance(StatusCancelled)
	m.log.Infof("[Lobby %s] cancelled: %s", l.ID, reason)
	m.broadcast(l, message.LobbyCancelled, Cancelled{LobbyID: l.ID, Room: l.Room, Reason: reason})
	m.destroy(l)
}

func (m *Manager) destroy(l *Lobby) {
	l.stopTimer()
	delete(m.lobbies, l.ID)
	if m.byRoom[l.Room] == l.ID {
		delete(m.byRoom, l.Room)
	}
	m.bc.Drop(l.ID)
}

// broadcast reaches the room's subscribers and the lobby roster.
func (m *Manager) broadcast(l *Lobby, event string, payload any) {
	m.bc.BroadcastToChannels(event, payload, RoomChannel(l.Room), l.ID)
}

func (m *Manager) broadcastCountdowns() {
	now := m.now()
	for _, l := range m.lobbies {
		if l.status == StatusCountingDown {
			m.broadcast(l, message.LobbyCountdown, Countdown{LobbyID: l.ID, TimeLeft: l.timeLeft(now)})
		}
	}
}

func (m *Manager) sweep() int {
	now := m.now()
	n := 0
	for _, l := range m.lobbies {
		if l.status.Terminal() || now.Sub(l.Created) > m.cfg.Retention {
			m.cancel(l, "lobby expired")
			n++
		}
	}
	expired := m.registry.Sweep(m.cfg.Retention)
	n += len(expired)
	if n > 0 {
		m.log.Infof("[LobbyManager] sweep removed %d lobbies/sessions", n)
	}
	return n
}
