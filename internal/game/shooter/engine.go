// Package shooter runs the arcade shooter: a fixed-rate simulation per
// session, owned by one goroutine.
package shooter

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"minigames/internal/game"
	"minigames/internal/session/message"
)

// Move asks for a ship to be placed at an absolute position.
type Move struct {
	Player string
	X, Y   float64
}

func (m Move) Sender() string { return m.Player }

// Shoot asks a ship to fire.
type Shoot struct {
	Player string
}

func (s Shoot) Sender() string { return s.Player }

// Status is the session lifecycle: Starting -> Active -> Over.
type Status int32

const (
	StatusStarting Status = iota
	StatusActive
	StatusOver
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusActive:
		return "active"
	case StatusOver:
		return "over"
	}
	return "unknown"
}

// Engine creates shooter sessions.
type Engine struct {
	registry *game.Registry
	bc       game.Broadcaster
	log      *zap.SugaredLogger
	tuning   Tuning
	seed     func() uint64
}

// Option customises an Engine.
type Option func(*Engine)

// WithTuning replaces the default simulation constants.
func WithTuning(t Tuning) Option {
	return func(e *Engine) { e.tuning = t }
}

// WithSeed fixes the random source of every session.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = func() uint64 { return seed } }
}

func NewEngine(registry *game.Registry, bc game.Broadcaster, log *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		bc:       bc,
		log:      log,
		tuning:   DefaultTuning(),
		seed:     func() uint64 { return uint64(time.Now().UnixNano()) },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Kind() game.Kind { return game.KindShooter }

// Start seeds the world, registers the session and starts its tick loop.
func (e *Engine) Start(spec game.StartSpec) (game.Session, error) {
	s, err := e.newSession(spec)
	if err != nil {
		return nil, err
	}
	if err := e.launch(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Engine) newSession(spec game.StartSpec) (*Session, error) {
	if len(spec.Roster) == 0 {
		return nil, game.Errorf(game.CodeInvalidInput, "shooter needs at least one player")
	}
	return &Session{
		id:      spec.SessionID,
		room:    spec.Room,
		roster:  append([]string(nil), spec.Roster...),
		engine:  e,
		world:   NewWorld(spec.Roster, e.tuning, rand.New(rand.NewPCG(e.seed(), 0x5eed))),
		inbox:   make(chan game.Command, 256),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     e.log,
		members: append([]string(nil), spec.Roster...),
	}, nil
}

func (e *Engine) launch(s *Session) error {
	if err := e.registry.Insert(s); err != nil {
		return fmt.Errorf("register shooter session: %w", err)
	}
	e.bc.SetMembers(s.id, s.members)
	go s.run()
	return nil
}

// Session is one running shooter match.
type Session struct {
	id     string
	room   string
	roster []string
	engine *Engine
	log    *zap.SugaredLogger

	// Owned by the run goroutine.
	world   *World
	members []string

	status atomic.Int32
	inbox  chan game.Command

	stopOnce   sync.Once
	stopReason string
	stop       chan struct{}
	done       chan struct{}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Kind() game.Kind       { return game.KindShooter }
func (s *Session) Room() string          { return s.room }
func (s *Session) Done() <-chan struct{} { return s.done }

// Status reports the lifecycle state.
func (s *Session) Status() Status { return Status(s.status.Load()) }

// Deliver queues cmd. A full inbox drops the command; inputs are fire and forget.
func (s *Session) Deliver(cmd game.Command) error {
	select {
	case <-s.done:
		return game.ErrSessionClosed
	default:
	}
	select {
	case s.inbox <- cmd:
	default:
		s.log.Warnf("[Shooter %s] inbox full, dropping %T from %s", s.id, cmd, cmd.Sender())
	}
	return nil
}

// Stop cancels the session from outside.
func (s *Session) Stop(reason string) {
	s.stopOnce.Do(func() {
		s.stopReason = reason
		close(s.stop)
	})
}

func (s *Session) run() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("[Shooter %s] fault, tearing session down: %v", s.id, r)
			s.engine.bc.BroadcastToSession(s.id, message.SessionCancelled, map[string]string{"sessionId": s.id, "reason": "internal error"})
			s.finish()
		}
	}()

	tick := time.NewTicker(time.Second / time.Duration(s.engine.tuning.TickHz))
	defer tick.Stop()

	s.status.Store(int32(StatusActive))
	s.log.Infof("[Shooter %s] started with %v", s.id, s.roster)
	s.broadcastWorld()

	for {
		select {
		case cmd := <-s.inbox:
			s.handle(cmd)
		case <-tick.C:
			if s.step() {
				return
			}
		case <-s.stop:
			s.log.Infof("[Shooter %s] stopped: %s", s.id, s.stopReason)
			s.engine.bc.BroadcastToSession(s.id, message.SessionCancelled, map[string]string{"sessionId": s.id, "reason": s.stopReason})
			s.finish()
			return
		}
	}
}

func (s *Session) handle(cmd game.Command) {
	switch c := cmd.(type) {
	case Move:
		s.world.Move(c.Player, c.X, c.Y)
	case Shoot:
		s.world.Shoot(c.Player)
	case game.Attach:
		if _, ok := s.world.Ship(c.Identity); !ok {
			s.addMember(c.Identity)
		}
		s.engine.bc.SendToIdentity(c.Identity, message.WorldState, s.world.snapshot(s.id))
	case game.StateRequest:
		s.engine.bc.SendToIdentity(c.Identity, message.WorldState, s.world.snapshot(s.id))
	default:
		s.engine.bc.SendToIdentity(cmd.Sender(), message.Error, message.ErrorPayload{
			Code:    game.CodeWrongPhase,
			Message: "not a shooter action",
		})
	}
}

// addMember subscribes a spectator to the broadcast channel.
func (s *Session) addMember(identity string) {
	for _, m := range s.members {
		if m == identity {
			return
		}
	}
	s.members = append(s.members, identity)
	s.engine.bc.SetMembers(s.id, s.members)
}

// step runs one tick and reports whether the session ended.
func (s *Session) step() bool {
	Step(s.world)
	if s.world.Over() {
		over := s.world.gameOver(s.id)
		s.status.Store(int32(StatusOver))
		s.broadcastWorld()
		s.engine.bc.BroadcastToSession(s.id, message.GameOver, over)
		s.log.Infof("[Shooter %s] game over after %d ticks, winner %s", s.id, s.world.Tick, over.Winner)
		s.finish()
		return true
	}
	if s.world.Tick%uint64(max(1, s.engine.tuning.BroadcastEvery)) == 0 {
		s.broadcastWorld()
	}
	return false
}

func (s *Session) broadcastWorld() {
	s.engine.bc.BroadcastToSession(s.id, message.WorldState, s.world.snapshot(s.id))
}

// finish unregisters the session. Only the run goroutine calls it.
func (s *Session) finish() {
	s.status.Store(int32(StatusOver))
	s.engine.registry.Remove(s.id)
	s.engine.bc.Drop(s.id)
	close(s.done)
}
