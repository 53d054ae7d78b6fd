// Package deduction runs the social-deduction word game: hidden roles, timed
// phases and plurality votes, one goroutine per session.
package deduction

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"minigames/internal/game"
	"minigames/internal/session/message"
)

type SubmitClue struct {
	Player string
	Text   string
}

func (c SubmitClue) Sender() string { return c.Player }

// CastVote votes for Target, or abstains when Skip is set.
type CastVote struct {
	Player string
	Target string
	Skip   bool
}

func (c CastVote) Sender() string { return c.Player }

type Chat struct {
	Player string
	Text   string
}

func (c Chat) Sender() string { return c.Player }

// RoleInfoRequest asks for the sender's private role payload again.
type RoleInfoRequest struct {
	Player string
}

func (c RoleInfoRequest) Sender() string { return c.Player }

// Engine creates social-deduction sessions.
type Engine struct {
	registry *game.Registry
	bc       game.Broadcaster
	log      *zap.SugaredLogger
	rules    Rules
	deck     *Deck
	seed     func() uint64
}

type Option func(*Engine)

func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithDeck replaces the built-in concept deck.
func WithDeck(d *Deck) Option {
	return func(e *Engine) { e.deck = d }
}

// WithSeed fixes role assignment and concept draws.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = func() uint64 { return seed } }
}

func NewEngine(registry *game.Registry, bc game.Broadcaster, log *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		bc:       bc,
		log:      log,
		rules:    DefaultRules(),
		seed:     func() uint64 { return uint64(time.Now().UnixNano()) },
	}
	for _, o := range opts {
		o(e)
	}
	if e.deck == nil {
		e.deck = DefaultDeck()
	}
	return e
}

func (e *Engine) Kind() game.Kind { return game.KindSocialDeduction }

// Start deals roles, registers the session and opens the first clue phase.
func (e *Engine) Start(spec game.StartSpec) (game.Session, error) {
	s, err := e.newSession(spec)
	if err != nil {
		return nil, err
	}
	if err := e.registry.Insert(s); err != nil {
		return nil, fmt.Errorf("register deduction session: %w", err)
	}
	e.bc.SetMembers(s.id, s.members)
	go s.run()
	return s, nil
}

func (e *Engine) newSession(spec game.StartSpec) (*Session, error) {
	if len(spec.Roster) == 0 {
		return nil, game.Errorf(game.CodeInvalidInput, "social deduction needs players")
	}
	rng := rand.New(rand.NewPCG(e.seed(), 0xdec0de))
	s := &Session{
		id:      spec.SessionID,
		room:    spec.Room,
		engine:  e,
		log:     e.log,
		inbox:   make(chan game.Command, 256),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		members: append([]string(nil), spec.Roster...),
	}
	s.sched = game.NewScheduler(s.done)
	s.match = newMatch(spec.SessionID, spec.Roster, e.deck.Draw(rng), e.rules, rng, e.bc, s.sched)
	return s, nil
}

// Session is one running social-deduction match.
type Session struct {
	id     string
	room   string
	engine *Engine
	log    *zap.SugaredLogger

	// Owned by the run goroutine.
	match   *match
	sched   *game.Scheduler
	members []string

	inbox chan game.Command

	stopOnce   sync.Once
	stopReason string
	stop       chan struct{}
	done       chan struct{}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Kind() game.Kind       { return game.KindSocialDeduction }
func (s *Session) Room() string          { return s.room }
func (s *Session) Done() <-chan struct{} { return s.done }

// Deliver queues cmd for the session goroutine.
func (s *Session) Deliver(cmd game.Command) error {
	select {
	case <-s.done:
		return game.ErrSessionClosed
	default:
	}
	select {
	case s.inbox <- cmd:
		return nil
	default:
		s.log.Warnf("[Deduction %s] inbox full, dropping %T from %s", s.id, cmd, cmd.Sender())
		return game.Errorf(game.CodeInternal, "session is busy, try again")
	}
}

func (s *Session) Stop(reason string) {
	s.stopOnce.Do(func() {
		s.stopReason = reason
		close(s.stop)
	})
}

func (s *Session) run() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("[Deduction %s] fault, tearing session down: %v", s.id, r)
			s.engine.bc.BroadcastToSession(s.id, message.SessionCancelled, map[string]string{"sessionId": s.id, "reason": "internal error"})
			s.finish()
		}
	}()

	every := s.engine.rules.TimerEvery
	if every <= 0 {
		every = time.Second
	}
	clock := time.NewTicker(every)
	defer clock.Stop()

	s.log.Infof("[Deduction %s] started, %d players, category %s", s.id, len(s.match.players), s.match.concept.Category)
	s.match.begin()

	for {
		select {
		case cmd := <-s.inbox:
			s.handle(cmd)
		case seq := <-s.sched.C:
			if s.sched.Current(seq) {
				s.match.timeout()
			}
		case <-clock.C:
			s.engine.bc.BroadcastToSession(s.id, message.TimerUpdate, s.match.timerUpdate())
		case <-s.stop:
			s.log.Infof("[Deduction %s] stopped: %s", s.id, s.stopReason)
			s.engine.bc.BroadcastToSession(s.id, message.SessionCancelled, map[string]string{"sessionId": s.id, "reason": s.stopReason})
			s.finish()
			return
		}
		if s.match.over() {
			s.log.Infof("[Deduction %s] %s win after %d rounds: %s", s.id, s.match.winners, s.match.round, s.match.reason)
			s.finish()
			return
		}
	}
}

func (s *Session) handle(cmd game.Command) {
	var (
		event string
		err   error
	)
	switch c := cmd.(type) {
	case SubmitClue:
		event, err = message.SubmitClue, s.match.submitClue(c.Player, c.Text)
	case CastVote:
		event = message.SubmitVote
		if c.Skip {
			err = s.match.abstain(c.Player)
		} else {
			err = s.match.castVote(c.Player, c.Target)
		}
	case Chat:
		event, err = message.SendChat, s.match.chat(c.Player, c.Text)
	case RoleInfoRequest:
		event, err = message.RequestRoleInfo, s.match.requestRole(c.Player)
	case game.Attach:
		s.addMember(c.Identity)
		s.match.attach(c.Identity)
	case game.StateRequest:
		s.match.sendState(c.Identity)
	default:
		event, err = "", game.Errorf(game.CodeWrongPhase, "not a social deduction action")
	}
	if err != nil {
		s.log.Debugf("[Deduction %s] rejected %s from %s: %v", s.id, event, cmd.Sender(), err)
		s.engine.bc.SendToIdentity(cmd.Sender(), message.Error, errorPayload(event, err))
	}
}

func errorPayload(event string, err error) message.ErrorPayload {
	p := message.ErrorPayload{Event: event, Code: game.CodeOf(err), Message: err.Error()}
	var ge *game.Error
	if errors.As(err, &ge) {
		p.Message = ge.Message
	}
	return p
}

func (s *Session) addMember(identity string) {
	for _, m := range s.members {
		if m == identity {
			return
		}
	}
	s.members = append(s.members, identity)
	s.engine.bc.SetMembers(s.id, s.members)
}

func (s *Session) finish() {
	s.sched.Cancel()
	s.engine.registry.Remove(s.id)
	s.engine.bc.Drop(s.id)
	close(s.done)
}
