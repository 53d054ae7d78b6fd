package deduction

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"minigames/internal/game"
	"minigames/internal/session/message"
)

// Timer is the phase deadline a match arms on every phase entry.
type Timer interface {
	Arm(d time.Duration) uint64
	Cancel()
}

type player struct {
	name  string
	role  Role
	alive bool

	clue     string
	hasClue  bool
	vote     string
	skipped  bool
	hasVoted bool
}

// match is the state machine of one session. It is not safe for concurrent
// use: the session goroutine owns it.
type match struct {
	id      string
	players []*player
	concept Concept
	rules   Rules

	round      int
	phase      Phase
	deadline   time.Time
	transcript []ChatLine

	winners Role
	reason  string

	out   game.Broadcaster
	timer Timer
	now   func() time.Time
}

func newMatch(id string, roster []string, concept Concept, rules Rules, rng *rand.Rand, out game.Broadcaster, timer Timer) *match {
	m := &match{
		id:      id,
		concept: concept,
		rules:   rules,
		out:     out,
		timer:   timer,
		now:     time.Now,
	}
	for _, name := range roster {
		m.players = append(m.players, &player{name: name, role: RoleCrew, alive: true})
	}
	for _, i := range rng.Perm(len(m.players))[:SaboteurCount(len(m.players))] {
		m.players[i].role = RoleSaboteur
	}
	return m
}

// begin deals roles privately and opens the first clue phase.
func (m *match) begin() {
	m.round = 1
	for _, p := range m.players {
		m.out.SendToIdentity(p.name, message.RoleInfo, m.roleInfo(p))
	}
	m.enter(PhaseClue)
}

func (m *match) over() bool {
	return m.phase == PhaseResolved
}

func (m *match) player(name string) (*player, bool) {
	for _, p := range m.players {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

func (m *match) living() []*player {
	var out []*player
	for _, p := range m.players {
		if p.alive {
			out = append(out, p)
		}
	}
	return out
}

// actor validates that name is a living roster member.
func (m *match) actor(name string) (*player, error) {
	p, ok := m.player(name)
	if !ok {
		return nil, game.Errorf(game.CodeNotFound, "%s is not in this game", name)
	}
	if !p.alive {
		return nil, game.ErrNotAlive
	}
	return p, nil
}

func (m *match) enter(phase Phase) {
	m.phase = phase
	var d time.Duration
	switch phase {
	case PhaseClue:
		d = m.rules.ClueTime
	case PhaseDiscussion:
		d = m.rules.DiscussionTime
	case PhaseVoting:
		d = m.rules.VotingTime
	}
	m.deadline = m.now().Add(d)
	m.timer.Arm(d)

	m.out.BroadcastToSession(m.id, message.PhaseState, m.state(""))
	switch phase {
	case PhaseDiscussion:
		m.out.BroadcastToSession(m.id, message.CluesRevealed, m.clues())
	case PhaseVoting:
		m.out.BroadcastToSession(m.id, message.VotingStarted, VotingStarted{
			SessionID:  m.id,
			Round:      m.round,
			Candidates: m.candidates(),
			TimeLeft:   m.timeLeft(),
		})
	}
}

func (m *match) submitClue(name, text string) error {
	p, err := m.actor(name)
	if err != nil {
		return err
	}
	if m.phase != PhaseClue {
		return game.ErrWrongPhase
	}
	if p.hasClue {
		return game.ErrAlreadySubmitted
	}
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > m.rules.MaxClueLen {
		return game.Errorf(game.CodeInvalidInput, "a clue must be 1 to %d characters", m.rules.MaxClueLen)
	}
	p.clue, p.hasClue = text, true
	m.out.BroadcastToSession(m.id, message.PlayerSubmitted, Progress{SessionID: m.id, Username: name})

	for _, q := range m.living() {
		if !q.hasClue {
			return nil
		}
	}
	m.timer.Cancel()
	m.enter(PhaseDiscussion)
	return nil
}

func (m *match) castVote(name, target string) error {
	p, err := m.voter(name)
	if err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	t, ok := m.player(target)
	if !ok || !t.alive {
		return game.Errorf(game.CodeInvalidTarget, "%q is not a living player", target)
	}
	p.vote = target
	return m.recordVote(p)
}

// abstain records a vote for nobody. Abstentions are counted apart from
// player votes, so no username can collide with them.
func (m *match) abstain(name string) error {
	p, err := m.voter(name)
	if err != nil {
		return err
	}
	p.vote, p.skipped = "", true
	return m.recordVote(p)
}

func (m *match) voter(name string) (*player, error) {
	p, err := m.actor(name)
	if err != nil {
		return nil, err
	}
	if m.phase != PhaseVoting {
		return nil, game.ErrWrongPhase
	}
	if p.hasVoted {
		return nil, game.ErrAlreadySubmitted
	}
	return p, nil
}

func (m *match) recordVote(p *player) error {
	p.hasVoted = true
	m.out.BroadcastToSession(m.id, message.PlayerVoted, Progress{SessionID: m.id, Username: p.name})

	for _, q := range m.living() {
		if !q.hasVoted {
			return nil
		}
	}
	m.timer.Cancel()
	m.resolve()
	return nil
}

func (m *match) chat(name, text string) error {
	if _, err := m.actor(name); err != nil {
		return err
	}
	if m.phase != PhaseDiscussion {
		return game.ErrWrongPhase
	}
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > m.rules.MaxChatLen {
		return game.Errorf(game.CodeInvalidInput, "a message must be 1 to %d characters", m.rules.MaxChatLen)
	}
	line := ChatLine{Username: name, Text: text, Round: m.round}
	m.transcript = append(m.transcript, line)
	m.out.BroadcastToSession(m.id, message.ChatMessage, line)
	return nil
}

// timeout closes the current phase when its deadline passes.
func (m *match) timeout() {
	switch m.phase {
	case PhaseClue:
		for _, p := range m.living() {
			if !p.hasClue {
				p.clue, p.hasClue = "", true
			}
		}
		m.enter(PhaseDiscussion)
	case PhaseDiscussion:
		m.enter(PhaseVoting)
	case PhaseVoting:
		m.resolve()
	}
}

func (m *match) resolve() {
	tally, skips, ejected := m.tally()
	results := VoteResults{SessionID: m.id, Round: m.round, Tally: tally, Skips: skips}

	if ejected != nil {
		ejected.alive = false
		name := ejected.name
		results.Ejected = &name
	}

	switch {
	case ejected != nil && ejected.role == RoleSaboteur:
		m.finish(RoleCrew, ejected.name+" was a saboteur")
	case m.saboteursAtParity():
		m.finish(RoleSaboteur, "saboteurs reached parity with the crew")
	case m.round >= m.rules.RoundCap && m.rules.RoundCapRule == RoundCapCrewWins:
		m.finish(RoleCrew, "round cap reached")
	}

	results.GameOver = m.over()
	m.out.BroadcastToSession(m.id, message.VoteResults, results)
	if m.over() {
		m.announceGameOver()
		return
	}

	if ejected != nil {
		m.round++
	}
	for _, p := range m.players {
		p.clue, p.hasClue = "", false
		p.vote, p.skipped, p.hasVoted = "", false, false
	}
	m.enter(PhaseClue)
}

// tally counts the votes cast. A player is ejected only with a strict
// plurality that also beats the abstentions.
func (m *match) tally() (map[string]int, int, *player) {
	tally := make(map[string]int)
	skips := 0
	for _, p := range m.living() {
		switch {
		case !p.hasVoted:
		case p.skipped:
			skips++
		default:
			tally[p.vote]++
		}
	}
	best, top, tied := "", 0, false
	for target, n := range tally {
		switch {
		case n > top:
			best, top, tied = target, n, false
		case n == top:
			tied = true
		}
	}
	if top == 0 || tied || skips >= top {
		return tally, skips, nil
	}
	p, _ := m.player(best)
	return tally, skips, p
}

func (m *match) saboteursAtParity() bool {
	sab, crew := 0, 0
	for _, p := range m.living() {
		if p.role == RoleSaboteur {
			sab++
		} else {
			crew++
		}
	}
	return sab >= crew
}

func (m *match) finish(winners Role, reason string) {
	m.winners = winners
	m.reason = reason
	m.phase = PhaseResolved
	m.timer.Cancel()
}

func (m *match) announceGameOver() {
	roles := make(map[string]Role, len(m.players))
	for _, p := range m.players {
		roles[p.name] = p.role
	}
	m.out.BroadcastToSession(m.id, message.PhaseState, m.state(""))
	m.out.BroadcastToSession(m.id, message.GameOver, GameOver{
		SessionID: m.id,
		Winners:   m.winners,
		Reason:    m.reason,
		Word:      m.concept.Word,
		Category:  m.concept.Category,
		Roles:     roles,
		Players:   m.state("").Players,
		Rounds:    m.round,
	})
}

// attach handles a reconnect or a late join. Unknown identities join as
// living Crew with no clue or vote for the current round.
func (m *match) attach(name string) {
	p, ok := m.player(name)
	if !ok {
		p = &player{name: name, role: RoleCrew, alive: true}
		m.players = append(m.players, p)
		m.out.BroadcastToSession(m.id, message.PhaseState, m.state(""))
	}
	m.out.SendToIdentity(name, message.RoleInfo, m.roleInfo(p))
	m.sendState(name)
}

// sendState gives one viewer the public state plus their own role, and the
// revealed clues while they are on the table.
func (m *match) sendState(name string) {
	m.out.SendToIdentity(name, message.PhaseState, m.state(name))
	if m.phase == PhaseDiscussion || m.phase == PhaseVoting {
		m.out.SendToIdentity(name, message.CluesRevealed, m.clues())
	}
}

func (m *match) requestRole(name string) error {
	p, ok := m.player(name)
	if !ok {
		return game.Errorf(game.CodeNotFound, "%s is not in this game", name)
	}
	m.out.SendToIdentity(name, message.RoleInfo, m.roleInfo(p))
	return nil
}

func (m *match) roleInfo(p *player) RoleInfo {
	info := RoleInfo{SessionID: m.id, Role: p.role, Category: m.concept.Category, Alive: p.alive}
	if p.role == RoleCrew {
		info.Word = m.concept.Word
	}
	return info
}

// state renders the public view for viewer. Roles are hidden except the
// viewer's own until the match is resolved.
func (m *match) state(viewer string) PhaseState {
	st := PhaseState{
		SessionID: m.id,
		Phase:     m.phase,
		Round:     m.round,
		RoundCap:  m.rules.RoundCap,
		TimeLeft:  m.timeLeft(),
		Category:  m.concept.Category,
		Players:   make([]PlayerView, 0, len(m.players)),
	}
	for _, p := range m.players {
		v := PlayerView{Username: p.name, Alive: p.alive, Submitted: p.hasClue, Voted: p.hasVoted}
		if m.over() || (viewer != "" && p.name == viewer) {
			v.Role = p.role
		}
		st.Players = append(st.Players, v)
	}
	return st
}

func (m *match) clues() CluesRevealed {
	cr := CluesRevealed{SessionID: m.id, Round: m.round}
	for _, p := range m.living() {
		cr.Clues = append(cr.Clues, ClueView{Username: p.name, Clue: p.clue})
	}
	return cr
}

func (m *match) candidates() []string {
	var names []string
	for _, p := range m.living() {
		names = append(names, p.name)
	}
	return names
}

func (m *match) timeLeft() int {
	if m.over() {
		return 0
	}
	left := m.deadline.Sub(m.now()).Seconds()
	return int(math.Max(0, math.Ceil(left)))
}

func (m *match) timerUpdate() TimerUpdate {
	return TimerUpdate{SessionID: m.id, Phase: m.phase, Round: m.round, TimeLeft: m.timeLeft()}
}
