package deduction

// Role is a player's secret faction.
type Role string

const (
	RoleCrew     Role = "crew"
	RoleSaboteur Role = "saboteur"
)

// Phase is a stage of the match.
type Phase string

const (
	PhaseClue       Phase = "clue-submission"
	PhaseDiscussion Phase = "discussion"
	PhaseVoting     Phase = "voting"
	PhaseResolved   Phase = "resolved"
)

// RoleInfo is the private payload each player receives. Word is only ever
// filled for Crew players.
type RoleInfo struct {
	SessionID string `json:"sessionId"`
	Role      Role   `json:"role"`
	Word      string `json:"word,omitempty"`
	Category  string `json:"category"`
	Alive     bool   `json:"alive"`
}

// PlayerView is one roster row. Role is empty unless the viewer owns the
// row or the game is resolved.
type PlayerView struct {
	Username  string `json:"username"`
	Alive     bool   `json:"alive"`
	Submitted bool   `json:"submitted"`
	Voted     bool   `json:"voted"`
	Role      Role   `json:"role,omitempty"`
}

// PhaseState is the public state of the match.
type PhaseState struct {
	SessionID string       `json:"sessionId"`
	Phase     Phase        `json:"phase"`
	Round     int          `json:"round"`
	RoundCap  int          `json:"roundCap"`
	TimeLeft  int          `json:"timeLeft"`
	Category  string       `json:"category"`
	Players   []PlayerView `json:"players"`
}

type TimerUpdate struct {
	SessionID string `json:"sessionId"`
	Phase     Phase  `json:"phase"`
	Round     int    `json:"round"`
	TimeLeft  int    `json:"timeLeft"`
}

type ClueView struct {
	Username string `json:"username"`
	Clue     string `json:"clue"`
}

type CluesRevealed struct {
	SessionID string     `json:"sessionId"`
	Round     int        `json:"round"`
	Clues     []ClueView `json:"clues"`
}

type VotingStarted struct {
	SessionID  string   `json:"sessionId"`
	Round      int      `json:"round"`
	Candidates []string `json:"candidates"`
	TimeLeft   int      `json:"timeLeft"`
}

// VoteResults reports a tally. Ejected is nil on a tie or when abstentions
// match or beat the leading player.
type VoteResults struct {
	SessionID string         `json:"sessionId"`
	Round     int            `json:"round"`
	Tally     map[string]int `json:"tally"`
	Skips     int            `json:"skips"`
	Ejected   *string        `json:"ejected"`
	GameOver  bool           `json:"gameOver"`
}

type ChatLine struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	Round    int    `json:"round"`
}

type Progress struct {
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

// GameOver reveals everything.
type GameOver struct {
	SessionID string          `json:"sessionId"`
	Winners   Role            `json:"winners"`
	Reason    string          `json:"reason"`
	Word      string          `json:"word"`
	Category  string          `json:"category"`
	Roles     map[string]Role `json:"roles"`
	Players   []PlayerView    `json:"players"`
	Rounds    int             `json:"rounds"`
}
