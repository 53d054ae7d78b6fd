package message

// Inbound events, client -> server.
const (
	StartGame           = "start-game"
	JoinLobby           = "join-lobby"
	LeaveLobby          = "leave-lobby"
	RequestLobbyState   = "request-lobby-state"
	JoinRoom            = "join-room"
	LeaveRoom           = "leave-room"
	SendMessage         = "send-message"
	RequestOnlineUsers  = "request-online-users"
	JoinSession         = "join-session"
	RequestSessionState = "request-session-state"

	Move  = "move"
	Shoot = "shoot"

	SubmitClue      = "submit-clue"
	SubmitVote      = "submit-vote"
	SendChat        = "send-chat"
	RequestRoleInfo = "request-role-info"
)

// Outbound events, server -> client.
const (
	Error = "error"

	OnlineUsers    = "online-users"
	ReceiveMessage = "receive-message"

	LobbyState         = "lobby-state"
	LobbyRosterChanged = "lobby-roster-changed"
	LobbyOwnerChanged  = "lobby-owner-changed"
	LobbyCountdown     = "lobby-countdown"
	LobbyCancelled     = "lobby-cancelled"
	SessionHandoff     = "session-handoff"
	SessionCancelled   = "session-cancelled"

	WorldState = "world-state"
	GameOver   = "game-over"

	RoleInfo        = "role-info"
	PhaseState      = "phase-state"
	TimerUpdate     = "timer-update"
	CluesRevealed   = "clues-revealed"
	VotingStarted   = "voting-started"
	VoteResults     = "vote-results"
	ChatMessage     = "chat-message"
	PlayerSubmitted = "player-submitted"
	PlayerVoted     = "player-voted"
)
