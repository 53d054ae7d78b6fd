package session

// Inbound payloads.

type startGamePayload struct {
	RoomID string `json:"roomId"`
	Kind   string `json:"kind"`
}

type lobbyPayload struct {
	LobbyID string `json:"lobbyId"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type sendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type movePayload struct {
	SessionID string  `json:"sessionId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type textPayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// votePayload names a target, or abstains with skip set.
type votePayload struct {
	SessionID string `json:"sessionId"`
	Target    string `json:"target"`
	Skip      bool   `json:"skip"`
}

// Outbound payloads.

type OnlineUsers struct {
	Users []string `json:"users"`
}
