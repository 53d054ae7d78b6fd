package session

import "minigames/internal/network"

// Player is the per-connection state of one authenticated client.
type Player struct {
	Identity string
	Client   *network.Client

	// Last lobby and session the player entered, used when an event omits the id.
	LobbyID   string
	SessionID string
}

func newPlayer(c *network.Client) *Player {
	return &Player{Identity: c.Identity(), Client: c}
}

func (p *Player) lobbyOr(id string) string {
	if id != "" {
		return id
	}
	return p.LobbyID
}

func (p *Player) sessionOr(id string) string {
	if id != "" {
		return id
	}
	return p.SessionID
}
