package shooter

// ShipView is a ship as clients see it.
type ShipView struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health int     `json:"health"`
	Score  int     `json:"score"`
	Alive  bool    `json:"alive"`
}

type HostileView struct {
	ID     uint64  `json:"id"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Size   float64 `json:"size"`
	Health int     `json:"health"`
	Color  string  `json:"color"`
}

type BulletView struct {
	ID    uint64  `json:"id"`
	Owner string  `json:"owner,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// WorldState is the full snapshot broadcast every tick.
type WorldState struct {
	SessionID      string        `json:"sessionId"`
	Tick           uint64        `json:"tick"`
	Width          float64       `json:"width"`
	Height         float64       `json:"height"`
	Ships          []ShipView    `json:"ships"`
	Hostiles       []HostileView `json:"hostiles"`
	PlayerBullets  []BulletView  `json:"playerBullets"`
	HostileBullets []BulletView  `json:"hostileBullets"`
}

// ScoreLine is one row of the final scoreboard.
type ScoreLine struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
	Alive bool   `json:"alive"`
}

// GameOver is broadcast once when the session ends.
type GameOver struct {
	SessionID string      `json:"sessionId"`
	Winner    string      `json:"winner"`
	Scores    []ScoreLine `json:"scores"`
}

func (w *World) snapshot(sessionID string) WorldState {
	ws := WorldState{
		SessionID:      sessionID,
		Tick:           w.Tick,
		Width:          w.tuning.Width,
		Height:         w.tuning.Height,
		Ships:          make([]ShipView, 0, len(w.Ships)),
		Hostiles:       make([]HostileView, 0, len(w.Hostiles)),
		PlayerBullets:  make([]BulletView, 0, len(w.PlayerBullets)),
		HostileBullets: make([]BulletView, 0, len(w.HostileBullets)),
	}
	for _, s := range w.Ships {
		ws.Ships = append(ws.Ships, ShipView{ID: s.ID, X: s.X, Y: s.Y, Health: s.Health, Score: s.Score, Alive: s.Alive})
	}
	for _, h := range w.Hostiles {
		ws.Hostiles = append(ws.Hostiles, HostileView{ID: h.ID, Type: h.Type, X: h.X, Y: h.Y, Size: h.Size, Health: h.Health, Color: h.Color})
	}
	for _, b := range w.PlayerBullets {
		ws.PlayerBullets = append(ws.PlayerBullets, BulletView{ID: b.ID, Owner: b.Owner, X: b.X, Y: b.Y})
	}
	for _, b := range w.HostileBullets {
		ws.HostileBullets = append(ws.HostileBullets, BulletView{ID: b.ID, X: b.X, Y: b.Y})
	}
	return ws
}

func (w *World) gameOver(sessionID string) GameOver {
	over := GameOver{SessionID: sessionID, Scores: make([]ScoreLine, 0, len(w.Ships))}
	if winner := w.Winner(); winner != nil {
		over.Winner = winner.ID
	}
	for _, s := range w.Ships {
		over.Scores = append(over.Scores, ScoreLine{ID: s.ID, Score: s.Score, Alive: s.Alive})
	}
	return over
}
