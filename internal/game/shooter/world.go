package shooter

import (
	"math"
	"math/rand/v2"
)

// Ship is one player's entity. Ships are kept in roster order.
type Ship struct {
	ID     string
	Order  int
	X, Y   float64
	Health int
	Score  int
	Alive  bool

	lastShot uint64
	hasShot  bool
}

// Hostile is an enemy entity moving down the playfield.
type Hostile struct {
	ID     uint64
	Type   string
	X, Y   float64
	Size   float64
	Health int
	Speed  float64
	Color  string
	Score  int

	cooldown int
}

// Bullet travels with a fixed velocity. Owner is the shooting ship's id for
// player bullets and empty for hostile ones.
type Bullet struct {
	ID     uint64
	Owner  string
	X, Y   float64
	VX, VY float64
}

// World is the full simulation state of one shooter session.
type World struct {
	Tick           uint64
	Ships          []*Ship
	Hostiles       []*Hostile
	PlayerBullets  []*Bullet
	HostileBullets []*Bullet

	tuning    Tuning
	rng       *rand.Rand
	nextID    uint64
	spawnWait int
}

// NewWorld seeds one ship per roster member at evenly spaced offsets along
// the bottom of the playfield.
func NewWorld(roster []string, t Tuning, rng *rand.Rand) *World {
	w := &World{tuning: t, rng: rng}
	n := float64(len(roster))
	for i, id := range roster {
		w.Ships = append(w.Ships, &Ship{
			ID:     id,
			Order:  i,
			X:      t.Width * float64(i+1) / (n + 1),
			Y:      t.Height - t.ShipSize*2,
			Health: t.ShipHealth,
			Alive:  true,
		})
	}
	return w
}

func (w *World) newID() uint64 {
	w.nextID++
	return w.nextID
}

// Ship returns the ship with the given id.
func (w *World) Ship(id string) (*Ship, bool) {
	for _, s := range w.Ships {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// AliveCount returns the number of living ships.
func (w *World) AliveCount() int {
	n := 0
	for _, s := range w.Ships {
		if s.Alive {
			n++
		}
	}
	return n
}

// Move puts a living ship at the target position, clamped to the playfield.
// Unknown or dead ships are ignored.
func (w *World) Move(id string, x, y float64) bool {
	s, ok := w.Ship(id)
	if !ok || !s.Alive {
		return false
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	half := w.tuning.ShipSize / 2
	s.X = clamp(x, half, w.tuning.Width-half)
	s.Y = clamp(y, half, w.tuning.Height-half)
	return true
}

// Shoot fires a player bullet from a living ship unless it shot within the
// last ShotCooldown ticks.
func (w *World) Shoot(id string) bool {
	s, ok := w.Ship(id)
	if !ok || !s.Alive {
		return false
	}
	if s.hasShot && w.Tick-s.lastShot < w.tuning.ShotCooldown {
		return false
	}
	s.hasShot = true
	s.lastShot = w.Tick
	w.PlayerBullets = append(w.PlayerBullets, &Bullet{
		ID:    w.newID(),
		Owner: s.ID,
		X:     s.X,
		Y:     s.Y - w.tuning.ShipSize/2,
		VY:    -w.tuning.PlayerBulletSpeed,
	})
	return true
}

// Over reports whether the session reached its terminal condition: a match
// of two or more ships ends when at most one is left, a solo run when its
// ship dies.
func (w *World) Over() bool {
	alive := w.AliveCount()
	if len(w.Ships) >= 2 {
		return alive <= 1
	}
	return alive == 0
}

// Winner is the sole survivor if there is exactly one; otherwise the
// highest score, ties going to the earliest roster position.
func (w *World) Winner() *Ship {
	if len(w.Ships) == 0 {
		return nil
	}
	if w.AliveCount() == 1 {
		for _, s := range w.Ships {
			if s.Alive {
				return s
			}
		}
	}
	best := w.Ships[0]
	for _, s := range w.Ships[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
