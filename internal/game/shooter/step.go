package shooter

import "math"

// Step advances the world by one tick. Order matters: spawn, move hostiles,
// move bullets, hostile fire, then collisions.
func Step(w *World) {
	w.Tick++
	w.spawn()
	w.moveHostiles()
	w.PlayerBullets = w.moveBullets(w.PlayerBullets)
	w.HostileBullets = w.moveBullets(w.HostileBullets)
	w.hostileFire()
	w.collidePlayerBullets()
	w.collideHostileBullets()
	w.collideHostiles()
}

func (w *World) spawn() {
	if w.spawnWait > 0 {
		w.spawnWait--
		return
	}
	w.spawnWait = w.tuning.SpawnEvery - 1

	t := HostileTypes[w.rng.IntN(len(HostileTypes))]
	half := t.Size / 2
	w.Hostiles = append(w.Hostiles, &Hostile{
		ID:       w.newID(),
		Type:     t.Name,
		X:        half + w.rng.Float64()*(w.tuning.Width-t.Size),
		Y:        -half,
		Size:     t.Size,
		Health:   t.Health,
		Speed:    t.Speed,
		Color:    t.Color,
		Score:    t.Score,
		cooldown: w.tuning.HostileFireCooldown,
	})
}

func (w *World) moveHostiles() {
	kept := w.Hostiles[:0]
	for _, h := range w.Hostiles {
		h.Y += h.Speed
		if h.Y-h.Size/2 > w.tuning.Height {
			continue
		}
		kept = append(kept, h)
	}
	w.Hostiles = kept
}

func (w *World) moveBullets(bullets []*Bullet) []*Bullet {
	kept := bullets[:0]
	for _, b := range bullets {
		b.X += b.VX
		b.Y += b.VY
		if b.X < 0 || b.X > w.tuning.Width || b.Y < 0 || b.Y > w.tuning.Height {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

func (w *World) hostileFire() {
	for _, h := range w.Hostiles {
		if h.cooldown > 0 {
			h.cooldown--
			continue
		}
		target := w.nearestShip(h.X, h.Y, w.tuning.AggroRadius)
		if target == nil {
			continue
		}
		dx, dy := target.X-h.X, target.Y-h.Y
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			dist = 1
		}
		w.HostileBullets = append(w.HostileBullets, &Bullet{
			ID: w.newID(),
			X:  h.X,
			Y:  h.Y,
			VX: dx / dist * w.tuning.HostileBulletSpeed,
			VY: dy / dist * w.tuning.HostileBulletSpeed,
		})
		h.cooldown = w.tuning.HostileFireCooldown
	}
}

func (w *World) nearestShip(x, y, radius float64) *Ship {
	var best *Ship
	bestDist := radius
	for _, s := range w.Ships {
		if !s.Alive {
			continue
		}
		if d := math.Hypot(s.X-x, s.Y-y); d <= bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

func (w *World) collidePlayerBullets() {
	kept := w.PlayerBullets[:0]
	for _, b := range w.PlayerBullets {
		hit := false
		for i, h := range w.Hostiles {
			if !overlaps(b.X, b.Y, w.tuning.BulletRadius, h.X, h.Y, h.Size/2) {
				continue
			}
			hit = true
			h.Health--
			if h.Health <= 0 {
				if s, ok := w.Ship(b.Owner); ok {
					s.Score += h.Score
				}
				w.Hostiles = append(w.Hostiles[:i], w.Hostiles[i+1:]...)
			}
			break
		}
		if !hit {
			kept = append(kept, b)
		}
	}
	w.PlayerBullets = kept
}

func (w *World) collideHostileBullets() {
	kept := w.HostileBullets[:0]
	for _, b := range w.HostileBullets {
		hit := false
		for _, s := range w.Ships {
			if !s.Alive || !overlaps(b.X, b.Y, w.tuning.BulletRadius, s.X, s.Y, w.tuning.ShipSize/2) {
				continue
			}
			hit = true
			w.damage(s, w.tuning.BulletDamage)
			break
		}
		if !hit {
			kept = append(kept, b)
		}
	}
	w.HostileBullets = kept
}

func (w *World) collideHostiles() {
	kept := w.Hostiles[:0]
	for _, h := range w.Hostiles {
		rammed := false
		for _, s := range w.Ships {
			if !s.Alive || !overlaps(h.X, h.Y, h.Size/2, s.X, s.Y, w.tuning.ShipSize/2) {
				continue
			}
			rammed = true
			w.damage(s, w.tuning.CollisionDamage)
			break
		}
		if !rammed {
			kept = append(kept, h)
		}
	}
	w.Hostiles = kept
}

func (w *World) damage(s *Ship, amount int) {
	s.Health -= amount
	if s.Health <= 0 {
		s.Health = 0
		s.Alive = false
	}
}

func overlaps(ax, ay, ar, bx, by, br float64) bool {
	return math.Hypot(ax-bx, ay-by) < ar+br
}
