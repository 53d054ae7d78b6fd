package shooter

// Tuning holds the simulation constants. Durations are in ticks.
type Tuning struct {
	TickHz         int
	BroadcastEvery int

	Width  float64
	Height float64

	ShipSize   float64
	ShipHealth int

	SpawnEvery int

	PlayerBulletSpeed  float64
	HostileBulletSpeed float64
	BulletRadius       float64

	ShotCooldown        uint64
	HostileFireCooldown int
	AggroRadius         float64

	BulletDamage    int
	CollisionDamage int
}

// DefaultTuning is a 60 Hz, 800x600 playfield.
func DefaultTuning() Tuning {
	return Tuning{
		TickHz:              60,
		BroadcastEvery:      1,
		Width:               800,
		Height:              600,
		ShipSize:            32,
		ShipHealth:          100,
		SpawnEvery:          90,
		PlayerBulletSpeed:   10,
		HostileBulletSpeed:  5,
		BulletRadius:        4,
		ShotCooldown:        15,
		HostileFireCooldown: 120,
		AggroRadius:         350,
		BulletDamage:        10,
		CollisionDamage:     30,
	}
}

// HostileType is one row of the spawn table.
type HostileType struct {
	Name   string
	Size   float64
	Health int
	Speed  float64
	Color  string
	Score  int
}

// HostileTypes is the table a spawn picks from uniformly.
var HostileTypes = []HostileType{
	{Name: "scout", Size: 24, Health: 1, Speed: 2.5, Color: "#ff5555", Score: 10},
	{Name: "fighter", Size: 32, Health: 3, Speed: 1.6, Color: "#ffaa33", Score: 25},
	{Name: "bruiser", Size: 48, Health: 6, Speed: 0.9, Color: "#aa55ff", Score: 50},
}
