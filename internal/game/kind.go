package game

import "strings"

// Kind identifies which engine runs a session.
type Kind string

const (
	KindShooter         Kind = "shooter"
	KindSocialDeduction Kind = "social-deduction"
)

// ParseKind accepts the canonical names plus the aliases older clients send.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shooter", "spaceshooter", "space-shooter":
		return KindShooter, nil
	case "social-deduction", "socialdeduction", "imposter", "deduction":
		return KindSocialDeduction, nil
	}
	return "", Errorf(CodeUnknownKind, "unknown game kind %q", s)
}

// Capacity is the roster size range a lobby of a kind accepts.
type Capacity struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

var capacities = map[Kind]Capacity{
	KindShooter:         {Min: 2, Max: 4},
	KindSocialDeduction: {Min: 3, Max: 10},
}

// CapacityOf returns the static bounds for k.
func CapacityOf(k Kind) (Capacity, bool) {
	c, ok := capacities[k]
	return c, ok
}
