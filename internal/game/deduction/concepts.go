package deduction

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed concepts.yaml
var defaultConcepts []byte

// Concept is the secret the Crew shares.
type Concept struct {
	Word     string `json:"word"`
	Category string `json:"category"`
}

type Category struct {
	Name     string   `yaml:"name"`
	Concepts []string `yaml:"concepts"`
}

// Deck is the pool secrets are drawn from.
type Deck struct {
	Categories []Category `yaml:"categories"`
}

// DefaultDeck returns the built-in deck.
func DefaultDeck() *Deck {
	d, err := ParseDeck(defaultConcepts)
	if err != nil {
		panic(fmt.Sprintf("built-in concept deck: %v", err))
	}
	return d
}

// LoadDeck reads a deck from a YAML file.
func LoadDeck(path string) (*Deck, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept deck: %w", err)
	}
	return ParseDeck(b)
}

// ParseDeck decodes and validates a YAML deck.
func ParseDeck(b []byte) (*Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse concept deck: %w", err)
	}
	kept := d.Categories[:0]
	for _, c := range d.Categories {
		if c.Name != "" && len(c.Concepts) > 0 {
			kept = append(kept, c)
		}
	}
	d.Categories = kept
	if len(d.Categories) == 0 {
		return nil, fmt.Errorf("concept deck has no usable categories")
	}
	return &d, nil
}

// Draw picks a category, then a concept within it, uniformly.
func (d *Deck) Draw(rng *rand.Rand) Concept {
	c := d.Categories[rng.IntN(len(d.Categories))]
	return Concept{Word: c.Concepts[rng.IntN(len(c.Concepts))], Category: c.Name}
}
