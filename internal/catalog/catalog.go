// Package catalog holds the immutable card deck and hint questions loaded at startup.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"metacards/internal/models"
)

var (
	// ErrNoCards is returned when a draw needs a card type the deck does not contain
	ErrNoCards = errors.New("no cards available")
	// ErrCardNotFound is returned for lookups of unknown card ids
	ErrCardNotFound = errors.New("card not found")
)

// IntN returns a uniformly distributed int in [0, n). math/rand/v2.IntN satisfies it.
type IntN func(n int) int

// Catalog is a read-only view of the deck. It is safe for concurrent use.
type Catalog struct {
	cards  []models.Card
	byID   map[int]models.Card
	byType map[models.CardType][]models.Card
	hints  map[models.CardType][]models.HintQuestion
}

// New validates cards and hints and builds a Catalog
func New(cards []models.Card, hints []models.HintQuestion) (*Catalog, error) {
	c := &Catalog{
		cards:  make([]models.Card, 0, len(cards)),
		byID:   make(map[int]models.Card, len(cards)),
		byType: make(map[models.CardType][]models.Card),
		hints:  make(map[models.CardType][]models.HintQuestion),
	}

	for i, card := range cards {
		if card.ID <= 0 {
			return nil, fmt.Errorf("card #%d: id must be positive, got %d", i, card.ID)
		}
		if !card.Type.Valid() {
			return nil, fmt.Errorf("card %d: missing or invalid type", card.ID)
		}
		if _, dup := c.byID[card.ID]; dup {
			return nil, fmt.Errorf("card %d: duplicate id", card.ID)
		}
		c.cards = append(c.cards, card)
		c.byID[card.ID] = card
		c.byType[card.Type] = append(c.byType[card.Type], card)
	}

	for i, hint := range hints {
		if !hint.Type.Valid() {
			return nil, fmt.Errorf("hint #%d: missing or invalid type", i)
		}
		if strings.TrimSpace(hint.Question) == "" {
			return nil, fmt.Errorf("hint #%d: empty question", i)
		}
		c.hints[hint.Type] = append(c.hints[hint.Type], hint)
	}

	return c, nil
}

// Load reads the card and hint manifests from disk
func Load(cardsPath, hintsPath string) (*Catalog, error) {
	var cards []models.Card
	if err := ReadManifest(cardsPath, &cards); err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	var hints []models.HintQuestion
	if err := ReadManifest(hintsPath, &hints); err != nil {
		return nil, fmt.Errorf("failed to load hints: %w", err)
	}

	return New(cards, hints)
}

// ReadManifest decodes a JSON or YAML manifest depending on the file extension
func ReadManifest(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("malformed manifest %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("malformed manifest %s: %w", path, err)
		}
	}
	return nil
}

// Len returns the number of cards in the deck
func (c *Catalog) Len() int {
	return len(c.cards)
}

// Card looks a card up by id
func (c *Catalog) Card(id int) (models.Card, error) {
	card, ok := c.byID[id]
	if !ok {
		return models.Card{}, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
	}
	return card, nil
}

// CardsOfType returns a copy of the cards with the given type
func (c *Catalog) CardsOfType(t models.CardType) []models.Card {
	cards := c.byType[t]
	out := make([]models.Card, len(cards))
	copy(out, cards)
	return out
}

// HintsOfType returns a copy of the hint questions for the given type
func (c *Catalog) HintsOfType(t models.CardType) []models.HintQuestion {
	hints := c.hints[t]
	out := make([]models.HintQuestion, len(hints))
	copy(out, hints)
	return out
}

// Random picks one card of the given type uniformly at random
func (c *Catalog) Random(t models.CardType, intn IntN) (models.Card, error) {
	cards := c.byType[t]
	if len(cards) == 0 {
		return models.Card{}, fmt.Errorf("%s: %w", t, ErrNoCards)
	}
	return cards[intn(len(cards))], nil
}

// Draw picks one block and one resource card. Both partitions are checked
// before anything is picked so a failed draw consumes no randomness.
func (c *Catalog) Draw(intn IntN) (block, resource models.Card, err error) {
	for _, t := range models.CardTypes {
		if len(c.byType[t]) == 0 {
			return models.Card{}, models.Card{}, fmt.Errorf("%s: %w", t, ErrNoCards)
		}
	}

	block, _ = c.Random(models.CardTypeBlock, intn)
	resource, _ = c.Random(models.CardTypeResource, intn)
	return block, resource, nil
}

// RandomHint picks one hint question for the given type
func (c *Catalog) RandomHint(t models.CardType, intn IntN) (models.HintQuestion, bool) {
	hints := c.hints[t]
	if len(hints) == 0 {
		return models.HintQuestion{}, false
	}
	return hints[intn(len(hints))], true
}
