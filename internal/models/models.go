package models

import (
	"fmt"
	"strings"
	"time"
)

// CardType distinguishes the two halves of a draw
type CardType uint8

const (
	CardTypeBlock CardType = iota + 1
	CardTypeResource
)

// CardTypes lists every card type in draw order
var CardTypes = []CardType{CardTypeBlock, CardTypeResource}

// ParseCardType converts a manifest tag into a CardType
func ParseCardType(s string) (CardType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return CardTypeBlock, nil
	case "resource":
		return CardTypeResource, nil
	}
	return 0, fmt.Errorf("unknown card type %q", s)
}

func (t CardType) String() string {
	switch t {
	case CardTypeBlock:
		return "block"
	case CardTypeResource:
		return "resource"
	}
	return fmt.Sprintf("CardType(%d)", uint8(t))
}

// Valid reports whether t is one of the known card types
func (t CardType) Valid() bool {
	return t == CardTypeBlock || t == CardTypeResource
}

// MarshalText implements encoding.TextMarshaler so manifests keep string tags
func (t CardType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid card type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *CardType) UnmarshalText(text []byte) error {
	parsed, err := ParseCardType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Card is a single entry of the deck
type Card struct {
	ID          int      `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Type        CardType `json:"type" yaml:"type"`
	ImageURL    string   `json:"image_url" yaml:"image_url"`
}

// HintQuestion is a reflective question offered for cards of a given type
type HintQuestion struct {
	Type     CardType `json:"type" yaml:"type"`
	Question string   `json:"question" yaml:"question"`
}

// UserRecord is the persisted profile of a bot user
type UserRecord struct {
	UserID         int64
	DisplayName    string
	CreatedAt      time.Time
	CurrentRequest *string
}

// CompletedDraw is an append-only record of one delivered block/resource pair.
// Descriptions are copied at write time so later deck edits do not rewrite history.
type CompletedDraw struct {
	ID                      int64
	UserID                  int64
	RequestText             string
	BlockCardID             int
	ResourceCardID          int
	BlockCardDescription    string
	ResourceCardDescription string
	RequestedAt             time.Time
}

// StoreStats summarizes the contents of a session store
type StoreStats struct {
	Users int64
	Draws int64
}
