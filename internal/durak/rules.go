package durak

import "fmt"

// Rules holds the variant constants for a game. The engine is parameterized
// by this struct rather than hard-coding the classic game, so deck-size
// variants and (later) 3-4 player games are configuration, not new code.
type Rules struct {
	Players       int `yaml:"players" json:"players"`
	HandSize      int `yaml:"hand_size" json:"handSize"`
	DeckSize      int `yaml:"deck_size" json:"deckSize"`
	MaxTableSlots int `yaml:"max_table_slots" json:"maxTableSlots"`
}

// DefaultRules is the classic 2-player game: 36 cards, 6-card hands, at most
// 6 attack slots per turn.
func DefaultRules() Rules {
	return Rules{
		Players:       2,
		HandSize:      6,
		DeckSize:      36,
		MaxTableSlots: 6,
	}
}

// Validate checks the rules are playable. Only the 2-player game is
// supported; 3-4 player variants are a planned extension.
func (r Rules) Validate() error {
	if r.Players != 2 {
		return fmt.Errorf("unsupported player count %d (only 2 supported)", r.Players)
	}
	switch r.DeckSize {
	case 24, 36, 52:
	default:
		return fmt.Errorf("deck size must be 24, 36 or 52, got %d", r.DeckSize)
	}
	if r.HandSize < 1 {
		return fmt.Errorf("hand size must be positive, got %d", r.HandSize)
	}
	if r.MaxTableSlots < 1 || r.MaxTableSlots > r.HandSize {
		return fmt.Errorf("max table slots must be in 1..%d, got %d", r.HandSize, r.MaxTableSlots)
	}
	if r.Players*r.HandSize >= r.DeckSize {
		return fmt.Errorf("deck of %d cannot deal %d hands of %d", r.DeckSize, r.Players, r.HandSize)
	}
	return nil
}
