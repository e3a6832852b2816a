package durak

import "math/rand"

// Deck is an ordered pile of cards. Cards are drawn from the top (the end of
// the slice); the bottom card (index 0) is the trump card and is the last
// card that can be drawn.
type Deck struct {
	cards []Card
}

// NewDeck builds a shuffled deck of the given size (24, 36 or 52 cards)
// using the supplied random source.
func NewDeck(size int, rng *rand.Rand) *Deck {
	low := lowestRankFor(size)
	cards := make([]Card, 0, size)
	for s := Clubs; s <= Spades; s++ {
		for r := low; r <= Ace; r++ {
			cards = append(cards, Card{Suit: s, Rank: r})
		}
	}
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return &Deck{cards: cards}
}

// newDeckFromCards wraps a preset card order. Index 0 is the bottom (trump)
// card. Used by tests that need a known deal.
func newDeckFromCards(cards []Card) *Deck {
	out := make([]Card, len(cards))
	copy(out, cards)
	return &Deck{cards: out}
}

func lowestRankFor(size int) Rank {
	switch size {
	case 24:
		return Nine
	case 52:
		return Two
	default:
		return Six
	}
}

// Draw removes and returns the top card. Reports false when the deck is
// empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, true
}

// Bottom returns the bottom card, which fixes the trump suit. Reports false
// when the deck is empty.
func (d *Deck) Bottom() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	return d.cards[0], true
}

// Len returns the number of cards remaining.
func (d *Deck) Len() int {
	return len(d.cards)
}
