package durak

import "fmt"

// Suit is one of the four card suits.
type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

var suitNames = [...]string{"clubs", "diamonds", "hearts", "spades"}

func (s Suit) String() string {
	if int(s) < len(suitNames) {
		return suitNames[s]
	}
	return fmt.Sprintf("suit(%d)", uint8(s))
}

// Rank is a card value. The numeric value doubles as the comparison key:
// 6 < 7 < ... < 10 < J(11) < Q(12) < K(13) < A(14).
type Rank uint8

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return fmt.Sprintf("%d", uint8(r))
	}
}

// Card is an immutable suit/rank pair. Each pair occurs exactly once in a
// deck, so value equality is identity.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return c.Rank.String() + " of " + c.Suit.String()
}

// Beats reports whether c defends successfully against attack, given the
// trump suit. Same suit wins by higher rank; trump beats any non-trump;
// non-trump never beats trump.
func (c Card) Beats(attack Card, trump Suit) bool {
	if c.Suit == attack.Suit {
		return c.Rank > attack.Rank
	}
	return c.Suit == trump
}

// Hand is the unordered set of cards held by one player.
type Hand []Card

// Contains reports whether the hand holds the given card.
func (h Hand) Contains(c Card) bool {
	for _, have := range h {
		if have == c {
			return true
		}
	}
	return false
}

// Remove deletes the card from the hand. Reports false if the card is not
// held, leaving the hand unchanged.
func (h *Hand) Remove(c Card) bool {
	for i, have := range *h {
		if have == c {
			*h = append((*h)[:i], (*h)[i+1:]...)
			return true
		}
	}
	return false
}

// Add places a card into the hand.
func (h *Hand) Add(c Card) {
	*h = append(*h, c)
}

// Clone returns an independent copy of the hand.
func (h Hand) Clone() Hand {
	out := make(Hand, len(h))
	copy(out, h)
	return out
}
