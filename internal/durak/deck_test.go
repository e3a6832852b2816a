package durak

import (
	"math/rand"
	"testing"
)

func TestNewDeckSizes(t *testing.T) {
	cases := []struct {
		size int
		low  Rank
	}{
		{24, Nine},
		{36, Six},
		{52, Two},
	}
	for _, c := range cases {
		d := NewDeck(c.size, rand.New(rand.NewSource(1)))
		if d.Len() != c.size {
			t.Fatalf("size %d: got %d cards", c.size, d.Len())
		}
		seen := make(map[Card]bool)
		for {
			card, ok := d.Draw()
			if !ok {
				break
			}
			if seen[card] {
				t.Fatalf("size %d: duplicate card %s", c.size, card)
			}
			if card.Rank < c.low {
				t.Fatalf("size %d: card %s below lowest rank %s", c.size, card, c.low)
			}
			seen[card] = true
		}
		if len(seen) != c.size {
			t.Fatalf("size %d: drew %d unique cards", c.size, len(seen))
		}
	}
}

func TestDeckShuffleDeterministic(t *testing.T) {
	a := NewDeck(36, rand.New(rand.NewSource(7)))
	b := NewDeck(36, rand.New(rand.NewSource(7)))
	for {
		ca, oka := a.Draw()
		cb, okb := b.Draw()
		if oka != okb {
			t.Fatal("decks drained at different lengths")
		}
		if !oka {
			break
		}
		if ca != cb {
			t.Fatalf("same seed produced different order: %s vs %s", ca, cb)
		}
	}
}

func TestDeckBottomIsLastDraw(t *testing.T) {
	d := NewDeck(36, rand.New(rand.NewSource(3)))
	bottom, ok := d.Bottom()
	if !ok {
		t.Fatal("expected bottom card")
	}
	var last Card
	for {
		c, ok := d.Draw()
		if !ok {
			break
		}
		last = c
	}
	if last != bottom {
		t.Fatalf("bottom card %s was not drawn last (got %s)", bottom, last)
	}
	if _, ok := d.Bottom(); ok {
		t.Fatal("empty deck reported a bottom card")
	}
}
