package durak

// Slot is one attack card on the table, with its covering defense card once
// the defender has beaten it.
type Slot struct {
	Attack  Card  `json:"attack"`
	Defense *Card `json:"defense,omitempty"`
}

// Defended reports whether the slot has been covered.
func (s Slot) Defended() bool {
	return s.Defense != nil
}

// Table is the ordered sequence of attack/defense pairs for the current
// turn.
type Table struct {
	slots []Slot
}

// Empty reports whether no attack has been placed this turn.
func (t *Table) Empty() bool {
	return len(t.slots) == 0
}

// Len returns the number of attack slots.
func (t *Table) Len() int {
	return len(t.slots)
}

// CardCount returns the total number of cards on the table, attacks and
// defenses both.
func (t *Table) CardCount() int {
	n := len(t.slots)
	for _, s := range t.slots {
		if s.Defended() {
			n++
		}
	}
	return n
}

// HasRank reports whether the rank appears among any attack or defense card
// already in play. New attacks are legal only for ranks already on the
// table.
func (t *Table) HasRank(r Rank) bool {
	for _, s := range t.slots {
		if s.Attack.Rank == r {
			return true
		}
		if s.Defense != nil && s.Defense.Rank == r {
			return true
		}
	}
	return false
}

// AllDefended reports whether every attack slot is covered. True for an
// empty table.
func (t *Table) AllDefended() bool {
	for _, s := range t.slots {
		if !s.Defended() {
			return false
		}
	}
	return true
}

// PlaceAttack appends a new uncovered attack slot.
func (t *Table) PlaceAttack(c Card) {
	t.slots = append(t.slots, Slot{Attack: c})
}

// PlaceDefense covers the slot at index i. The caller has already validated
// the index and the beats relation.
func (t *Table) PlaceDefense(i int, c Card) {
	t.slots[i].Defense = &c
}

// Slot returns the slot at index i. Reports false for an out-of-range index.
func (t *Table) Slot(i int) (Slot, bool) {
	if i < 0 || i >= len(t.slots) {
		return Slot{}, false
	}
	return t.slots[i], true
}

// Clear removes and returns every card on the table, emptying it for the
// next turn.
func (t *Table) Clear() []Card {
	cards := make([]Card, 0, t.CardCount())
	for _, s := range t.slots {
		cards = append(cards, s.Attack)
		if s.Defense != nil {
			cards = append(cards, *s.Defense)
		}
	}
	t.slots = nil
	return cards
}

// Snapshot returns a copy of the slots safe to hand to observers.
func (t *Table) Snapshot() []Slot {
	out := make([]Slot, len(t.slots))
	for i, s := range t.slots {
		out[i] = Slot{Attack: s.Attack}
		if s.Defense != nil {
			d := *s.Defense
			out[i].Defense = &d
		}
	}
	return out
}
