package durak

// PlayerView is one seat as seen by a viewer. Cards is nil unless the viewer
// owns the seat; opponents see only the count.
type PlayerView struct {
	PlayerID string `json:"playerId"`
	Count    int    `json:"count"`
	Cards    Hand   `json:"cards,omitempty"`
}

// View is a projection of the game state for one viewer. The engine always
// computes from ground truth; redaction is a pure function of the viewer id,
// so the broadcast layer never has to reach into the state itself.
type View struct {
	Phase        Phase        `json:"phase"`
	TrumpSuit    Suit         `json:"trumpSuit"`
	TrumpCard    Card         `json:"trumpCard"`
	Attacker     string       `json:"attacker"`
	Defender     string       `json:"defender"`
	Active       string       `json:"active,omitempty"`
	Table        []Slot       `json:"table"`
	Players      []PlayerView `json:"players"`
	DeckCount    int          `json:"deckCount"`
	DiscardCount int          `json:"discardCount"`
	Result       *GameOver    `json:"result,omitempty"`
}

// View builds the state projection for viewerID. Passing an empty viewer id
// (or a non-participant) yields the fully redacted spectator view; passing
// FullView yields ground truth with every hand revealed.
func (g *Game) View(viewerID string) View {
	v := View{
		Phase:        g.phase,
		TrumpSuit:    g.trump,
		TrumpCard:    g.trumpCard,
		Attacker:     g.attacker,
		Defender:     g.defender,
		Active:       g.ActivePlayer(),
		Table:        g.table.Snapshot(),
		DeckCount:    g.deck.Len(),
		DiscardCount: len(g.discard),
		Result:       g.result,
	}
	for _, p := range g.players {
		pv := PlayerView{PlayerID: p, Count: len(g.hands[p])}
		if viewerID == p || viewerID == FullView {
			pv.Cards = g.hands[p].Clone()
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

// FullView is the viewer id that reveals every hand. Only trusted
// collaborators (the recorder, tests) should use it.
const FullView = "*"
