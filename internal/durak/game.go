package durak

import (
	"fmt"
	"math/rand"
)

// Phase is the current stage of a game.
type Phase string

const (
	PhaseDealing   Phase = "dealing"
	PhaseAttacking Phase = "attacking"
	PhaseDefending Phase = "defending"
	PhaseDrawing   Phase = "drawing"
	PhaseGameOver  Phase = "game_over"
)

// Game is the authoritative state of one 2-player match. It is not safe for
// concurrent use; a room actor owns each instance exclusively.
type Game struct {
	rules     Rules
	players   [2]string
	hands     map[string]Hand
	deck      *Deck
	table     Table
	discard   []Card
	trump     Suit
	trumpCard Card
	attacker  string
	defender  string
	phase     Phase
	result    *GameOver

	// total is the card count at deal time; every reachable state must
	// account for exactly this many cards.
	total int
}

// NewGame shuffles, deals and returns a ready game together with its
// GameStarted event. The random source drives the shuffle, so a seeded
// source gives a reproducible deal.
func NewGame(rules Rules, players [2]string, rng *rand.Rand) (*Game, []Event, error) {
	if err := rules.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid rules: %w", err)
	}
	if players[0] == players[1] || players[0] == "" || players[1] == "" {
		return nil, nil, fmt.Errorf("need two distinct player ids, got %q and %q", players[0], players[1])
	}
	return start(rules, players, NewDeck(rules.DeckSize, rng))
}

// newGameWithDeck deals from a preset deck order (index 0 = bottom = trump
// card). Test hook.
func newGameWithDeck(rules Rules, players [2]string, deck *Deck) (*Game, []Event, error) {
	return start(rules, players, deck)
}

func start(rules Rules, players [2]string, deck *Deck) (*Game, []Event, error) {
	g := &Game{
		rules:   rules,
		players: players,
		hands:   map[string]Hand{players[0]: {}, players[1]: {}},
		deck:    deck,
		phase:   PhaseDealing,
		total:   deck.Len(),
	}

	bottom, ok := g.deck.Bottom()
	if !ok {
		return nil, nil, fmt.Errorf("empty deck")
	}
	g.trump = bottom.Suit
	g.trumpCard = bottom

	for i := 0; i < rules.HandSize; i++ {
		for _, p := range players {
			c, ok := g.deck.Draw()
			if !ok {
				return nil, nil, fmt.Errorf("deck exhausted during deal")
			}
			h := g.hands[p]
			h.Add(c)
			g.hands[p] = h
		}
	}

	g.attacker, g.defender = g.firstRoles()
	g.phase = PhaseAttacking

	if err := g.checkInvariant(); err != nil {
		return nil, nil, err
	}
	started := GameStarted{
		TrumpSuit:     g.trump,
		TrumpCard:     g.trumpCard,
		FirstAttacker: g.attacker,
		HandCounts:    g.handCounts(),
	}
	return g, []Event{started}, nil
}

// firstRoles gives the first attack to the holder of the lowest trump. If
// neither hand holds a trump the first listed player attacks.
func (g *Game) firstRoles() (attacker, defender string) {
	lowest := Rank(0)
	holder := ""
	for _, p := range g.players {
		for _, c := range g.hands[p] {
			if c.Suit != g.trump {
				continue
			}
			if holder == "" || c.Rank < lowest {
				lowest = c.Rank
				holder = p
			}
		}
	}
	if holder == "" {
		holder = g.players[0]
	}
	if holder == g.players[0] {
		return g.players[0], g.players[1]
	}
	return g.players[1], g.players[0]
}

// Apply validates and executes one move. On rejection the returned error is
// an *IllegalMoveError and the state is untouched. On success it returns the
// ordered event batch for the move.
func (g *Game) Apply(playerID string, mv Move) ([]Event, error) {
	if playerID != g.players[0] && playerID != g.players[1] {
		return nil, illegal(ReasonNotAParticipant, "player %s is not in this game", playerID)
	}
	if g.phase == PhaseGameOver {
		return nil, illegal(ReasonGameOver, "game is over")
	}

	var (
		events []Event
		err    error
	)
	switch m := mv.(type) {
	case PlaceAttack:
		events, err = g.applyAttack(playerID, m)
	case PlaceDefense:
		events, err = g.applyDefense(playerID, m)
	case TakeCards:
		events, err = g.applyTake(playerID)
	case PassTurn:
		events, err = g.applyPass(playerID)
	default:
		return nil, illegal(ReasonWrongPhase, "unknown move type %T", mv)
	}
	if err != nil {
		return nil, err
	}
	if err := g.checkInvariant(); err != nil {
		return nil, err
	}
	return events, nil
}

func (g *Game) applyAttack(playerID string, m PlaceAttack) ([]Event, error) {
	// Attacks are legal in the attacker's own window and as throw-ins while
	// the defender is still covering earlier slots.
	if g.phase != PhaseAttacking && g.phase != PhaseDefending {
		return nil, illegal(ReasonWrongPhase, "cannot attack during %s", g.phase)
	}
	if playerID != g.attacker {
		return nil, illegal(ReasonWrongActor, "only the attacker may place attack cards")
	}
	hand := g.hands[playerID]
	if !hand.Contains(m.Card) {
		return nil, illegal(ReasonCardNotOwned, "%s is not in hand", m.Card)
	}
	if g.table.Len() >= g.rules.MaxTableSlots {
		return nil, illegal(ReasonTableFull, "table already has %d attacks", g.table.Len())
	}
	if !g.table.Empty() && !g.table.HasRank(m.Card.Rank) {
		return nil, illegal(ReasonRankNotInPlay, "rank %s is not on the table", m.Card.Rank)
	}
	// The defender must be able to cover everything outstanding.
	undefended := 0
	for i := 0; i < g.table.Len(); i++ {
		if s, _ := g.table.Slot(i); !s.Defended() {
			undefended++
		}
	}
	if len(g.hands[g.defender]) <= undefended {
		return nil, illegal(ReasonTableFull, "defender cannot cover another attack")
	}

	before := g.phase
	hand.Remove(m.Card)
	g.hands[playerID] = hand
	g.table.PlaceAttack(m.Card)
	g.phase = PhaseDefending

	return []Event{g.moveApplied(playerID, m, before)}, nil
}

func (g *Game) applyDefense(playerID string, m PlaceDefense) ([]Event, error) {
	if g.phase != PhaseDefending {
		return nil, illegal(ReasonWrongPhase, "cannot defend during %s", g.phase)
	}
	if playerID != g.defender {
		return nil, illegal(ReasonWrongActor, "only the defender may place defense cards")
	}
	slot, ok := g.table.Slot(m.AttackIndex)
	if !ok {
		return nil, illegal(ReasonBadSlot, "no attack at index %d", m.AttackIndex)
	}
	if slot.Defended() {
		return nil, illegal(ReasonSlotDefended, "attack at index %d is already covered", m.AttackIndex)
	}
	hand := g.hands[playerID]
	if !hand.Contains(m.Card) {
		return nil, illegal(ReasonCardNotOwned, "%s is not in hand", m.Card)
	}
	if !m.Card.Beats(slot.Attack, g.trump) {
		return nil, illegal(ReasonDoesNotBeat, "%s does not beat %s", m.Card, slot.Attack)
	}

	before := g.phase
	hand.Remove(m.Card)
	g.hands[playerID] = hand
	g.table.PlaceDefense(m.AttackIndex, m.Card)
	if g.table.AllDefended() {
		// Back to the attacker: add more attacks or pass.
		g.phase = PhaseAttacking
	}

	return []Event{g.moveApplied(playerID, m, before)}, nil
}

func (g *Game) applyTake(playerID string) ([]Event, error) {
	if g.phase != PhaseDefending {
		return nil, illegal(ReasonWrongPhase, "cannot take cards during %s", g.phase)
	}
	if playerID != g.defender {
		return nil, illegal(ReasonWrongActor, "only the defender may take cards")
	}

	before := g.phase
	hand := g.hands[playerID]
	for _, c := range g.table.Clear() {
		hand.Add(c)
	}
	g.hands[playerID] = hand
	g.phase = PhaseDrawing

	events := []Event{g.moveApplied(playerID, TakeCards{}, before)}
	return append(events, g.resolveTurn("taken")...), nil
}

func (g *Game) applyPass(playerID string) ([]Event, error) {
	if g.phase != PhaseAttacking {
		return nil, illegal(ReasonWrongPhase, "cannot pass during %s", g.phase)
	}
	if playerID != g.attacker {
		return nil, illegal(ReasonWrongActor, "only the attacker may pass")
	}
	if g.table.Empty() || !g.table.AllDefended() {
		return nil, illegal(ReasonPassNotAllowed, "pass requires a fully defended table")
	}

	before := g.phase
	g.discard = append(g.discard, g.table.Clear()...)
	g.attacker, g.defender = g.defender, g.attacker
	g.phase = PhaseDrawing

	events := []Event{g.moveApplied(playerID, PassTurn{}, before)}
	return append(events, g.resolveTurn("defended")...), nil
}

// resolveTurn refills hands (attacker first) and either starts the next
// turn or ends the game. Roles have already been assigned for the next
// turn by the caller.
func (g *Game) resolveTurn(outcome string) []Event {
	drawn := map[string]int{g.attacker: 0, g.defender: 0}
	for _, p := range []string{g.attacker, g.defender} {
		hand := g.hands[p]
		for len(hand) < g.rules.HandSize {
			c, ok := g.deck.Draw()
			if !ok {
				break
			}
			hand.Add(c)
			drawn[p]++
		}
		g.hands[p] = hand
	}

	events := []Event{TurnResolved{
		Outcome:    outcome,
		Attacker:   g.attacker,
		Defender:   g.defender,
		Drawn:      drawn,
		HandCounts: g.handCounts(),
		DeckCount:  g.deck.Len(),
	}}

	if over := g.checkGameOver(); over != nil {
		events = append(events, *over)
	} else {
		g.phase = PhaseAttacking
	}
	return events
}

// checkGameOver applies the end condition: deck empty and at least one
// empty hand. Returns nil while the game continues.
func (g *Game) checkGameOver() *GameOver {
	if g.deck.Len() > 0 {
		return nil
	}
	empty0 := len(g.hands[g.players[0]]) == 0
	empty1 := len(g.hands[g.players[1]]) == 0
	if !empty0 && !empty1 {
		return nil
	}

	over := GameOver{}
	switch {
	case empty0 && empty1:
		over.Result = ResultDraw
	case empty0:
		over.Result = ResultLose
		over.WinnerID = g.players[0]
		over.LoserID = g.players[1]
	default:
		over.Result = ResultLose
		over.WinnerID = g.players[1]
		over.LoserID = g.players[0]
	}
	g.phase = PhaseGameOver
	g.result = &over
	return &over
}

// Forfeit ends the game immediately with loserID as the durak. Used by the
// room layer for timeouts and abandoned games.
func (g *Game) Forfeit(loserID string) ([]Event, error) {
	if loserID != g.players[0] && loserID != g.players[1] {
		return nil, illegal(ReasonNotAParticipant, "player %s is not in this game", loserID)
	}
	if g.phase == PhaseGameOver {
		return nil, illegal(ReasonGameOver, "game is over")
	}
	winner := g.players[0]
	if winner == loserID {
		winner = g.players[1]
	}
	over := GameOver{Result: ResultLose, WinnerID: winner, LoserID: loserID, Forfeit: true}
	g.phase = PhaseGameOver
	g.result = &over
	return []Event{over}, nil
}

func (g *Game) moveApplied(playerID string, mv Move, before Phase) MoveApplied {
	return MoveApplied{
		PlayerID:     playerID,
		Move:         MoveName(mv),
		PhaseBefore:  before,
		PhaseAfter:   g.phase,
		Table:        g.table.Snapshot(),
		HandCounts:   g.handCounts(),
		DeckCount:    g.deck.Len(),
		DiscardCount: len(g.discard),
	}
}

func (g *Game) handCounts() map[string]int {
	return map[string]int{
		g.players[0]: len(g.hands[g.players[0]]),
		g.players[1]: len(g.hands[g.players[1]]),
	}
}

func (g *Game) checkInvariant() error {
	total := g.deck.Len() + g.table.CardCount() + len(g.discard)
	for _, p := range g.players {
		total += len(g.hands[p])
	}
	if total != g.total {
		return fmt.Errorf("%w: counted %d cards, want %d", ErrInvariantViolation, total, g.total)
	}
	return nil
}

// Over reports whether the game has reached a terminal state.
func (g *Game) Over() bool {
	return g.phase == PhaseGameOver
}

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// TrumpSuit returns the trump suit fixed at deal time.
func (g *Game) TrumpSuit() Suit { return g.trump }

// TrumpCard returns the face-up bottom card.
func (g *Game) TrumpCard() Card { return g.trumpCard }

// Attacker returns the current attacker's id.
func (g *Game) Attacker() string { return g.attacker }

// Defender returns the current defender's id.
func (g *Game) Defender() string { return g.defender }

// Players returns both player ids in seating order.
func (g *Game) Players() [2]string { return g.players }

// IsParticipant reports whether playerID is one of the two seated players.
func (g *Game) IsParticipant(playerID string) bool {
	return playerID == g.players[0] || playerID == g.players[1]
}

// DeckCount returns the number of undrawn cards.
func (g *Game) DeckCount() int { return g.deck.Len() }

// HandOf returns a copy of the player's hand.
func (g *Game) HandOf(playerID string) Hand {
	return g.hands[playerID].Clone()
}

// Result returns the terminal outcome, or nil while the game is running.
func (g *Game) Result() *GameOver {
	return g.result
}

// ActivePlayer returns the id of the player expected to move, or "" in a
// terminal state.
func (g *Game) ActivePlayer() string {
	switch g.phase {
	case PhaseAttacking:
		return g.attacker
	case PhaseDefending:
		return g.defender
	default:
		return ""
	}
}

// CanPass reports whether a PassTurn from the attacker would be accepted
// right now. The room layer uses it to pick the deadline default action.
func (g *Game) CanPass() bool {
	return g.phase == PhaseAttacking && !g.table.Empty() && g.table.AllDefended()
}
