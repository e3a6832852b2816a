package durak

// Result is a game outcome from one player's perspective.
type Result string

const (
	ResultWin  Result = "win"
	ResultLose Result = "lose"
	ResultDraw Result = "draw"
)

// Event is one entry in the observable event stream of a game. Events carry
// the full ground-truth state; redaction for a particular viewer happens at
// the broadcast boundary.
type Event interface {
	eventName() string
}

// GameStarted is emitted once, after the deal.
type GameStarted struct {
	TrumpSuit     Suit           `json:"trumpSuit"`
	TrumpCard     Card           `json:"trumpCard"`
	FirstAttacker string         `json:"firstAttacker"`
	HandCounts    map[string]int `json:"handCounts"`
}

// MoveApplied is emitted for every accepted move.
type MoveApplied struct {
	PlayerID     string         `json:"playerId"`
	Move         string         `json:"move"`
	PhaseBefore  Phase          `json:"phaseBefore"`
	PhaseAfter   Phase          `json:"phaseAfter"`
	Table        []Slot         `json:"table"`
	HandCounts   map[string]int `json:"handCounts"`
	DeckCount    int            `json:"deckCount"`
	DiscardCount int            `json:"discardCount"`
}

// TurnResolved is emitted when a turn ends, after the table is cleared and
// hands are refilled from the deck.
type TurnResolved struct {
	Outcome    string         `json:"outcome"` // "defended" or "taken"
	Attacker   string         `json:"attacker"`
	Defender   string         `json:"defender"`
	Drawn      map[string]int `json:"drawn"`
	HandCounts map[string]int `json:"handCounts"`
	DeckCount  int            `json:"deckCount"`
}

// GameOver is emitted exactly once, when the game reaches a terminal state.
// WinnerID and LoserID are empty on a draw.
type GameOver struct {
	Result   Result `json:"result"`
	WinnerID string `json:"winnerId,omitempty"`
	LoserID  string `json:"loserId,omitempty"`
	Forfeit  bool   `json:"forfeit,omitempty"`
}

// GameAborted is emitted when a room is torn down without a result, either
// because an internal invariant broke or the room was closed
// administratively.
type GameAborted struct {
	Reason string `json:"reason"`
}

func (GameStarted) eventName() string  { return "game_started" }
func (GameAborted) eventName() string  { return "game_aborted" }
func (MoveApplied) eventName() string  { return "move_applied" }
func (TurnResolved) eventName() string { return "turn_resolved" }
func (GameOver) eventName() string     { return "game_over" }

// EventName returns the wire name for an event.
func EventName(e Event) string {
	return e.eventName()
}
