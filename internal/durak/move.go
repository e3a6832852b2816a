package durak

import (
	"errors"
	"fmt"
)

// Reason classifies why a move was rejected.
type Reason string

const (
	ReasonWrongPhase      Reason = "wrong_phase"
	ReasonWrongActor      Reason = "wrong_actor"
	ReasonCardNotOwned    Reason = "card_not_owned"
	ReasonRankNotInPlay   Reason = "rank_not_in_play"
	ReasonDoesNotBeat     Reason = "does_not_beat"
	ReasonTableFull       Reason = "table_full"
	ReasonBadSlot         Reason = "bad_slot"
	ReasonSlotDefended    Reason = "slot_defended"
	ReasonPassNotAllowed  Reason = "pass_not_allowed"
	ReasonNotAParticipant Reason = "not_a_participant"
	ReasonGameOver        Reason = "game_over"
)

// IllegalMoveError rejects a move without mutating state. It is always
// recoverable and is reported only to the submitting player.
type IllegalMoveError struct {
	Reason Reason
	Detail string
}

func (e *IllegalMoveError) Error() string {
	if e.Detail == "" {
		return "illegal move: " + string(e.Reason)
	}
	return fmt.Sprintf("illegal move: %s (%s)", e.Reason, e.Detail)
}

func illegal(r Reason, format string, args ...any) error {
	return &IllegalMoveError{Reason: r, Detail: fmt.Sprintf(format, args...)}
}

// AsIllegalMove extracts an IllegalMoveError from err, if any.
func AsIllegalMove(err error) (*IllegalMoveError, bool) {
	var im *IllegalMoveError
	if errors.As(err, &im) {
		return im, true
	}
	return nil, false
}

// ErrInvariantViolation signals a broken card-count invariant. It can only
// be produced by an engine bug; the owning room is torn down when it
// surfaces.
var ErrInvariantViolation = errors.New("card conservation invariant violated")

// Move is one player action submitted to the engine.
type Move interface {
	moveName() string
}

// PlaceAttack puts a card on the table as a new attack slot.
type PlaceAttack struct {
	Card Card
}

// PlaceDefense covers the attack slot at AttackIndex with Card.
type PlaceDefense struct {
	AttackIndex int
	Card        Card
}

// TakeCards concedes the turn: the defender picks up everything on the
// table.
type TakeCards struct{}

// PassTurn ends the attacker's turn once every slot is covered.
type PassTurn struct{}

func (PlaceAttack) moveName() string  { return "attack" }
func (PlaceDefense) moveName() string { return "defend" }
func (TakeCards) moveName() string    { return "take" }
func (PassTurn) moveName() string     { return "pass" }

// MoveName returns the wire name for a move.
func MoveName(mv Move) string {
	return mv.moveName()
}
