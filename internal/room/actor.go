package room

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"durak/internal/durak"
)

// Config holds the room timing policy. The values are configuration, not
// rules: product may tune them without touching the engine.
type Config struct {
	// TurnTimeout is how long the acting player has before the room applies
	// the default action for them.
	TurnTimeout time.Duration
	// DisconnectGrace replaces the turn deadline once when the acting
	// player drops; a second expiry forfeits the game.
	DisconnectGrace time.Duration
}

// DefaultConfig matches the documented policy: 60s per move, 90s to come
// back after a disconnect.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:     60 * time.Second,
		DisconnectGrace: 90 * time.Second,
	}
}

// EventBatch is the ordered output of one accepted move (or one room-level
// action such as a timeout default). Seq increases by one per batch within a
// room.
type EventBatch struct {
	RoomID string
	Seq    uint64
	Events []durak.Event
}

// Subscription is one observer's view of a room's event stream. The channel
// is closed when the room shuts down.
type Subscription struct {
	C  <-chan EventBatch
	id uint64
	ch chan EventBatch
}

// ErrRoomClosed is returned for submissions to a room that has been torn
// down.
var ErrRoomClosed = errors.New("room is closed")

type command func()

// Actor is the exclusive owner of one game. All mutation goes through its
// command channel and is applied by a single goroutine, so moves within a
// room are strictly serialized while distinct rooms run in parallel.
type Actor struct {
	ID string

	cfg  Config
	log  *zap.SugaredLogger
	game *durak.Game

	cmds chan command
	done chan struct{}
	once sync.Once

	obsMu   sync.Mutex
	obs     map[uint64]chan EventBatch
	nextObs uint64

	seq          uint64
	disconnected map[string]bool
	graceUsed    bool
	timer        *time.Timer

	lastActive atomic.Int64 // unix nanos

	onFinish func(roomID string)

	initial []durak.Event
}

// NewActor wraps a freshly dealt game. Call Start after attaching any
// observers that must see the GameStarted batch.
func NewActor(id string, game *durak.Game, initial []durak.Event, cfg Config, log *zap.SugaredLogger, onFinish func(string)) *Actor {
	a := &Actor{
		ID:           id,
		cfg:          cfg,
		log:          log,
		game:         game,
		cmds:         make(chan command),
		done:         make(chan struct{}),
		obs:          make(map[uint64]chan EventBatch),
		disconnected: make(map[string]bool),
		onFinish:     onFinish,
		initial:      initial,
	}
	a.touch()
	return a
}

// Start launches the actor goroutine and publishes the deal events.
func (a *Actor) Start() {
	a.timer = time.NewTimer(a.cfg.TurnTimeout)
	go a.run()
}

func (a *Actor) run() {
	a.publish(a.initial)
	a.initial = nil
	for {
		select {
		case cmd := <-a.cmds:
			cmd()
		case <-a.timer.C:
			a.onDeadline()
		case <-a.done:
			a.timer.Stop()
			return
		}
	}
}

// SubmitMove applies one move on the actor goroutine and returns its event
// batch. A rejected move returns an *durak.IllegalMoveError with the state
// untouched.
func (a *Actor) SubmitMove(ctx context.Context, playerID string, mv durak.Move) ([]durak.Event, error) {
	type result struct {
		events []durak.Event
		err    error
	}
	reply := make(chan result, 1)
	cmd := func() {
		events, err := a.game.Apply(playerID, mv)
		if err != nil {
			if errors.Is(err, durak.ErrInvariantViolation) {
				a.abort(err)
			}
			reply <- result{err: err}
			return
		}
		if a.game.IsParticipant(playerID) {
			a.disconnected[playerID] = false
		}
		a.graceUsed = false
		a.afterMove(events)
		reply <- result{events: events}
	}

	select {
	case a.cmds <- cmd:
	case <-a.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.events, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnPlayerDisconnect marks the player as away. If it is their turn the
// running deadline is replaced, once, by the disconnect grace period.
func (a *Actor) OnPlayerDisconnect(playerID string) {
	a.exec(func() {
		if !a.game.IsParticipant(playerID) {
			return
		}
		a.disconnected[playerID] = true
		if a.game.ActivePlayer() == playerID && !a.graceUsed {
			a.graceUsed = true
			a.resetTimer(a.cfg.DisconnectGrace)
			a.log.Infow("player disconnected, deadline extended", "room", a.ID, "player", playerID)
		}
	})
}

// OnPlayerReconnect clears the away mark.
func (a *Actor) OnPlayerReconnect(playerID string) {
	a.exec(func() {
		a.disconnected[playerID] = false
	})
}

// View produces the state projection for a viewer, computed on the actor
// goroutine.
func (a *Actor) View(ctx context.Context, viewerID string) (durak.View, error) {
	reply := make(chan durak.View, 1)
	err := a.execCtx(ctx, func() {
		reply <- a.game.View(viewerID)
	})
	if err != nil {
		return durak.View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return durak.View{}, ctx.Err()
	}
}

// Players returns the two seated player ids.
func (a *Actor) Players() [2]string {
	return a.game.Players()
}

// Attach subscribes an observer to the room's event stream. Batches are
// dropped for slow observers rather than blocking the room.
func (a *Actor) Attach(buffer int) *Subscription {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.nextObs++
	ch := make(chan EventBatch, buffer)
	a.obs[a.nextObs] = ch
	return &Subscription{C: ch, id: a.nextObs, ch: ch}
}

// Detach removes an observer and closes its channel.
func (a *Actor) Detach(sub *Subscription) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	if _, ok := a.obs[sub.id]; ok {
		delete(a.obs, sub.id)
		close(sub.ch)
	}
}

// Done is closed when the room has shut down.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// IdleFor reports how long since the room last saw activity.
func (a *Actor) IdleFor() time.Duration {
	return time.Since(time.Unix(0, a.lastActive.Load()))
}

// Stop tears the room down. Idempotent.
func (a *Actor) Stop() {
	a.once.Do(func() {
		close(a.done)
		a.obsMu.Lock()
		for id, ch := range a.obs {
			delete(a.obs, id)
			close(ch)
		}
		a.obsMu.Unlock()
	})
}

// exec runs fn on the actor goroutine, fire and forget.
func (a *Actor) exec(fn command) {
	select {
	case a.cmds <- fn:
	case <-a.done:
	}
}

func (a *Actor) execCtx(ctx context.Context, fn command) error {
	select {
	case a.cmds <- fn:
		return nil
	case <-a.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// afterMove publishes the batch, rearms the deadline and finishes the room
// if the game ended. Actor goroutine only.
func (a *Actor) afterMove(events []durak.Event) {
	a.publish(events)
	if a.game.Over() {
		a.finish()
		return
	}
	a.resetTimer(a.cfg.TurnTimeout)
}

// onDeadline applies the default action for the player who failed to move:
// the attacker passes if that is legal and forfeits otherwise; the defender
// takes the table. Actor goroutine only.
func (a *Actor) onDeadline() {
	player := a.game.ActivePlayer()
	if player == "" {
		return
	}
	if a.disconnected[player] && !a.graceUsed {
		a.graceUsed = true
		a.resetTimer(a.cfg.DisconnectGrace)
		return
	}

	var (
		events []durak.Event
		err    error
	)
	switch {
	case a.game.Phase() == durak.PhaseDefending:
		a.log.Infow("deadline: defender takes", "room", a.ID, "player", player)
		events, err = a.game.Apply(player, durak.TakeCards{})
	case a.game.CanPass():
		a.log.Infow("deadline: attacker passes", "room", a.ID, "player", player)
		events, err = a.game.Apply(player, durak.PassTurn{})
	default:
		a.log.Infow("deadline: forfeit", "room", a.ID, "player", player)
		events, err = a.game.Forfeit(player)
	}
	if err != nil {
		a.abort(err)
		return
	}
	a.graceUsed = false
	a.afterMove(events)
}

// abort handles an engine invariant failure: the room is torn down and both
// players see an aborted game. Bug signal, never a user condition.
func (a *Actor) abort(err error) {
	a.log.Errorw("room aborted", "room", a.ID, "error", err)
	a.publish([]durak.Event{durak.GameAborted{Reason: "internal error"}})
	a.finish()
}

func (a *Actor) finish() {
	onFinish := a.onFinish
	a.Stop()
	if onFinish != nil {
		go onFinish(a.ID)
	}
}

// publish fans the batch out to every observer without blocking. Actor
// goroutine only.
func (a *Actor) publish(events []durak.Event) {
	if len(events) == 0 {
		return
	}
	a.touch()
	a.seq++
	batch := EventBatch{RoomID: a.ID, Seq: a.seq, Events: events}
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	for _, ch := range a.obs {
		select {
		case ch <- batch:
		default:
			// drop for slow observers
		}
	}
}

func (a *Actor) resetTimer(d time.Duration) {
	if !a.timer.Stop() {
		select {
		case <-a.timer.C:
		default:
		}
	}
	a.timer.Reset(d)
}

func (a *Actor) touch() {
	a.lastActive.Store(time.Now().UnixNano())
}
