package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"durak/internal/durak"
)

// ErrRoomNotFound is returned for lookups of rooms that do not exist, which
// usually means a stale client request.
var ErrRoomNotFound = errors.New("room not found")

// Recorder receives the event stream of every room for persistence. It runs
// on a dedicated goroutine per room, never on the move path.
type Recorder interface {
	GameCreated(roomID string, players [2]string) error
	AppendEvents(roomID string, seq uint64, events []durak.Event) error
	GameFinished(roomID string, result durak.GameOver) error
}

// Registry maps room ids to their actors. It is the only structure in the
// package shared by multiple callers.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Actor

	rules    durak.Rules
	cfg      Config
	log      *zap.SugaredLogger
	recorder Recorder // may be nil
}

// NewRegistry creates an empty registry.
func NewRegistry(rules durak.Rules, cfg Config, log *zap.SugaredLogger, recorder Recorder) *Registry {
	return &Registry{
		rooms:    make(map[string]*Actor),
		rules:    rules,
		cfg:      cfg,
		log:      log,
		recorder: recorder,
	}
}

// GetOrCreate returns the actor for roomID, dealing a new game for the two
// players if the room does not exist yet. Two actors for the same id can
// never coexist: creation happens under the registry lock.
func (r *Registry) GetOrCreate(roomID string, players [2]string) (*Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.rooms[roomID]; ok {
		return a, nil
	}

	game, initial, err := durak.NewGame(r.rules, players, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, fmt.Errorf("deal game: %w", err)
	}
	a := NewActor(roomID, game, initial, r.cfg, r.log, r.remove)
	if r.recorder != nil {
		if err := r.recorder.GameCreated(roomID, players); err != nil {
			r.log.Warnw("record game creation", "room", roomID, "error", err)
		}
		sub := a.Attach(256)
		go r.recordLoop(roomID, sub)
	}
	r.rooms[roomID] = a
	a.Start()
	r.log.Infow("room created", "room", roomID, "players", players)
	return a, nil
}

// Get returns the actor for roomID.
func (r *Registry) Get(roomID string) (*Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return a, nil
}

// List returns the ids of all live rooms.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Close tears down a room and releases its game.
func (r *Registry) Close(roomID string) {
	r.mu.Lock()
	a, ok := r.rooms[roomID]
	if ok {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
	if ok {
		a.Stop()
		r.log.Infow("room closed", "room", roomID)
	}
}

// remove drops a finished room from the map. Called by the actor itself
// when its game ends.
func (r *Registry) remove(roomID string) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
	r.log.Infow("room finished", "room", roomID)
}

// CleanupLoop closes rooms idle past maxIdle, checking every interval.
// Blocks until ctx is cancelled.
func (r *Registry) CleanupLoop(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup(maxIdle)
		}
	}
}

func (r *Registry) cleanup(maxIdle time.Duration) {
	r.mu.RLock()
	var stale []string
	for id, a := range r.rooms {
		if a.IdleFor() > maxIdle {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()
	for _, id := range stale {
		r.log.Infow("cleaning up idle room", "room", id)
		r.Close(id)
	}
}

// recordLoop drains one room's event stream into the recorder.
func (r *Registry) recordLoop(roomID string, sub *Subscription) {
	for batch := range sub.C {
		if err := r.recorder.AppendEvents(roomID, batch.Seq, batch.Events); err != nil {
			r.log.Warnw("record events", "room", roomID, "error", err)
		}
		for _, e := range batch.Events {
			if over, ok := e.(durak.GameOver); ok {
				if err := r.recorder.GameFinished(roomID, over); err != nil {
					r.log.Warnw("record result", "room", roomID, "error", err)
				}
			}
		}
	}
}
