package room

import (
	"errors"
	"sync"
	"testing"
	"time"

	"durak/internal/durak"
)

func newTestRegistry(rec Recorder) *Registry {
	cfg := DefaultConfig()
	return NewRegistry(durak.DefaultRules(), cfg, testLogger(), rec)
}

func TestGetOrCreateIdempotent(t *testing.T) {
	r := newTestRegistry(nil)
	players := [2]string{"p1", "p2"}

	a, err := r.GetOrCreate("room-1", players)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer a.Stop()

	// Concurrent callers always land on the same actor.
	var wg sync.WaitGroup
	actors := make([]*Actor, 20)
	for i := range actors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := r.GetOrCreate("room-1", players)
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			actors[i] = got
		}(i)
	}
	wg.Wait()
	for i, got := range actors {
		if got != a {
			t.Fatalf("caller %d got a different actor", i)
		}
	}
}

func TestGetUnknownRoom(t *testing.T) {
	r := newTestRegistry(nil)
	if _, err := r.Get("nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestCloseReleasesRoom(t *testing.T) {
	r := newTestRegistry(nil)
	a, err := r.GetOrCreate("room-1", [2]string{"p1", "p2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r.Close("room-1")

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("actor still running after close")
	}
	if _, err := r.Get("room-1"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected room to be gone, got %v", err)
	}

	// The id is reusable afterwards.
	b, err := r.GetOrCreate("room-1", [2]string{"p1", "p2"})
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if b == a {
		t.Fatal("expected a fresh actor")
	}
	b.Stop()
}

func TestFinishedRoomRemovesItself(t *testing.T) {
	r := newTestRegistry(nil)
	a, err := r.GetOrCreate("room-1", [2]string{"p1", "p2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	loser := a.Players()[0]
	a.exec(func() {
		events, err := a.game.Forfeit(loser)
		if err != nil {
			t.Errorf("forfeit: %v", err)
			return
		}
		a.afterMove(events)
	})

	deadline := time.After(2 * time.Second)
	for {
		if _, err := r.Get("room-1"); errors.Is(err, ErrRoomNotFound) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("finished room still registered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type memRecorder struct {
	mu       sync.Mutex
	created  []string
	batches  []uint64
	events   []durak.Event
	finished []durak.GameOver
}

func (m *memRecorder) GameCreated(roomID string, players [2]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, roomID)
	return nil
}

func (m *memRecorder) AppendEvents(roomID string, seq uint64, events []durak.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, seq)
	m.events = append(m.events, events...)
	return nil
}

func (m *memRecorder) GameFinished(roomID string, result durak.GameOver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, result)
	return nil
}

func TestRecorderSeesStreamOffMovePath(t *testing.T) {
	rec := &memRecorder{}
	r := newTestRegistry(rec)
	a, err := r.GetOrCreate("room-1", [2]string{"p1", "p2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	a.exec(func() {
		events, err := a.game.Forfeit("p2")
		if err != nil {
			t.Errorf("forfeit: %v", err)
			return
		}
		a.afterMove(events)
	})

	deadline := time.After(2 * time.Second)
	for {
		rec.mu.Lock()
		done := len(rec.finished) > 0
		rec.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("recorder never saw the result")
		case <-time.After(5 * time.Millisecond):
		}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.created) != 1 || rec.created[0] != "room-1" {
		t.Fatalf("expected creation record, got %v", rec.created)
	}
	var sawStart bool
	for _, e := range rec.events {
		if _, ok := e.(durak.GameStarted); ok {
			sawStart = true
		}
	}
	if !sawStart {
		t.Fatal("recorder missed the GameStarted batch")
	}
	for i, seq := range rec.batches {
		if seq != uint64(i+1) {
			t.Fatalf("recorder saw seq %d at position %d", seq, i)
		}
	}
	if rec.finished[0].WinnerID != "p1" {
		t.Fatalf("expected p1 to win, got %+v", rec.finished[0])
	}
}
