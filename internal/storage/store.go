package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"durak/internal/durak"
)

// GameRow is one game in the database.
type GameRow struct {
	RoomID     string
	Player1    string
	Player2    string
	Status     string // "in_progress", "finished"
	Result     string // "", "win", "draw"
	WinnerID   string
	LoserID    string
	CreatedAt  time.Time
	FinishedAt sql.NullTime
}

// EventRow is one recorded event.
type EventRow struct {
	RoomID    string
	Seq       uint64
	Ord       int
	Type      string
	Payload   string
	CreatedAt time.Time
}

// Store persists game history in SQLite. The engine never calls it
// directly; the room registry feeds it from each room's event stream.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			room_id     TEXT PRIMARY KEY,
			player1     TEXT NOT NULL,
			player2     TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'in_progress',
			result      TEXT NOT NULL DEFAULT '',
			winner_id   TEXT NOT NULL DEFAULT '',
			loser_id    TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);
		CREATE TABLE IF NOT EXISTS events (
			room_id    TEXT NOT NULL REFERENCES games(room_id),
			seq        INTEGER NOT NULL,
			ord        INTEGER NOT NULL,
			type       TEXT NOT NULL,
			payload    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (room_id, seq, ord)
		);
	`)
	return err
}

// GameCreated inserts a new in-progress game.
func (s *Store) GameCreated(roomID string, players [2]string) error {
	_, err := s.db.Exec(
		"INSERT INTO games (room_id, player1, player2, status) VALUES (?, ?, ?, 'in_progress')",
		roomID, players[0], players[1],
	)
	return err
}

// AppendEvents records one batch. Each event is stored as a typed JSON row
// so history can be replayed or audited later.
func (s *Store) AppendEvents(roomID string, seq uint64, events []durak.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		_, err = tx.Exec(
			"INSERT INTO events (room_id, seq, ord, type, payload) VALUES (?, ?, ?, ?, ?)",
			roomID, seq, i, durak.EventName(e), string(payload),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GameFinished records the terminal outcome.
func (s *Store) GameFinished(roomID string, result durak.GameOver) error {
	res := "win"
	if result.Result == durak.ResultDraw {
		res = "draw"
	}
	_, err := s.db.Exec(`
		UPDATE games
		SET status = 'finished', result = ?, winner_id = ?, loser_id = ?, finished_at = CURRENT_TIMESTAMP
		WHERE room_id = ?
	`, res, result.WinnerID, result.LoserID, roomID)
	return err
}

// GetGame retrieves one game by room id.
func (s *Store) GetGame(roomID string) (*GameRow, error) {
	row := s.db.QueryRow(`
		SELECT room_id, player1, player2, status, result, winner_id, loser_id, created_at, finished_at
		FROM games WHERE room_id = ?
	`, roomID)
	var g GameRow
	err := row.Scan(&g.RoomID, &g.Player1, &g.Player2, &g.Status, &g.Result,
		&g.WinnerID, &g.LoserID, &g.CreatedAt, &g.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGames returns games with the given status, or all when status is
// empty, newest first.
func (s *Store) ListGames(status string) ([]GameRow, error) {
	var rows *sql.Rows
	var err error
	const cols = "room_id, player1, player2, status, result, winner_id, loser_id, created_at, finished_at"
	if status == "" {
		rows, err = s.db.Query("SELECT " + cols + " FROM games ORDER BY created_at DESC")
	} else {
		rows, err = s.db.Query("SELECT "+cols+" FROM games WHERE status = ? ORDER BY created_at DESC", status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []GameRow
	for rows.Next() {
		var g GameRow
		err := rows.Scan(&g.RoomID, &g.Player1, &g.Player2, &g.Status, &g.Result,
			&g.WinnerID, &g.LoserID, &g.CreatedAt, &g.FinishedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// ListEvents returns a room's recorded events in emission order.
func (s *Store) ListEvents(roomID string) ([]EventRow, error) {
	rows, err := s.db.Query(`
		SELECT room_id, seq, ord, type, payload, created_at
		FROM events WHERE room_id = ? ORDER BY seq, ord
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.RoomID, &e.Seq, &e.Ord, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// DeleteGame removes a game and its events.
func (s *Store) DeleteGame(roomID string) error {
	if _, err := s.db.Exec("DELETE FROM events WHERE room_id = ?", roomID); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM games WHERE room_id = ?", roomID)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
