package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"durak/internal/room"
	"durak/internal/storage"
)

// Server is the HTTP/WebSocket transport in front of the room registry. It
// assumes player identity has already been authenticated upstream; it only
// enforces that a given (room, player) pair belongs to the game.
type Server struct {
	mux      *http.ServeMux
	registry *room.Registry
	store    *storage.Store // may be nil; history endpoints 404 without it
	log      *zap.SugaredLogger
}

// New creates a server with all routes.
func New(registry *room.Registry, store *storage.Store, log *zap.SugaredLogger) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		registry: registry,
		store:    store,
		log:      log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	s.mux.HandleFunc("DELETE /api/rooms/{id}", s.handleCloseRoom)
	s.mux.HandleFunc("GET /api/rooms/{id}/ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type createRoomRequest struct {
	RoomID  string   `json:"roomId"`
	Players []string `json:"players"`
}

type createRoomResponse struct {
	RoomID  string   `json:"roomId"`
	Players []string `json:"players"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Players) != 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly two players required"})
		return
	}
	p1 := strings.TrimSpace(req.Players[0])
	p2 := strings.TrimSpace(req.Players[1])
	if p1 == "" || p2 == "" || p1 == p2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "two distinct player ids required"})
		return
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID = uuid.NewString()
	}

	actor, err := s.registry.GetOrCreate(roomID, [2]string{p1, p2})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	players := actor.Players()
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: roomID, Players: players[:]})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.registry.List()})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	actor, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	// Spectator projection: no hand contents.
	view, err := actor.View(r.Context(), "")
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCloseRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.registry.Get(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	s.registry.Close(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history not enabled"})
		return
	}
	games, err := s.store.ListGames(r.URL.Query().Get("status"))
	if err != nil {
		s.log.Errorw("list games", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history not enabled"})
		return
	}
	id := r.PathValue("id")
	if _, err := s.store.GetGame(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
			return
		}
		s.log.Errorw("get game", "room", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage error"})
		return
	}
	events, err := s.store.ListEvents(id)
	if err != nil {
		s.log.Errorw("list events", "room", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
